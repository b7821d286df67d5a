// Package model содержит доменные сущности оптовой текстильной ERP.
package model

import "github.com/shopspring/decimal"

// Currency описывает валюту исходной суммы транзакции.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyRUB Currency = "RUB"
)

// TransactionType описывает вид финансовой операции.
type TransactionType string

const (
	TransactionIncome     TransactionType = "INCOME"
	TransactionExpense    TransactionType = "EXPENSE"
	TransactionPayment    TransactionType = "PAYMENT"
	TransactionCollection TransactionType = "COLLECTION"
)

// OrderStatus описывает статус отгрузки заказа. Статус всегда выводится из позиций заказа.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusPartial   OrderStatus = "Partial"
	OrderStatusCompleted OrderStatus = "Completed"
)

// AccountKind различает лицевые счета клиентов и поставщиков.
type AccountKind string

const (
	AccountCustomer AccountKind = "customer"
	AccountSupplier AccountKind = "supplier"
)

const (
	// CategorySaleInvoice задаёт категорию транзакции, создаваемой при отгрузке.
	CategorySaleInvoice = "Sale Invoice"
	// CategoryReturn задаёт категорию транзакции, создаваемой при возврате товара.
	CategoryReturn = "Return"
)

// DateLayout задаёт формат даты транзакций и заказов в документе.
const DateLayout = "2006-01-02"

// Product описывает позицию каталога.
type Product struct {
	ID            string          `json:"id"`
	EAN           string          `json:"ean"`
	Artikul       string          `json:"artikul"`
	Brand         string          `json:"marka"`
	BrandCode     string          `json:"markaKodu"`
	Model         string          `json:"modelAdi"`
	Color         string          `json:"renk"`
	ColorCode     string          `json:"renkKodu"`
	Size          string          `json:"beden"`
	Fabric        string          `json:"kumas"`
	FabricContent string          `json:"kumasIcerik"`
	PhotoCode     string          `json:"fotoKodu"`
	Gender        string          `json:"cinsiyet,omitempty"`
	Category      string          `json:"kategori,omitempty"`
	Stock         int64           `json:"stok"`
	CostPrice     decimal.Decimal `json:"maliyetFiyat"`
	FactoryPrice  decimal.Decimal `json:"fabrikaFiyat"`
	SalePrice     decimal.Decimal `json:"satisFiyat"`
	ImageURL      string          `json:"imageUrl,omitempty"`
}

// Customer описывает клиента. BalanceUSD вычисляется из транзакций и не редактируется напрямую.
type Customer struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Company      string          `json:"company"`
	Phone        string          `json:"phone"`
	Email        string          `json:"email,omitempty"`
	Birthday     string          `json:"birthday,omitempty"`
	Country      string          `json:"country,omitempty"`
	City         string          `json:"city,omitempty"`
	Address      string          `json:"address,omitempty"`
	CargoCompany string          `json:"cargoCompany,omitempty"`
	CargoCustNo  string          `json:"cargoCustNo,omitempty"`
	BalanceUSD   decimal.Decimal `json:"balanceUsd"`
}

// Supplier описывает поставщика. BalanceUSD вычисляется из транзакций.
type Supplier struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Category   string          `json:"category"`
	Phone      string          `json:"phone,omitempty"`
	BalanceUSD decimal.Decimal `json:"balanceUsd"`
}

// OrderItem описывает строку заказа. ShippedQty не убывает и не превышает OrderedQty.
type OrderItem struct {
	ProductID  string          `json:"productId"`
	OrderedQty int64           `json:"orderedQty"`
	ShippedQty int64           `json:"shippedQty"`
	Price      decimal.Decimal `json:"price"`
}

// Remaining возвращает неотгруженное количество по строке.
func (i OrderItem) Remaining() int64 {
	return i.OrderedQty - i.ShippedQty
}

// Order описывает заказ клиента.
type Order struct {
	ID         string      `json:"id"`
	CustomerID string      `json:"customerId"`
	Date       string      `json:"date"`
	Status     OrderStatus `json:"status"`
	Items      []OrderItem `json:"items"`
	Note       string      `json:"note,omitempty"`
}

// Transaction описывает финансовую операцию по одному лицевому счёту.
type Transaction struct {
	ID           string          `json:"id"`
	Date         string          `json:"date"`
	Type         TransactionType `json:"type"`
	Category     string          `json:"category"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     Currency        `json:"currency"`
	ExchangeRate decimal.Decimal `json:"exchangeRate"`
	AmountUSD    decimal.Decimal `json:"amountUsd"`
	CustomerID   string          `json:"customerId,omitempty"`
	SupplierID   string          `json:"supplierId,omitempty"`
}

// Session содержит локальные данные сеанса, которые не сохраняются в хранилище.
type Session struct {
	Operator string
	Language string
}

// AppState объединяет все сущности в агрегат, сохраняемый целиком как один документ.
type AppState struct {
	Products     []Product     `json:"products"`
	Customers    []Customer    `json:"customers"`
	Suppliers    []Supplier    `json:"suppliers"`
	Orders       []Order       `json:"orders"`
	Transactions []Transaction `json:"transactions"`

	Session Session `json:"-"`
}

// FindOrder возвращает индекс заказа или -1.
func (s AppState) FindOrder(id string) int {
	for i := range s.Orders {
		if s.Orders[i].ID == id {
			return i
		}
	}
	return -1
}

// FindProduct возвращает индекс товара или -1.
func (s AppState) FindProduct(id string) int {
	for i := range s.Products {
		if s.Products[i].ID == id {
			return i
		}
	}
	return -1
}

// FindCustomer возвращает индекс клиента или -1.
func (s AppState) FindCustomer(id string) int {
	for i := range s.Customers {
		if s.Customers[i].ID == id {
			return i
		}
	}
	return -1
}

// FindSupplier возвращает индекс поставщика или -1.
func (s AppState) FindSupplier(id string) int {
	for i := range s.Suppliers {
		if s.Suppliers[i].ID == id {
			return i
		}
	}
	return -1
}

// FindTransaction возвращает индекс транзакции или -1.
func (s AppState) FindTransaction(id string) int {
	for i := range s.Transactions {
		if s.Transactions[i].ID == id {
			return i
		}
	}
	return -1
}
