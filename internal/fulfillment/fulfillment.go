// Package fulfillment реализует отгрузку заказов частями и обработку возвратов.
//
// Все функции чистые: они принимают агрегат и возвращают новый, не изменяя срезы входного значения.
package fulfillment

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/textile-erp/internal/model"
)

var (
	// ErrOrderNotFound возвращается при отгрузке по неизвестному заказу. Агрегат не изменяется.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOverShipment возвращается, если отгрузка превышает остаток по строке заказа.
	ErrOverShipment = errors.New("shipment exceeds remaining quantity")
	// ErrEmptyShipment возвращается, если в отгрузке нет ни одной применимой строки.
	ErrEmptyShipment = errors.New("nothing to ship")
	// ErrInvalidQuantity возвращается для неположительного количества.
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrQuantityBelowShipped возвращается при попытке уменьшить заказ ниже отгруженного.
	ErrQuantityBelowShipped = errors.New("ordered quantity below shipped quantity")
)

// ShipmentLine задаёт количество товара, отгружаемое по заказу.
type ShipmentLine struct {
	ProductID string `json:"productId"`
	Qty       int64  `json:"qty"`
}

// IDFunc генерирует идентификатор новой транзакции.
type IDFunc func() string

// DeriveStatus вычисляет статус заказа по его строкам.
func DeriveStatus(items []model.OrderItem) model.OrderStatus {
	if len(items) == 0 {
		return model.OrderStatusPending
	}

	allCompleted := true
	anyShipped := false
	for _, it := range items {
		if it.ShippedQty < it.OrderedQty {
			allCompleted = false
		}
		if it.ShippedQty > 0 {
			anyShipped = true
		}
	}

	switch {
	case allCompleted:
		return model.OrderStatusCompleted
	case anyShipped:
		return model.OrderStatusPartial
	default:
		return model.OrderStatusPending
	}
}

// ApplyShipment отгружает строки заказа, списывает остатки товаров и создаёт транзакцию продажи.
//
// Сумма totalAmount принимается как есть и не пересчитывается по строкам.
// Если товар встречается в заказе несколькими строками, отгрузка применяется к каждой из них,
// а остаток товара списывается один раз.
// При любой ошибке возвращается исходный агрегат.
func ApplyShipment(
	state model.AppState,
	orderID string,
	lines []ShipmentLine,
	totalAmount decimal.Decimal,
	now time.Time,
	newID IDFunc,
) (model.AppState, model.Transaction, error) {
	idx := state.FindOrder(orderID)
	if idx == -1 {
		return state, model.Transaction{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	order := state.Orders[idx]

	shipped := make(map[string]int64, len(lines))
	for _, l := range lines {
		if l.Qty <= 0 {
			continue
		}
		shipped[l.ProductID] += l.Qty
	}

	items := make([]model.OrderItem, len(order.Items))
	copy(items, order.Items)

	applied := make(map[string]int64, len(shipped))
	for i, it := range items {
		qty, ok := shipped[it.ProductID]
		if !ok {
			continue
		}
		if qty > it.Remaining() {
			return state, model.Transaction{}, fmt.Errorf("%w: product %s, remaining %d, requested %d",
				ErrOverShipment, it.ProductID, it.Remaining(), qty)
		}
		items[i].ShippedQty += qty
		applied[it.ProductID] = qty
	}

	if len(applied) == 0 {
		return state, model.Transaction{}, ErrEmptyShipment
	}

	order.Items = items
	order.Status = DeriveStatus(items)

	orders := make([]model.Order, len(state.Orders))
	copy(orders, state.Orders)
	orders[idx] = order

	products := make([]model.Product, len(state.Products))
	copy(products, state.Products)
	for i := range products {
		if qty, ok := applied[products[i].ID]; ok {
			products[i].Stock -= qty
		}
	}

	tx := model.Transaction{
		ID:           newID(),
		Date:         now.Format(model.DateLayout),
		Type:         model.TransactionIncome,
		Category:     model.CategorySaleInvoice,
		Description:  fmt.Sprintf("Invoice for Order #%s", order.ID),
		Amount:       totalAmount,
		Currency:     model.CurrencyUSD,
		ExchangeRate: decimal.NewFromInt(1),
		AmountUSD:    totalAmount,
		CustomerID:   order.CustomerID,
	}

	state.Orders = orders
	state.Products = products
	state.Transactions = appendTransaction(state.Transactions, tx)

	return state, tx, nil
}

// ApplyReturn возвращает товар на склад и создаёт компенсирующую транзакцию расхода по клиенту.
// Возврат не связывается с исходным заказом.
func ApplyReturn(
	state model.AppState,
	customerID, productID string,
	qty int64,
	unitPrice decimal.Decimal,
	now time.Time,
	newID IDFunc,
) (model.AppState, model.Transaction, error) {
	if qty <= 0 {
		return state, model.Transaction{}, ErrInvalidQuantity
	}

	products := make([]model.Product, len(state.Products))
	copy(products, state.Products)
	if i := state.FindProduct(productID); i != -1 {
		products[i].Stock += qty
	}

	amount := unitPrice.Mul(decimal.NewFromInt(qty))
	tx := model.Transaction{
		ID:           newID(),
		Date:         now.Format(model.DateLayout),
		Type:         model.TransactionExpense,
		Category:     model.CategoryReturn,
		Description:  fmt.Sprintf("Return Product ID: %s x %d", productID, qty),
		Amount:       amount,
		Currency:     model.CurrencyUSD,
		ExchangeRate: decimal.NewFromInt(1),
		AmountUSD:    amount,
		CustomerID:   customerID,
	}

	state.Products = products
	state.Transactions = appendTransaction(state.Transactions, tx)

	return state, tx, nil
}

func appendTransaction(txs []model.Transaction, tx model.Transaction) []model.Transaction {
	out := make([]model.Transaction, 0, len(txs)+1)
	out = append(out, txs...)
	return append(out, tx)
}
