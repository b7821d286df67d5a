package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/textile-erp/internal/model"
)

var (
	// ErrInvalidExchangeRate возвращается, если курс RUB не положителен.
	ErrInvalidExchangeRate = errors.New("exchange rate must be positive")
	// ErrUnknownCurrency возвращается для валют, отличных от USD и RUB.
	ErrUnknownCurrency = errors.New("unknown currency")
	// ErrUnknownTransactionType возвращается для неизвестного типа транзакции.
	ErrUnknownTransactionType = errors.New("unknown transaction type")
	// ErrAccountReference возвращается, если транзакция не ссылается ровно на один счёт.
	ErrAccountReference = errors.New("transaction must reference exactly one account")
	// ErrNonPositiveAmount возвращается для нулевой или отрицательной суммы.
	ErrNonPositiveAmount = errors.New("amount must be positive")
)

// ConvertToUSD пересчитывает сумму в USD и возвращает нормализованный курс.
// Для USD курс всегда равен 1, для RUB сумма делится на курс.
func ConvertToUSD(amount decimal.Decimal, currency model.Currency, rate decimal.Decimal) (usd, normalizedRate decimal.Decimal, err error) {
	switch currency {
	case model.CurrencyUSD:
		return amount, decimal.NewFromInt(1), nil
	case model.CurrencyRUB:
		if !rate.IsPositive() {
			return decimal.Zero, decimal.Zero, ErrInvalidExchangeRate
		}
		return amount.Div(rate), rate, nil
	default:
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownCurrency, currency)
	}
}

// Prepare проверяет новую транзакцию кассовой операции и вычисляет AmountUSD.
func Prepare(tx model.Transaction) (model.Transaction, error) {
	switch tx.Type {
	case model.TransactionIncome, model.TransactionExpense, model.TransactionPayment, model.TransactionCollection:
	default:
		return tx, fmt.Errorf("%w: %q", ErrUnknownTransactionType, tx.Type)
	}

	if (tx.CustomerID == "") == (tx.SupplierID == "") {
		return tx, ErrAccountReference
	}

	if !tx.Amount.IsPositive() {
		return tx, ErrNonPositiveAmount
	}

	if tx.Currency == "" {
		tx.Currency = model.CurrencyUSD
	}

	usd, rate, err := ConvertToUSD(tx.Amount, tx.Currency, tx.ExchangeRate)
	if err != nil {
		return tx, err
	}
	tx.AmountUSD = usd
	tx.ExchangeRate = rate

	return tx, nil
}

// Correction описывает допустимую правку существующей транзакции.
type Correction struct {
	Description  string
	Amount       decimal.Decimal
	Currency     model.Currency
	ExchangeRate decimal.Decimal
}

// Edit применяет правку к транзакции: меняются только описание, сумма, валюта и курс,
// AmountUSD пересчитывается. Тип, дата и счёт остаются прежними.
func Edit(tx model.Transaction, c Correction) (model.Transaction, error) {
	if !c.Amount.IsPositive() {
		return tx, ErrNonPositiveAmount
	}

	currency := c.Currency
	if currency == "" {
		currency = tx.Currency
	}

	usd, rate, err := ConvertToUSD(c.Amount, currency, c.ExchangeRate)
	if err != nil {
		return tx, err
	}

	tx.Description = c.Description
	tx.Amount = c.Amount
	tx.Currency = currency
	tx.ExchangeRate = rate
	tx.AmountUSD = usd

	return tx, nil
}
