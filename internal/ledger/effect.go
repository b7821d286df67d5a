// Package ledger вычисляет балансы лицевых счетов клиентов и поставщиков из списка транзакций.
//
// Баланс никогда не изменяется напрямую: он всегда равен свёртке влияний всех транзакций,
// ссылающихся на счёт. Положительный баланс означает долг счёта перед компанией,
// отрицательный означает долг компании перед счётом.
package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/textile-erp/internal/model"
)

// Sign описывает знак влияния транзакции на баланс счёта.
type Sign int

const (
	Decrease Sign = -1
	None     Sign = 0
	Increase Sign = 1
)

// Effect возвращает знак влияния транзакции типа t на счёт вида kind.
// ok=false означает, что пара не классифицирована; её влияние считается нулевым.
func Effect(kind model.AccountKind, t model.TransactionType) (sign Sign, ok bool) {
	switch kind {
	case model.AccountCustomer:
		switch t {
		case model.TransactionIncome:
			return Increase, true
		case model.TransactionCollection, model.TransactionExpense:
			return Decrease, true
		case model.TransactionPayment:
			return None, true
		}
	case model.AccountSupplier:
		switch t {
		case model.TransactionExpense:
			return Increase, true
		case model.TransactionPayment, model.TransactionCollection:
			return Decrease, true
		case model.TransactionIncome:
			return None, true
		}
	}
	return None, false
}

// Target возвращает счёт, к которому относится транзакция.
// Если заполнены обе ссылки, транзакция относится к клиенту.
func Target(tx model.Transaction) (model.AccountKind, string, bool) {
	switch {
	case tx.CustomerID != "":
		return model.AccountCustomer, tx.CustomerID, true
	case tx.SupplierID != "":
		return model.AccountSupplier, tx.SupplierID, true
	default:
		return "", "", false
	}
}

// Impact возвращает подписанное влияние транзакции в USD на её счёт.
func Impact(tx model.Transaction) (model.AccountKind, string, decimal.Decimal) {
	kind, id, ok := Target(tx)
	if !ok {
		return "", "", decimal.Zero
	}
	sign, _ := Effect(kind, tx.Type)
	return kind, id, signed(sign, tx.AmountUSD)
}

// Unclassified возвращает транзакции, для пары «счёт, тип» которых нет правила влияния.
// Такие транзакции не меняют баланс.
func Unclassified(txs []model.Transaction) []model.Transaction {
	var out []model.Transaction
	for _, tx := range txs {
		kind, _, ok := Target(tx)
		if !ok {
			continue
		}
		if _, known := Effect(kind, tx.Type); !known {
			out = append(out, tx)
		}
	}
	return out
}

func signed(sign Sign, amount decimal.Decimal) decimal.Decimal {
	switch sign {
	case Increase:
		return amount
	case Decrease:
		return amount.Neg()
	default:
		return decimal.Zero
	}
}
