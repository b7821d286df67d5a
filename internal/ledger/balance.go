package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/textile-erp/internal/model"
)

// Totals сворачивает транзакции в балансы по счетам.
func Totals(txs []model.Transaction) (customers, suppliers map[string]decimal.Decimal) {
	customers = make(map[string]decimal.Decimal)
	suppliers = make(map[string]decimal.Decimal)

	for _, tx := range txs {
		kind, id, amount := Impact(tx)
		switch kind {
		case model.AccountCustomer:
			customers[id] = customers[id].Add(amount)
		case model.AccountSupplier:
			suppliers[id] = suppliers[id].Add(amount)
		}
	}

	return customers, suppliers
}

// RecomputeBalances пересчитывает балансы всех счетов полной свёрткой транзакций.
//
// Если ни один баланс не изменился, возвращаются исходные срезы и changed=false.
// Транзакции, ссылающиеся на несуществующие счета, не являются ошибкой и просто не отображаются.
func RecomputeBalances(
	customers []model.Customer,
	suppliers []model.Supplier,
	txs []model.Transaction,
) ([]model.Customer, []model.Supplier, bool) {
	custTotals, suppTotals := Totals(txs)

	newCustomers, custChanged := applyCustomerTotals(customers, custTotals)
	newSuppliers, suppChanged := applySupplierTotals(suppliers, suppTotals)

	return newCustomers, newSuppliers, custChanged || suppChanged
}

func applyCustomerTotals(customers []model.Customer, totals map[string]decimal.Decimal) ([]model.Customer, bool) {
	var out []model.Customer
	for i, c := range customers {
		balance := totals[c.ID]
		if c.BalanceUSD.Equal(balance) {
			continue
		}
		if out == nil {
			out = make([]model.Customer, len(customers))
			copy(out, customers)
		}
		out[i].BalanceUSD = balance
	}
	if out == nil {
		return customers, false
	}
	return out, true
}

func applySupplierTotals(suppliers []model.Supplier, totals map[string]decimal.Decimal) ([]model.Supplier, bool) {
	var out []model.Supplier
	for i, s := range suppliers {
		balance := totals[s.ID]
		if s.BalanceUSD.Equal(balance) {
			continue
		}
		if out == nil {
			out = make([]model.Supplier, len(suppliers))
			copy(out, suppliers)
		}
		out[i].BalanceUSD = balance
	}
	if out == nil {
		return suppliers, false
	}
	return out, true
}

// Recompute применяет RecomputeBalances к агрегату.
func Recompute(state model.AppState) (model.AppState, bool) {
	customers, suppliers, changed := RecomputeBalances(state.Customers, state.Suppliers, state.Transactions)
	if !changed {
		return state, false
	}
	state.Customers = customers
	state.Suppliers = suppliers
	return state, true
}
