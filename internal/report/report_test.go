package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/textile-erp/internal/model"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestSummarize(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	state := model.AppState{
		Transactions: []model.Transaction{
			{Date: "2024-06-14", Type: model.TransactionIncome, Category: model.CategorySaleInvoice, AmountUSD: d(100)},
			{Date: "2024-06-14", Type: model.TransactionIncome, Category: "Manual", AmountUSD: d(7)},
			{Date: "2024-06-10", Type: model.TransactionCollection, AmountUSD: d(40)},
			{Date: "2024-06-10", Type: model.TransactionExpense, Category: "Rent", AmountUSD: d(30)},
			{Date: "2024-06-11", Type: model.TransactionPayment, AmountUSD: d(5)},
			{Date: "2024-01-01", Type: model.TransactionIncome, Category: model.CategorySaleInvoice, AmountUSD: d(1000)},
		},
		Orders: []model.Order{
			{ID: "1", Date: "2024-06-01"},
			{ID: "2", Date: "2023-06-01"},
		},
	}

	s, err := Summarize(state, PeriodMonth, now)
	require.NoError(t, err)

	assert.Equal(t, "2024-05-15", s.From)
	assert.True(t, d(100).Equal(s.TotalSales))
	assert.True(t, d(40).Equal(s.TotalCollections))
	assert.True(t, d(35).Equal(s.TotalExpenses))
	assert.Equal(t, 1, s.TotalOrders)

	require.Len(t, s.Trend, 3)
	assert.Equal(t, "2024-06-10", s.Trend[0].Date)
	assert.True(t, d(40).Equal(s.Trend[0].Income))
	assert.True(t, d(30).Equal(s.Trend[0].Expense))
	assert.True(t, d(107).Equal(s.Trend[2].Income))

	require.Len(t, s.ExpensesByCategory, 2)
	assert.Equal(t, otherCategory, s.ExpensesByCategory[0].Name)
	assert.Equal(t, "Rent", s.ExpensesByCategory[1].Name)
}

func TestSummarize_UnknownPeriod(t *testing.T) {
	_, err := Summarize(model.AppState{}, Period("DECADE"), time.Now())
	require.ErrorIs(t, err, ErrUnknownPeriod)
}

func TestDashboard(t *testing.T) {
	state := model.AppState{
		Products: []model.Product{
			{Brand: "VIENETTA", Stock: 150},
			{Brand: "VIENETTA", Stock: 20},
			{Brand: "ELITOL", Stock: -3},
		},
		Customers: []model.Customer{
			{ID: "c1", BalanceUSD: d(100)},
			{ID: "c2", BalanceUSD: d(-25)},
			{ID: "c3"},
		},
		Suppliers: []model.Supplier{
			{ID: "s1", BalanceUSD: d(60)},
			{ID: "s2", BalanceUSD: d(-10)},
		},
		Orders: []model.Order{
			{ID: "1", Status: model.OrderStatusCompleted},
			{ID: "2", Status: model.OrderStatusPartial},
		},
	}

	got := Dashboard(state)

	assert.Equal(t, int64(167), got.TotalStock)
	assert.True(t, d(100).Equal(got.TotalReceivables))
	assert.True(t, d(25).Equal(got.TotalCredit))
	assert.True(t, d(60).Equal(got.TotalPayables))
	assert.Equal(t, 2, got.TotalOrders)
	assert.Equal(t, 1, got.OpenOrders)
	assert.Equal(t, []BrandStock{{Brand: "ELITOL", Stock: -3}, {Brand: "VIENETTA", Stock: 170}}, got.StockByBrand)
}
