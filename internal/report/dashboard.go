package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/textile-erp/internal/model"
)

// BrandStock содержит остаток товаров бренда.
type BrandStock struct {
	Brand string `json:"brand"`
	Stock int64  `json:"stock"`
}

// DashboardData содержит показатели главной панели.
type DashboardData struct {
	TotalStock       int64           `json:"totalStock"`
	TotalReceivables decimal.Decimal `json:"totalReceivables"`
	TotalCredit      decimal.Decimal `json:"totalCredit"`
	TotalPayables    decimal.Decimal `json:"totalPayables"`
	TotalOrders      int             `json:"totalOrders"`
	OpenOrders       int             `json:"openOrders"`
	StockByBrand     []BrandStock    `json:"stockByBrand"`
}

// Dashboard считает показатели главной панели. Дебиторская задолженность равна сумме
// положительных балансов клиентов, кредит клиентов равен модулю суммы отрицательных.
func Dashboard(state model.AppState) DashboardData {
	d := DashboardData{
		TotalReceivables: decimal.Zero,
		TotalCredit:      decimal.Zero,
		TotalPayables:    decimal.Zero,
		TotalOrders:      len(state.Orders),
		StockByBrand:     []BrandStock{},
	}

	brands := make(map[string]int64)
	for _, p := range state.Products {
		d.TotalStock += p.Stock
		brands[p.Brand] += p.Stock
	}
	for brand, stock := range brands {
		d.StockByBrand = append(d.StockByBrand, BrandStock{Brand: brand, Stock: stock})
	}
	sort.Slice(d.StockByBrand, func(i, j int) bool { return d.StockByBrand[i].Brand < d.StockByBrand[j].Brand })

	for _, c := range state.Customers {
		switch {
		case c.BalanceUSD.IsPositive():
			d.TotalReceivables = d.TotalReceivables.Add(c.BalanceUSD)
		case c.BalanceUSD.IsNegative():
			d.TotalCredit = d.TotalCredit.Add(c.BalanceUSD.Abs())
		}
	}

	for _, s := range state.Suppliers {
		if s.BalanceUSD.IsPositive() {
			d.TotalPayables = d.TotalPayables.Add(s.BalanceUSD)
		}
	}

	for _, o := range state.Orders {
		if o.Status != model.OrderStatusCompleted {
			d.OpenOrders++
		}
	}

	return d
}
