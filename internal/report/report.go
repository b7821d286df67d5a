// Package report строит сводные отчёты и показатели главной панели по агрегату.
package report

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/textile-erp/internal/model"
)

// Period описывает период отчёта.
type Period string

const (
	PeriodWeek  Period = "WEEK"
	PeriodMonth Period = "MONTH"
	PeriodYear  Period = "YEAR"
)

// ErrUnknownPeriod возвращается для неизвестного периода отчёта.
var ErrUnknownPeriod = errors.New("unknown report period")

const otherCategory = "Other"

// Since возвращает начало периода относительно now.
func (p Period) Since(now time.Time) (time.Time, error) {
	switch p {
	case PeriodWeek:
		return now.AddDate(0, 0, -7), nil
	case PeriodMonth:
		return now.AddDate(0, -1, 0), nil
	case PeriodYear:
		return now.AddDate(-1, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, p)
	}
}

// TrendPoint содержит поступления и расходы за один день.
type TrendPoint struct {
	Date    string          `json:"date"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// CategoryTotal содержит сумму расходов по категории.
type CategoryTotal struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

// Summary описывает сводный отчёт за период.
type Summary struct {
	Period             Period          `json:"period"`
	From               string          `json:"from"`
	TotalSales         decimal.Decimal `json:"totalSales"`
	TotalCollections   decimal.Decimal `json:"totalCollections"`
	TotalExpenses      decimal.Decimal `json:"totalExpenses"`
	TotalOrders        int             `json:"totalOrders"`
	Trend              []TrendPoint    `json:"trend"`
	ExpensesByCategory []CategoryTotal `json:"expensesByCategory"`
}

// Summarize строит отчёт по транзакциям и заказам, датированным не раньше начала периода.
func Summarize(state model.AppState, period Period, now time.Time) (Summary, error) {
	since, err := period.Since(now)
	if err != nil {
		return Summary{}, err
	}
	from := since.Format(model.DateLayout)

	s := Summary{
		Period:             period,
		From:               from,
		TotalSales:         decimal.Zero,
		TotalCollections:   decimal.Zero,
		TotalExpenses:      decimal.Zero,
		Trend:              []TrendPoint{},
		ExpensesByCategory: []CategoryTotal{},
	}

	trend := make(map[string]*TrendPoint)
	categories := make(map[string]decimal.Decimal)

	for _, tx := range state.Transactions {
		if tx.Date < from {
			continue
		}

		switch tx.Type {
		case model.TransactionIncome:
			if tx.Category == model.CategorySaleInvoice {
				s.TotalSales = s.TotalSales.Add(tx.AmountUSD)
			}
		case model.TransactionCollection:
			s.TotalCollections = s.TotalCollections.Add(tx.AmountUSD)
		case model.TransactionExpense, model.TransactionPayment:
			s.TotalExpenses = s.TotalExpenses.Add(tx.AmountUSD)
			cat := tx.Category
			if cat == "" {
				cat = otherCategory
			}
			categories[cat] = categories[cat].Add(tx.AmountUSD)
		}

		p, ok := trend[tx.Date]
		if !ok {
			p = &TrendPoint{Date: tx.Date, Income: decimal.Zero, Expense: decimal.Zero}
			trend[tx.Date] = p
		}
		if tx.Type == model.TransactionIncome || tx.Type == model.TransactionCollection {
			p.Income = p.Income.Add(tx.AmountUSD)
		} else {
			p.Expense = p.Expense.Add(tx.AmountUSD)
		}
	}

	for _, o := range state.Orders {
		if o.Date >= from {
			s.TotalOrders++
		}
	}

	for _, p := range trend {
		s.Trend = append(s.Trend, *p)
	}
	sort.Slice(s.Trend, func(i, j int) bool { return s.Trend[i].Date < s.Trend[j].Date })

	for name, v := range categories {
		s.ExpensesByCategory = append(s.ExpensesByCategory, CategoryTotal{Name: name, Value: v})
	}
	sort.Slice(s.ExpensesByCategory, func(i, j int) bool {
		return s.ExpensesByCategory[i].Name < s.ExpensesByCategory[j].Name
	})

	return s, nil
}
