package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/textile-erp/internal/model"
)

// StatementLine описывает строку выписки по счёту с нарастающим итогом.
type StatementLine struct {
	Transaction model.Transaction `json:"transaction"`
	Debit       decimal.Decimal   `json:"debit"`
	Credit      decimal.Decimal   `json:"credit"`
	Balance     decimal.Decimal   `json:"balance"`
}

// Statement строит выписку по счёту. Транзакции упорядочиваются по строке даты
// стабильной сортировкой, поэтому операции одного дня сохраняют порядок списка.
func Statement(kind model.AccountKind, accountID string, txs []model.Transaction) []StatementLine {
	var own []model.Transaction
	for _, tx := range txs {
		k, id, ok := Target(tx)
		if ok && k == kind && id == accountID {
			own = append(own, tx)
		}
	}

	sort.SliceStable(own, func(i, j int) bool {
		return own[i].Date < own[j].Date
	})

	lines := make([]StatementLine, 0, len(own))
	running := decimal.Zero
	for _, tx := range own {
		line := StatementLine{
			Transaction: tx,
			Debit:       decimal.Zero,
			Credit:      decimal.Zero,
		}

		sign, _ := Effect(kind, tx.Type)
		switch sign {
		case Increase:
			line.Debit = tx.AmountUSD
		case Decrease:
			line.Credit = tx.AmountUSD
		}

		running = running.Add(line.Debit).Sub(line.Credit)
		line.Balance = running
		lines = append(lines, line)
	}

	return lines
}
