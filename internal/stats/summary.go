package stats

import (
	"time"

	"ledger/internal/core"
)

// Summary holds the income/expense totals of a period. Balance may be
// negative.
type Summary struct {
	Period  Period     `json:"period"`
	Income  core.Money `json:"income"`
	Expense core.Money `json:"expense"`
	Balance core.Money `json:"balance"`
}

// PeriodSummary totals income and expense over p.
func PeriodSummary(bills []core.Bill, p Period, loc *time.Location) Summary {
	s := Summary{Period: p}
	for _, b := range FilterPeriod(bills, p, nil, loc) {
		switch b.Type {
		case core.Income:
			s.Income = s.Income.Add(b.Amount)
		case core.Expense:
			s.Expense = s.Expense.Add(b.Amount)
		}
	}
	s.Balance = s.Income.Sub(s.Expense)
	return s
}

// MonthlySummary is PeriodSummary for a single month.
func MonthlySummary(bills []core.Bill, year, month int, loc *time.Location) Summary {
	return PeriodSummary(bills, MonthPeriod(year, month), loc)
}
