package stats

import (
	"time"

	"ledger/internal/core"
)

// Period selects a calendar year, or a single month of it when Month is 1-12.
// Month 0 means the whole year.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month,omitempty"`
}

// MonthPeriod is a shorthand for Period{Year: year, Month: month}.
func MonthPeriod(year, month int) Period {
	return Period{Year: year, Month: month}
}

// YearPeriod is a shorthand for Period{Year: year}.
func YearPeriod(year int) Period {
	return Period{Year: year}
}

// IsMonth reports whether the period targets a single month.
func (p Period) IsMonth() bool {
	return p.Month >= 1 && p.Month <= 12
}

// Contains reports whether t (already in the caller's location) falls in p.
func (p Period) Contains(t time.Time) bool {
	if t.Year() != p.Year {
		return false
	}
	return !p.IsMonth() || int(t.Month()) == p.Month
}

// TypeFilter restricts a selection to one transaction type. A nil filter
// matches every bill.
func TypeFilter(t core.TransactionType) *core.TransactionType {
	return &t
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}

// FilterPeriod returns the bills inside p whose type matches typ, keeping the
// input order.
func FilterPeriod(bills []core.Bill, p Period, typ *core.TransactionType, loc *time.Location) []core.Bill {
	loc = location(loc)
	out := make([]core.Bill, 0, len(bills))
	for _, b := range bills {
		if typ != nil && b.Type != *typ {
			continue
		}
		if !p.Contains(b.Time(loc)) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// FilterType returns the bills of type typ, keeping the input order.
func FilterType(bills []core.Bill, typ core.TransactionType) []core.Bill {
	out := make([]core.Bill, 0, len(bills))
	for _, b := range bills {
		if b.Type == typ {
			out = append(out, b)
		}
	}
	return out
}

// Total sums the amounts of bills regardless of type.
func Total(bills []core.Bill) core.Money {
	var total core.Money
	for _, b := range bills {
		total = total.Add(b.Amount)
	}
	return total
}
