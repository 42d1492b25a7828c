package stats

import (
	"sort"
	"time"

	"ledger/internal/core"
)

// CategorySum is the total amount of one category within a selection.
type CategorySum struct {
	Category string     `json:"category"`
	Icon     core.Icon  `json:"icon"`
	Total    core.Money `json:"total"`
}

// CategorySums groups bills by exact category string and sums each group.
// Groups come back in first-seen order; use SortByTotalDesc for a stable
// display order.
func CategorySums(bills []core.Bill) []CategorySum {
	index := make(map[string]int)
	var out []CategorySum
	for _, b := range bills {
		i, ok := index[b.Category]
		if !ok {
			i = len(out)
			index[b.Category] = i
			out = append(out, CategorySum{Category: b.Category, Icon: core.IconFor(b.Category)})
		}
		out[i].Total = out[i].Total.Add(b.Amount)
	}
	if out == nil {
		out = []CategorySum{}
	}
	return out
}

// SortByTotalDesc orders sums by total descending, then category ascending.
// It sorts a copy.
func SortByTotalDesc(sums []CategorySum) []CategorySum {
	out := make([]CategorySum, len(sums))
	copy(out, sums)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Total.Cents != out[j].Total.Cents {
			return out[i].Total.Cents > out[j].Total.Cents
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// CategoryBreakdown filters by period and type, sums by category and sorts
// by total descending. This is what the pie chart consumes.
func CategoryBreakdown(bills []core.Bill, p Period, typ core.TransactionType, loc *time.Location) []CategorySum {
	return SortByTotalDesc(CategorySums(FilterPeriod(bills, p, &typ, loc)))
}
