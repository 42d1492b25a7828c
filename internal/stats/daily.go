package stats

import (
	"fmt"
	"sort"
	"time"

	"ledger/internal/core"
)

// DayGroup collects the bills of one local calendar day.
type DayGroup struct {
	// Key is "Y/M/D" without zero padding, e.g. "2024/3/5".
	Key     string      `json:"key"`
	Date    string      `json:"date"`
	Income  core.Money  `json:"income"`
	Expense core.Money  `json:"expense"`
	Bills   []core.Bill `json:"bills"`

	day time.Time
}

// Day returns local midnight of the group's day.
func (g DayGroup) Day() time.Time {
	return g.day
}

// DayKey formats t as the "Y/M/D" grouping key.
func DayKey(t time.Time) string {
	return fmt.Sprintf("%d/%d/%d", t.Year(), int(t.Month()), t.Day())
}

// GroupByDay groups bills by local calendar day. Groups are ordered newest
// day first; inside a group bills are ordered by timestamp descending, with
// ties broken by id descending.
func GroupByDay(bills []core.Bill, loc *time.Location) []DayGroup {
	loc = location(loc)
	index := make(map[string]int)
	groups := []DayGroup{}
	for _, b := range bills {
		t := b.Time(loc)
		key := DayKey(t)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
			groups = append(groups, DayGroup{
				Key:  key,
				Date: midnight.Format("2006-01-02"),
				day:  midnight,
			})
		}
		g := &groups[i]
		g.Bills = append(g.Bills, b)
		switch b.Type {
		case core.Income:
			g.Income = g.Income.Add(b.Amount)
		case core.Expense:
			g.Expense = g.Expense.Add(b.Amount)
		}
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].day.After(groups[j].day)
	})
	for i := range groups {
		SortNewestFirst(groups[i].Bills)
	}
	return groups
}

// SortNewestFirst orders bills in place by timestamp descending, then id
// descending.
func SortNewestFirst(bills []core.Bill) {
	sort.SliceStable(bills, func(i, j int) bool {
		if bills[i].Timestamp != bills[j].Timestamp {
			return bills[i].Timestamp > bills[j].Timestamp
		}
		return bills[i].ID > bills[j].ID
	})
}

// NewestFirst is SortNewestFirst on a copy.
func NewestFirst(bills []core.Bill) []core.Bill {
	out := make([]core.Bill, len(bills))
	copy(out, bills)
	SortNewestFirst(out)
	return out
}
