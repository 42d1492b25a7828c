package stats

import (
	"strconv"
	"time"

	"ledger/internal/core"
)

type SeriesMode string

const (
	ModeMonth SeriesMode = "month"
	ModeYear  SeriesMode = "year"
)

// Series is a dense, zero-filled sequence of per-bucket sums. In month mode
// Values[i] is day i+1; in year mode Values[i] is month i+1.
type Series struct {
	Mode   SeriesMode   `json:"mode"`
	Year   int          `json:"year"`
	Month  int          `json:"month,omitempty"`
	Labels []string     `json:"labels"`
	Values []core.Money `json:"values"`
}

// Len is the number of buckets.
func (s Series) Len() int {
	return len(s.Values)
}

// Total sums every bucket.
func (s Series) Total() core.Money {
	var total core.Money
	for _, v := range s.Values {
		total = total.Add(v)
	}
	return total
}

// DaysIn returns the number of days of month in year, leap years included.
func DaysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthSeries buckets the matching bills of year/month by day of month.
// The result always has DaysIn(year, month) entries.
func MonthSeries(bills []core.Bill, year, month int, typ *core.TransactionType, loc *time.Location) Series {
	loc = location(loc)
	n := DaysIn(year, month)
	s := Series{
		Mode:   ModeMonth,
		Year:   year,
		Month:  month,
		Labels: make([]string, n),
		Values: make([]core.Money, n),
	}
	for i := range s.Labels {
		s.Labels[i] = strconv.Itoa(i+1) + "日"
	}
	for _, b := range FilterPeriod(bills, MonthPeriod(year, month), typ, loc) {
		d := b.Time(loc).Day() - 1
		s.Values[d] = s.Values[d].Add(b.Amount)
	}
	return s
}

// YearSeries buckets the matching bills of year by calendar month.
// The result always has 12 entries.
func YearSeries(bills []core.Bill, year int, typ *core.TransactionType, loc *time.Location) Series {
	loc = location(loc)
	s := Series{
		Mode:   ModeYear,
		Year:   year,
		Labels: make([]string, 12),
		Values: make([]core.Money, 12),
	}
	for i := range s.Labels {
		s.Labels[i] = strconv.Itoa(i+1) + "月"
	}
	for _, b := range FilterPeriod(bills, YearPeriod(year), typ, loc) {
		m := int(b.Time(loc).Month()) - 1
		s.Values[m] = s.Values[m].Add(b.Amount)
	}
	return s
}

// TimeSeries picks month mode when p targets a month, year mode otherwise.
func TimeSeries(bills []core.Bill, p Period, typ *core.TransactionType, loc *time.Location) Series {
	if p.IsMonth() {
		return MonthSeries(bills, p.Year, p.Month, typ, loc)
	}
	return YearSeries(bills, p.Year, typ, loc)
}
