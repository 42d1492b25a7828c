package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ledger/internal/cli"
	"ledger/internal/core"
	"ledger/internal/stats"
)

// periodFlags is the --year/--month pair shared by the reporting commands.
type periodFlags struct {
	year  int
	month int
}

func (f *periodFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.year, "year", 0, "calendar year (default: current)")
	cmd.Flags().IntVar(&f.month, "month", 0, "calendar month 1-12 (default: current month, unless --year is given)")
}

// resolve turns the flags into a period. No flags yields def; --year alone a
// whole year; --month alone that month of the current year.
func (f periodFlags) resolve(def stats.Period) (stats.Period, error) {
	if f.month < 0 || f.month > 12 {
		return stats.Period{}, fmt.Errorf("invalid month %d: must be between 1 and 12", f.month)
	}
	if f.year < 0 || f.year > 9999 {
		return stats.Period{}, fmt.Errorf("invalid year %d", f.year)
	}
	switch {
	case f.year == 0 && f.month == 0:
		return def, nil
	case f.month == 0:
		return stats.YearPeriod(f.year), nil
	case f.year == 0:
		if def.Year == 0 {
			return stats.Period{}, fmt.Errorf("--month requires --year")
		}
		return stats.MonthPeriod(def.Year, f.month), nil
	default:
		return stats.MonthPeriod(f.year, f.month), nil
	}
}

var dateLayouts = []string{"2006-01-02 15:04", "2006-01-02"}

// parseDate reads --at in loc. Empty means "now", returned as 0.
func parseDate(s string, loc *time.Location) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UnixMilli(), nil
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UnixMilli(), nil
	}
	return 0, fmt.Errorf("invalid date %q: use YYYY-MM-DD, \"YYYY-MM-DD HH:MM\" or RFC 3339", s)
}

// confirm asks a yes/no question and defaults to no.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func billRows(bills []core.Bill, loc *time.Location) [][]string {
	rows := make([][]string, 0, len(bills))
	for _, b := range bills {
		rows = append(rows, []string{
			fmt.Sprint(b.ID),
			b.Time(loc).Format("2006-01-02 15:04"),
			b.Type.String(),
			b.Category,
			cli.FormatAmount(b.Type, b.Amount),
			b.Remark,
		})
	}
	return rows
}

var billHeaders = []string{"ID", "Date", "Type", "Category", "Amount", "Remark"}

func periodLabel(p stats.Period) string {
	switch {
	case p.Year == 0:
		return "all time"
	case p.IsMonth():
		return fmt.Sprintf("%d-%02d", p.Year, p.Month)
	default:
		return fmt.Sprint(p.Year)
	}
}
