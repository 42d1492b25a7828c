package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ledger/internal/cli"
	"ledger/internal/core"
	"ledger/internal/services"
	"ledger/internal/stats"
)

func summaryCmd() *cobra.Command {
	var period periodFlags
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show income, expense and balance of a month or year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withLedger(cmd, func(ctx context.Context, svc *services.LedgerService) error {
				return runSummary(ctx, svc, cmd.OutOrStdout(), period)
			})
		},
	}
	period.register(cmd)
	return cmd
}

func runSummary(ctx context.Context, svc *services.LedgerService, out io.Writer, period periodFlags) error {
	p, err := period.resolve(svc.CurrentPeriod())
	if err != nil {
		return err
	}
	s, err := svc.Summary(ctx, p)
	if err != nil {
		return err
	}
	body := fmt.Sprintf("Income   %s\nExpense  %s\nBalance  %s",
		cli.IncomeStyle.Render(s.Income.String()),
		cli.ExpenseStyle.Render(s.Expense.String()),
		cli.FormatBalance(s.Balance))
	fmt.Fprintln(out, cli.RenderBox("Summary "+periodLabel(p), body))
	return nil
}

type statsOptions struct {
	period periodFlags
	typ    string
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Category breakdowns and time series",
	}

	var catOpts statsOptions
	categories := &cobra.Command{
		Use:   "categories",
		Short: "Sum bills by category, largest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withLedger(cmd, func(ctx context.Context, svc *services.LedgerService) error {
				return runCategoryStats(ctx, svc, cmd.OutOrStdout(), catOpts)
			})
		},
	}
	catOpts.period.register(categories)
	categories.Flags().StringVar(&catOpts.typ, "type", string(core.Expense), "income or expense")

	var seriesOpts statsOptions
	series := &cobra.Command{
		Use:   "series",
		Short: "Per-day (month) or per-month (year) totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withLedger(cmd, func(ctx context.Context, svc *services.LedgerService) error {
				return runSeries(ctx, svc, cmd.OutOrStdout(), seriesOpts)
			})
		},
	}
	seriesOpts.period.register(series)
	series.Flags().StringVar(&seriesOpts.typ, "type", string(core.Expense), "income or expense")

	cmd.AddCommand(categories, series)
	return cmd
}

func (o statsOptions) resolve(svc *services.LedgerService) (stats.Period, core.TransactionType, error) {
	p, err := o.period.resolve(svc.CurrentPeriod())
	if err != nil {
		return stats.Period{}, "", err
	}
	typ, err := core.ParseTransactionType(o.typ)
	if err != nil {
		return stats.Period{}, "", err
	}
	return p, typ, nil
}

func runCategoryStats(ctx context.Context, svc *services.LedgerService, out io.Writer, opts statsOptions) error {
	p, typ, err := opts.resolve(svc)
	if err != nil {
		return err
	}
	sums, err := svc.CategoryBreakdown(ctx, p, typ)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("%s by category, %s", typ, periodLabel(p))))
	if len(sums) == 0 {
		fmt.Fprintln(out, cli.FormatWarning("No bills in this period"))
		return nil
	}
	rows := make([][]string, 0, len(sums))
	var total core.Money
	for _, s := range sums {
		rows = append(rows, []string{s.Category, s.Total.String()})
		total = total.Add(s.Total)
	}
	fmt.Fprint(out, cli.RenderTable([]string{"Category", "Total"}, rows))
	fmt.Fprintf(out, "Total %s\n", total)
	return nil
}

func runSeries(ctx context.Context, svc *services.LedgerService, out io.Writer, opts statsOptions) error {
	p, typ, err := opts.resolve(svc)
	if err != nil {
		return err
	}
	series, err := svc.Series(ctx, p, typ)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("%s per %s, %s", typ, bucketName(series.Mode), periodLabel(p))))
	rows := make([][]string, 0, series.Len())
	for i, v := range series.Values {
		rows = append(rows, []string{series.Labels[i], v.String()})
	}
	fmt.Fprint(out, cli.RenderTable([]string{"Bucket", "Total"}, rows))
	fmt.Fprintf(out, "Total %s\n", series.Total())
	return nil
}

func bucketName(m stats.SeriesMode) string {
	if m == stats.ModeYear {
		return "month"
	}
	return "day"
}
