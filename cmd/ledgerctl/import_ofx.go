package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ledger/internal/cli"
	"ledger/internal/ofx"
	"ledger/internal/services"
)

type importOptions struct {
	expenseCategory string
	incomeCategory  string
	dryRun          bool
}

func importOFXCmd() *cobra.Command {
	var opts importOptions
	cmd := &cobra.Command{
		Use:   "import-ofx <file>",
		Short: "Import bills from an OFX/QFX bank or card statement",
		Long: `Import reads an OFX or QFX statement and records one bill per transaction.
Debits become expenses and credits income. Each transaction is filed under the
given category; use "ledgerctl edit" to refine it afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open statement: %w", err)
			}
			defer f.Close()
			return withLedger(cmd, func(ctx context.Context, svc *services.LedgerService) error {
				return runImportOFX(ctx, svc, f, cmd.OutOrStdout(), opts)
			})
		},
	}
	cmd.Flags().StringVar(&opts.expenseCategory, "category", "", "category for debits (default: 其他)")
	cmd.Flags().StringVar(&opts.incomeCategory, "income-category", "", "category for credits (default: 其他)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "show what would be imported without saving")
	return cmd
}

func runImportOFX(ctx context.Context, svc *services.LedgerService, r io.Reader, out io.Writer, opts importOptions) error {
	importer := ofx.NewImporter(ofx.Options{
		ExpenseCategory: opts.expenseCategory,
		IncomeCategory:  opts.incomeCategory,
		Logger:          logger,
	})
	drafts, err := importer.Parse(ctx, r)
	if err != nil {
		return err
	}

	if opts.dryRun {
		fmt.Fprint(out, cli.RenderTable(billHeaders[1:], dropID(billRows(drafts, svc.Location()))))
		fmt.Fprintf(out, "%d bill(s) would be imported\n", len(drafts))
		return nil
	}

	stored, err := svc.Import(ctx, drafts)
	if err != nil {
		if len(stored) > 0 {
			fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("Imported %d of %d bill(s) before failing", len(stored), len(drafts))))
		}
		return err
	}
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Imported %d bill(s)", len(stored))))
	return nil
}

func dropID(rows [][]string) [][]string {
	for i := range rows {
		rows[i] = rows[i][1:]
	}
	return rows
}
