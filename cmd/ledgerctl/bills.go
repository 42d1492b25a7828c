package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"ledger/internal/cli"
	"ledger/internal/core"
	"ledger/internal/services"
	"ledger/internal/stats"
)

type listOptions struct {
	period periodFlags
	typ    string
}

func listCmd() *cobra.Command {
	var opts listOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List bills, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withLedger(cmd, func(ctx context.Context, svc *services.LedgerService) error {
				return runList(ctx, svc, cmd.OutOrStdout(), opts)
			})
		},
	}
	opts.period.register(cmd)
	cmd.Flags().StringVar(&opts.typ, "type", "", "only income or expense")
	return cmd
}

func runList(ctx context.Context, svc *services.LedgerService, out io.Writer, opts listOptions) error {
	p, err := opts.period.resolve(stats.Period{})
	if err != nil {
		return err
	}
	var typ *core.TransactionType
	if opts.typ != "" {
		t, err := core.ParseTransactionType(opts.typ)
		if err != nil {
			return err
		}
		typ = stats.TypeFilter(t)
	}

	bills, err := svc.List(ctx)
	if err != nil {
		return err
	}
	if p.Year != 0 || typ != nil {
		if p.Year != 0 {
			bills = stats.FilterPeriod(bills, p, typ, svc.Location())
		} else {
			bills = stats.FilterType(bills, *typ)
		}
	}

	if len(bills) == 0 {
		fmt.Fprintln(out, cli.FormatWarning("No bills found"))
		return nil
	}
	fmt.Fprint(out, cli.RenderTable(billHeaders, billRows(bills, svc.Location())))
	fmt.Fprintf(out, "%d bill(s)\n", len(bills))
	return nil
}

type addOptions struct {
	typ      string
	amount   string
	category string
	remark   string
	date     string
}

func addCmd() *cobra.Command {
	var opts addOptions
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a new bill",
		Example: `  ledgerctl add --type expense --amount 25.50 --category 餐饮 --remark lunch
  ledgerctl add --type income --amount 5000 --category 工资 --at 2024-03-01`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withLedger(cmd, func(ctx context.Context, svc *services.LedgerService) error {
				return runAdd(ctx, svc, cmd.OutOrStdout(), opts)
			})
		},
	}
	cmd.Flags().StringVar(&opts.typ, "type", string(core.Expense), "income or expense")
	cmd.Flags().StringVar(&opts.amount, "amount", "", "amount, e.g. 25.50")
	cmd.Flags().StringVar(&opts.category, "category", "", "category name")
	cmd.Flags().StringVar(&opts.remark, "remark", "", "optional note")
	cmd.Flags().StringVar(&opts.date, "at", "", "RFC 3339, YYYY-MM-DD or \"YYYY-MM-DD HH:MM\" (default: now)")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func runAdd(ctx context.Context, svc *services.LedgerService, out io.Writer, opts addOptions) error {
	typ, err := core.ParseTransactionType(opts.typ)
	if err != nil {
		return err
	}
	amount, err := core.ParseMoney(opts.amount)
	if err != nil {
		return err
	}
	ts, err := parseDate(opts.date, svc.Location())
	if err != nil {
		return err
	}

	stored, err := svc.Create(ctx, core.Bill{
		Type:      typ,
		Amount:    amount,
		Category:  opts.category,
		Remark:    opts.remark,
		Timestamp: ts,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Added bill %d: %s %s %s",
		stored.ID, stored.Category, cli.FormatAmount(stored.Type, stored.Amount), stored.Time(svc.Location()).Format("2006-01-02"))))
	return nil
}

// editOptions holds only the fields the user changed; nil means keep.
type editOptions struct {
	typ      *string
	amount   *string
	category *string
	remark   *string
	date     *string
}

func editCmd() *cobra.Command {
	var typ, amount, category, remark, date string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of an existing bill",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var opts editOptions
			flags := cmd.Flags()
			if flags.Changed("type") {
				opts.typ = &typ
			}
			if flags.Changed("amount") {
				opts.amount = &amount
			}
			if flags.Changed("category") {
				opts.category = &category
			}
			if flags.Changed("remark") {
				opts.remark = &remark
			}
			if flags.Changed("at") {
				opts.date = &date
			}
			return withLedger(cmd, func(ctx context.Context, svc *services.LedgerService) error {
				return runEdit(ctx, svc, cmd.OutOrStdout(), id, opts)
			})
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "income or expense")
	cmd.Flags().StringVar(&amount, "amount", "", "new amount")
	cmd.Flags().StringVar(&category, "category", "", "new category")
	cmd.Flags().StringVar(&remark, "remark", "", "new note (empty clears it)")
	cmd.Flags().StringVar(&date, "at", "", "new date or time")
	return cmd
}

func runEdit(ctx context.Context, svc *services.LedgerService, out io.Writer, id int64, opts editOptions) error {
	b, found, err := svc.Get(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("bill %d not found", id)
	}

	if opts.typ != nil {
		if b.Type, err = core.ParseTransactionType(*opts.typ); err != nil {
			return err
		}
	}
	if opts.amount != nil {
		if b.Amount, err = core.ParseMoney(*opts.amount); err != nil {
			return err
		}
	}
	if opts.category != nil {
		b.Category = *opts.category
	}
	if opts.remark != nil {
		b.Remark = *opts.remark
	}
	if opts.date != nil {
		ts, err := parseDate(*opts.date, svc.Location())
		if err != nil {
			return err
		}
		if ts != 0 {
			b.Timestamp = ts
		}
	}

	if _, err := svc.Update(ctx, b); err != nil {
		return err
	}
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Updated bill %d", id)))
	return nil
}

func deleteCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a bill",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withLedger(cmd, func(ctx context.Context, svc *services.LedgerService) error {
				return runDelete(ctx, svc, cmd.InOrStdin(), cmd.OutOrStdout(), id, force)
			})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompt")
	return cmd
}

func runDelete(ctx context.Context, svc *services.LedgerService, in io.Reader, out io.Writer, id int64, force bool) error {
	b, found, err := svc.Get(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("Bill %d not found, nothing to delete", id)))
		return nil
	}

	if !force {
		question := fmt.Sprintf("Delete bill %d (%s %s)?", id, b.Category, b.Amount)
		if !confirm(in, out, question) {
			fmt.Fprintln(out, "Delete cancelled.")
			return nil
		}
	}

	if _, err := svc.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Deleted bill %d", id)))
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid bill id %q", s)
	}
	return id, nil
}
