package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ledger/internal/cli"
	"ledger/internal/services"
)

func resetCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Wipe the ledger and restore the example bills",
		Long: `Reset removes every stored bill, including data kept from older storage
versions, then writes the example bills again.

This is a destructive operation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withLedger(cmd, func(ctx context.Context, svc *services.LedgerService) error {
				return runReset(ctx, svc, cmd.InOrStdin(), cmd.OutOrStdout(), force)
			})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompt")
	return cmd
}

func runReset(ctx context.Context, svc *services.LedgerService, in io.Reader, out io.Writer, force bool) error {
	if !force {
		bills, err := svc.List(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("This will delete %d bill(s).", len(bills))))
		if !confirm(in, out, "Are you sure you want to continue?") {
			fmt.Fprintln(out, "Reset cancelled.")
			return nil
		}
	}

	seeded, err := svc.Reset(ctx, services.ResetConfirmation)
	if err != nil {
		return err
	}
	msg := "Ledger reset"
	if seeded {
		msg += ", example bills restored"
	}
	fmt.Fprintln(out, cli.FormatSuccess(msg))
	return nil
}
