// Command regctl runs operator tasks against the registration database:
// payment reconciliation, dashboard totals, contribution corrections,
// confirmation resends and schema migration.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "regctl",
		Short:         "Operate the alumni event registration store",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL URL (defaults to DATABASE_URL)")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(correctCmd())
	rootCmd.AddCommand(resendConfirmationCmd())
	return rootCmd
}
