package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	adminservice "alumnireg/internal/admin/service"
	"alumnireg/internal/platform/config"
	"alumnireg/internal/platform/postgres"
)

var errResetNotConfirmed = errors.New("--reset deletes every registration, transaction and audit event: pass --yes to confirm")

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			reset, _ := cmd.Flags().GetBool("reset")
			if confirmed, _ := cmd.Flags().GetBool("yes"); reset && !confirmed {
				return errResetNotConfirmed
			}

			cfg := config.FromEnv()
			if url, _ := cmd.Flags().GetString("database-url"); url != "" {
				cfg.Storage.DatabaseURL = url
			}
			if cfg.Storage.DatabaseURL == "" {
				return errNoDatabase
			}
			db, err := postgres.Open(cmd.Context(), cfg.Storage)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := postgres.Migrate(cmd.Context(), db.DB); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")

			if reset {
				if err := postgres.Truncate(cmd.Context(), db.DB, postgres.Tables...); err != nil {
					return fmt.Errorf("reset tables: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "emptied: %s\n", strings.Join(postgres.Tables, ", "))
			}
			return nil
		},
	}
	cmd.Flags().Bool("reset", false, "Empty every table after applying the schema (rehearsals only)")
	cmd.Flags().Bool("yes", false, "Confirm --reset")
	return cmd
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Apply recorded transactions that never reached their registration",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.admin.Reconcile(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied: %d\nfailed:  %d\n", result.Applied, result.Failed)
			if result.Failed > 0 {
				return fmt.Errorf("%d transactions could not be applied", result.Failed)
			}
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show registration and payment totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.close()

			dashboard, err := a.admin.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(dashboard)
			}
			printDashboard(cmd.OutOrStdout(), a.cfg.Contribution.CurrencyDisplayCode, dashboard)
			return nil
		},
	}
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")
	return cmd
}

func correctCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "correct [registration-id]",
		Short: "Overwrite a registration's contribution total",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			total, _ := cmd.Flags().GetInt64("total")
			reason, _ := cmd.Flags().GetString("reason")

			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.close()

			reg, err := a.admin.CorrectContribution(cmd.Context(), args[0], total, reason)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registration %s: contribution %d, payment %s, status %s\n",
				reg.ID, reg.ContributionTotal, reg.PaymentStatus, reg.RegistrationStatus)
			return nil
		},
	}
	cmd.Flags().Int64("total", 0, "New contribution total")
	cmd.Flags().String("reason", "", "Why the total is being corrected (recorded in the audit trail)")
	_ = cmd.MarkFlagRequired("total")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func resendConfirmationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resend-confirmation [registration-id]",
		Short: "Send a paid registrant's confirmation email again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.admin.ResendConfirmation(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "confirmation queued for %s\n", args[0])
			return nil
		},
	}
}

func printDashboard(w io.Writer, currency string, d *adminservice.Dashboard) {
	regs, pays := d.Registrations, d.Payments
	fmt.Fprintln(w, "Registrations")
	fmt.Fprintf(w, "  Total:        %d\n", regs.Total)
	fmt.Fprintf(w, "  Submitted:    %d\n", regs.Submitted)
	fmt.Fprintf(w, "  Attending:    %d (%d attendees)\n", regs.Attending, regs.TotalAttendees)
	fmt.Fprintf(w, "  Hardship:     %d\n", regs.Hardship)
	fmt.Fprintf(w, "  Pledged:      %d %s\n", regs.ContributionTotal, currency)
	fmt.Fprintln(w, "Payments")
	fmt.Fprintf(w, "  Transactions: %d\n", pays.Count)
	fmt.Fprintf(w, "  Collected:    %d %s\n", pays.Total, currency)
	fmt.Fprintf(w, "  Unapplied:    %d\n", pays.Unapplied)

	byStatus := make(map[string]int, len(regs.ByPaymentStatus))
	for status, n := range regs.ByPaymentStatus {
		byStatus[string(status)] = n
	}
	printCounts(w, "Payment status", byStatus)
	printCounts(w, "Registration type", regs.ByRegistrationType)
}

func printCounts(w io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintln(w, title)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-14s%d\n", k+":", counts[k])
	}
}
