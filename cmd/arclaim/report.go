package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ledgerline/arclaim/internal/calendar"
	"github.com/ledgerline/arclaim/internal/report"
	"github.com/ledgerline/arclaim/internal/service"
)

func reportCmd() *cobra.Command {
	var (
		asOf   string
		payer  string
		start  string
		end    string
		output string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate a per-payer AR aging report",
		Long: `Generate a per-payer AR aging report as CSV.

Each row aggregates one payer: open claims age from service date to the
as-of date in business days, paid claims from service date to payment
date. Writes to stdout unless --output is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReport(cmd, asOf, payer, start, end, output)
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "aging reference date YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&payer, "payer", "", "restrict to one payer")
	cmd.Flags().StringVar(&start, "start", "", "earliest service date YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "latest service date YYYY-MM-DD")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")

	return cmd
}

func runReport(cmd *cobra.Command, asOfArg, payer, startArg, endArg, output string) error {
	ctx := cmd.Context()

	asOf := calendar.FromTime(timeNow())
	var err error
	if asOfArg != "" {
		if asOf, err = calendar.ParseDate(asOfArg); err != nil {
			return fmt.Errorf("as-of: %w", err)
		}
	}

	filter := service.ClaimFilter{Payer: payer}
	if startArg != "" {
		d, err := calendar.ParseDate(startArg)
		if err != nil {
			return fmt.Errorf("start: %w", err)
		}
		filter.Start = &d
	}
	if endArg != "" {
		d, err := calendar.ParseDate(endArg)
		if err != nil {
			return fmt.Errorf("end: %w", err)
		}
		filter.End = &d
	}

	cal, err := buildCalendar()
	if err != nil {
		return err
	}

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	claims, err := store.GetClaims(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to load claims: %w", err)
	}
	if len(claims) == 0 {
		slog.Info("No claims match the filter")
		return nil
	}

	buckets, err := report.Aging(claims, cal, asOf)
	if err != nil {
		return fmt.Errorf("failed to build aging report: %w", err)
	}

	out := os.Stdout
	if output != "" {
		f, err := os.Create(output) // #nosec G304 -- operator-supplied output path
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", output, err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	if err := report.WriteCSV(out, buckets); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if output != "" {
		slog.Info("Report written", "file", output, "payers", len(buckets), "claims", len(claims))
	}
	return nil
}
