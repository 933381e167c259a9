package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ledgerline/arclaim/internal/api"
	"github.com/ledgerline/arclaim/internal/calendar"
	"github.com/ledgerline/arclaim/internal/common"
	"github.com/ledgerline/arclaim/internal/feature"
	"github.com/ledgerline/arclaim/internal/scoring"
)

func scoreCmd() *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "score <claim-id>",
		Short: "Score one stored claim against the published model",
		Long: `Score one stored claim against the published model and print the
result as JSON. With no published model the claim still gets an AR-day
count; the denial probability is marked unavailable.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd, args[0], asOf)
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "aging reference date YYYY-MM-DD (default: today)")

	return cmd
}

func runScore(cmd *cobra.Command, claimID, asOfArg string) error {
	ctx := cmd.Context()

	asOf := calendar.FromTime(timeNow())
	if asOfArg != "" {
		var err error
		if asOf, err = calendar.ParseDate(asOfArg); err != nil {
			return fmt.Errorf("as-of: %w", err)
		}
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

	claim, err := store.GetClaim(ctx, claimID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("claim %s not found", claimID)
		}
		return fmt.Errorf("failed to load claim: %w", err)
	}

	orch := scoring.New(cal, feature.New(cal), scoring.InProcessPredictor{})

	state, artifact, err := store.GetCurrentArtifactPair(ctx)
	switch {
	case err == nil:
		if err := orch.Publish(state, artifact); err != nil {
			return fmt.Errorf("failed to load published pair: %w", err)
		}
	case errors.Is(err, common.ErrNotFound):
		// No published model; scoring degrades to aging only.
	default:
		return fmt.Errorf("failed to load published pair: %w", err)
	}

	result, err := orch.Score(ctx, *claim, asOf)
	if err != nil {
		var verr *scoring.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("claim rejected: %s", verr.Error())
		}
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(api.NewScoreResponse(result))
}
