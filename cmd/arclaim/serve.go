package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ledgerline/arclaim/internal/api"
	"github.com/ledgerline/arclaim/internal/calendar"
	"github.com/ledgerline/arclaim/internal/common"
	"github.com/ledgerline/arclaim/internal/feature"
	"github.com/ledgerline/arclaim/internal/riskmodel"
	"github.com/ledgerline/arclaim/internal/scoring"
	"github.com/ledgerline/arclaim/internal/service"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scoring API",
		Long: `Serve the synchronous scoring API.

Loads the published encoder/model pair at startup. If none is published
yet the server still starts and every score degrades to aging only;
publish a pair with 'arclaim train --publish' and restart, or configure
serve.retrain_cron to retrain and republish on a schedule without
restarting.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().Duration("inference-timeout", scoring.DefaultConfig().InferenceTimeout, "per-request model inference budget")
	cmd.Flags().String("retrain-cron", "", "cron schedule for automatic retraining (empty disables)")

	_ = viper.BindPFlag("serve.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("serve.inference_timeout", cmd.Flags().Lookup("inference-timeout"))
	_ = viper.BindPFlag("serve.retrain_cron", cmd.Flags().Lookup("retrain-cron"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cal, err := buildCalendar()
	if err != nil {
		return err
	}

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	orch := scoring.NewWithConfig(cal, feature.New(cal), scoring.InProcessPredictor{}, scoring.Config{
		InferenceTimeout: viper.GetDuration("serve.inference_timeout"),
	})

	state, artifact, err := retryLoadPair(ctx, store)
	switch {
	case err == nil:
		if err := orch.Publish(state, artifact); err != nil {
			return fmt.Errorf("failed to publish stored pair: %w", err)
		}
	case errors.Is(err, common.ErrNotFound):
		slog.Warn("No published model pair; serving in degraded mode until one is trained")
	default:
		return fmt.Errorf("failed to load published pair: %w", err)
	}

	var scheduler *cron.Cron
	if spec := viper.GetString("serve.retrain_cron"); spec != "" {
		scheduler = cron.New()
		_, err := scheduler.AddFunc(spec, func() {
			if err := retrainAndPublish(ctx, store, cal, orch); err != nil {
				slog.Error("Scheduled retrain failed", "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid retrain schedule %q: %w", spec, err)
		}
		scheduler.Start()
		slog.Info("Scheduled retraining enabled", "schedule", spec)
	}

	handler := api.NewHandler(orch, store)
	server := &http.Server{
		Addr:              viper.GetString("serve.addr"),
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Scoring API listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	slog.Info("Server stopped")
	return nil
}

// retrainAndPublish runs the training pipeline on the latest adjudicated
// claims and atomically swaps the serving pair. In-flight requests keep
// the pair they loaded; a failure leaves the current pair serving.
func retrainAndPublish(ctx context.Context, store service.Storage, cal *calendar.Calendar, orch *scoring.Orchestrator) error {
	claims, err := store.GetAdjudicatedClaims(ctx)
	if err != nil {
		return fmt.Errorf("failed to load adjudicated claims: %w", err)
	}
	if len(claims) == 0 {
		return fmt.Errorf("%w: no adjudicated claims", common.ErrEmptyTrainingSet)
	}

	state, artifact, eval, err := trainPair(ctx, cal, claims, riskmodel.DefaultTrainConfig(), 0.2)
	if err != nil {
		return err
	}

	if err := store.SaveArtifactPair(ctx, state, artifact); err != nil {
		return fmt.Errorf("failed to save artifact pair: %w", err)
	}
	if err := store.SetCurrentArtifactPair(ctx, state.Version, artifact.Version); err != nil {
		return fmt.Errorf("failed to mark pair current: %w", err)
	}
	if err := orch.Publish(state, artifact); err != nil {
		return err
	}

	slog.Info("Retrained and published model pair",
		"model_version", artifact.Version,
		"claims", len(claims),
		"holdout_auc", fmt.Sprintf("%.3f", eval.AUC))

	return nil
}
