package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ledgerline/arclaim/internal/calendar"
	"github.com/ledgerline/arclaim/internal/common"
	"github.com/ledgerline/arclaim/internal/feature"
	"github.com/ledgerline/arclaim/internal/model"
	"github.com/ledgerline/arclaim/internal/riskmodel"
	"github.com/ledgerline/arclaim/internal/service"
)

func trainCmd() *cobra.Command {
	var (
		cfg     = riskmodel.DefaultTrainConfig()
		holdout float64
		publish bool
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a denial-risk model from adjudicated claims",
		Long: `Train a denial-risk model from the adjudicated claims in the database.

Fits a fresh feature encoder and a boosted-tree model as one versioned
pair, evaluates it on a holdout slice, and stores the pair. With
--publish the new pair also becomes the one served by 'arclaim serve'.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTrain(cmd, cfg, holdout, publish)
		},
	}

	cmd.Flags().IntVar(&cfg.Rounds, "rounds", cfg.Rounds, "boosting rounds")
	cmd.Flags().Float64Var(&cfg.LearningRate, "learning-rate", cfg.LearningRate, "shrinkage per round")
	cmd.Flags().IntVar(&cfg.MaxDepth, "max-depth", cfg.MaxDepth, "maximum tree depth")
	cmd.Flags().Float64Var(&cfg.Subsample, "subsample", cfg.Subsample, "row subsample fraction per round")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed for reproducible training")
	cmd.Flags().Float64Var(&holdout, "holdout", 0.2, "fraction of claims held out for evaluation")
	cmd.Flags().BoolVar(&publish, "publish", false, "make the new pair the serving pair")

	return cmd
}

func runTrain(cmd *cobra.Command, cfg riskmodel.TrainConfig, holdout float64, publish bool) error {
	ctx := cmd.Context()

	if holdout < 0 || holdout >= 1 {
		return fmt.Errorf("%w: holdout must be in [0, 1)", common.ErrInvalidConfig)
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

	claims, err := store.GetAdjudicatedClaims(ctx)
	if err != nil {
		return fmt.Errorf("failed to load adjudicated claims: %w", err)
	}
	if len(claims) == 0 {
		return fmt.Errorf("%w: no adjudicated claims to train on", common.ErrEmptyTrainingSet)
	}
	slog.Info("Loaded training claims", "count", len(claims))

	state, artifact, eval, err := trainPair(ctx, cal, claims, cfg, holdout)
	if err != nil {
		return err
	}

	if eval.Count > 0 {
		slog.Info("Holdout evaluation",
			"claims", eval.Count,
			"denials", eval.Positives,
			"accuracy", fmt.Sprintf("%.3f", eval.Accuracy),
			"auc", fmt.Sprintf("%.3f", eval.AUC))
	}

	if err := store.SaveArtifactPair(ctx, state, artifact); err != nil {
		return fmt.Errorf("failed to save artifact pair: %w", err)
	}
	slog.Info("Saved artifact pair",
		"encoder_version", state.Version,
		"model_version", artifact.Version)

	if publish {
		if err := store.SetCurrentArtifactPair(ctx, state.Version, artifact.Version); err != nil {
			return fmt.Errorf("failed to publish artifact pair: %w", err)
		}
		slog.Info("Published artifact pair", "model_version", artifact.Version)
	}

	return nil
}

// trainPair runs the full pipeline on adjudicated claims: holdout split,
// encoder fit on the training slice only, encode, boost, evaluate. The
// serve command reuses it for scheduled retraining.
func trainPair(ctx context.Context, cal *calendar.Calendar, claims []model.ClaimRecord, cfg riskmodel.TrainConfig, holdout float64) (*feature.EncoderState, *riskmodel.ModelArtifact, riskmodel.Evaluation, error) {
	// Deterministic split under the training seed.
	rng := rand.New(rand.NewSource(cfg.Seed)) // #nosec G404 -- reproducibility, not crypto
	perm := rng.Perm(len(claims))

	holdoutCount := int(holdout * float64(len(claims)))
	trainClaims := make([]model.ClaimRecord, 0, len(claims)-holdoutCount)
	evalClaims := make([]model.ClaimRecord, 0, holdoutCount)
	for i, idx := range perm {
		if i < holdoutCount {
			evalClaims = append(evalClaims, claims[idx])
		} else {
			trainClaims = append(trainClaims, claims[idx])
		}
	}

	encoder := feature.New(cal)
	state, err := encoder.Fit(ctx, trainClaims)
	if err != nil {
		return nil, nil, riskmodel.Evaluation{}, fmt.Errorf("failed to fit encoder: %w", err)
	}

	encode := func(set []model.ClaimRecord, bar *progressbar.ProgressBar) ([]model.FeatureVector, []bool, error) {
		x := make([]model.FeatureVector, 0, len(set))
		y := make([]bool, 0, len(set))
		for i := range set {
			v, err := encoder.Transform(set[i], state)
			if err != nil {
				return nil, nil, fmt.Errorf("claim %s: %w", set[i].ID, err)
			}
			x = append(x, v)
			y = append(y, set[i].Denied)
			if bar != nil {
				_ = bar.Add(1)
			}
		}
		return x, y, nil
	}

	bar := progressbar.NewOptions(len(claims),
		progressbar.OptionSetDescription("Encoding claims..."),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
	)
	trainX, trainY, err := encode(trainClaims, bar)
	if err != nil {
		return nil, nil, riskmodel.Evaluation{}, err
	}
	evalX, evalY, err := encode(evalClaims, bar)
	if err != nil {
		return nil, nil, riskmodel.Evaluation{}, err
	}
	_ = bar.Finish()
	fmt.Println()

	artifact, err := riskmodel.Train(ctx, trainX, trainY, state.Version, cfg)
	if err != nil {
		return nil, nil, riskmodel.Evaluation{}, fmt.Errorf("training failed: %w", err)
	}

	var eval riskmodel.Evaluation
	if len(evalX) > 0 {
		if eval, err = riskmodel.Evaluate(evalX, evalY, artifact); err != nil {
			return nil, nil, riskmodel.Evaluation{}, fmt.Errorf("evaluation failed: %w", err)
		}
	}

	return state, artifact, eval, nil
}

// retryLoadPair fetches the current artifact pair, retrying transient
// storage failures. A missing pair is terminal, not retryable.
func retryLoadPair(ctx context.Context, store service.Storage) (*feature.EncoderState, *riskmodel.ModelArtifact, error) {
	var (
		state    *feature.EncoderState
		artifact *riskmodel.ModelArtifact
	)
	err := common.WithRetry(ctx, func() error {
		var err error
		state, artifact, err = store.GetCurrentArtifactPair(ctx)
		if err != nil && errors.Is(err, common.ErrNotFound) {
			return &common.RetryableError{Err: err, Retryable: false}
		}
		return err
	}, service.RetryOptions{MaxAttempts: 3})
	if err != nil {
		return nil, nil, err
	}
	return state, artifact, nil
}
