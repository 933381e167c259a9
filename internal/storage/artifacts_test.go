package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/arclaim/internal/common"
	"github.com/ledgerline/arclaim/internal/feature"
	"github.com/ledgerline/arclaim/internal/model"
	"github.com/ledgerline/arclaim/internal/riskmodel"
)

func artifactFixture(t *testing.T) (*feature.EncoderState, *riskmodel.ModelArtifact) {
	t.Helper()

	state := &feature.EncoderState{
		Version:   uuid.NewString(),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Numeric: []feature.NumericField{
			{Name: "billed_amount", Mean: 200, Scale: 100},
		},
		Categorical: []feature.CategoricalField{
			{Name: "payer", Vocab: []string{"Aetna", "Cigna"}},
		},
	}

	artifact := &riskmodel.ModelArtifact{
		Version:        uuid.NewString(),
		EncoderVersion: state.Version,
		TrainedAt:      time.Now().UTC().Truncate(time.Second),
		BaseScore:      -2.1,
		LearningRate:   0.15,
		FeatureCount:   3,
		Trees: []*riskmodel.TreeNode{
			{
				Feature:   0,
				Threshold: 0.5,
				Left:      &riskmodel.TreeNode{Leaf: true, Value: -0.4},
				Right:     &riskmodel.TreeNode{Leaf: true, Value: 0.7},
			},
		},
	}

	return state, artifact
}

func TestSQLiteStorage_SaveAndGetArtifactPair(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	state, artifact := artifactFixture(t)
	require.NoError(t, store.SaveArtifactPair(ctx, state, artifact))

	gotState, gotArtifact, err := store.GetArtifactPair(ctx, state.Version)
	require.NoError(t, err)
	assert.Equal(t, state.Version, gotState.Version)
	assert.Equal(t, state.Categorical, gotState.Categorical)
	assert.Equal(t, artifact.Version, gotArtifact.Version)
	require.Len(t, gotArtifact.Trees, 1)

	// The tree must survive the round trip intact: predictions before
	// and after persistence agree.
	v := model.FeatureVector{0.7, 0, 1}
	before, err := riskmodel.Predict(v, artifact)
	require.NoError(t, err)
	after, err := riskmodel.Predict(v, gotArtifact)
	require.NoError(t, err)
	assert.InDelta(t, before, after, 1e-12)
}

func TestSQLiteStorage_SaveArtifactPairRejectsMismatch(t *testing.T) {
	store := setupStore(t)

	state, artifact := artifactFixture(t)
	artifact.EncoderVersion = uuid.NewString()

	err := store.SaveArtifactPair(context.Background(), state, artifact)
	assert.ErrorIs(t, err, common.ErrVersionMismatch)
}

func TestSQLiteStorage_CurrentArtifactPair(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, _, err := store.GetCurrentArtifactPair(ctx)
	assert.ErrorIs(t, err, common.ErrNotFound, "nothing published yet")

	first, firstModel := artifactFixture(t)
	second, secondModel := artifactFixture(t)
	require.NoError(t, store.SaveArtifactPair(ctx, first, firstModel))
	require.NoError(t, store.SaveArtifactPair(ctx, second, secondModel))

	require.NoError(t, store.SetCurrentArtifactPair(ctx, first.Version, firstModel.Version))
	state, artifact, err := store.GetCurrentArtifactPair(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Version, state.Version)
	assert.Equal(t, firstModel.Version, artifact.Version)

	// Repointing replaces, not appends.
	require.NoError(t, store.SetCurrentArtifactPair(ctx, second.Version, secondModel.Version))
	state, artifact, err = store.GetCurrentArtifactPair(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.Version, state.Version)
	assert.Equal(t, secondModel.Version, artifact.Version)
}

func TestSQLiteStorage_SetCurrentArtifactPairValidation(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	state, artifact := artifactFixture(t)
	require.NoError(t, store.SaveArtifactPair(ctx, state, artifact))

	err := store.SetCurrentArtifactPair(ctx, uuid.NewString(), artifact.Version)
	assert.ErrorIs(t, err, common.ErrVersionMismatch)

	err = store.SetCurrentArtifactPair(ctx, state.Version, uuid.NewString())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLiteStorage_SaveScoringRecord(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	result := &model.ScoringResult{
		RequestID:            uuid.NewString(),
		ClaimID:              "clm-1",
		Outcome:              model.OutcomeDegraded,
		ARDays:               7,
		DegradedReason:       model.ReasonInferenceTimeout,
		ProbabilityAvailable: false,
		ScoredAt:             time.Now().UTC(),
	}
	require.NoError(t, store.SaveScoringRecord(ctx, result))

	// Duplicate request IDs violate the primary key.
	err := store.SaveScoringRecord(ctx, result)
	require.Error(t, err)
}
