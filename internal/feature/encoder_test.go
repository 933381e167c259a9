package feature

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/arclaim/internal/calendar"
	"github.com/ledgerline/arclaim/internal/common"
	"github.com/ledgerline/arclaim/internal/model"
)

func testClaim(id, payer, procedure string, billed float64) model.ClaimRecord {
	return model.ClaimRecord{
		ID:             id,
		Payer:          payer,
		ProcedureCode:  procedure,
		DiagnosisCode:  "E11.9",
		PlaceOfService: "11",
		ServiceDate:    calendar.NewDate(2024, time.March, 4),
		SubmissionDate: calendar.NewDate(2024, time.March, 6),
		BilledAmount:   billed,
		Units:          1,
		PatientAge:     54,
	}
}

func testEncoder() *Encoder {
	return New(calendar.NewFederal())
}

func TestEncoder_FitEmptyTrainingSet(t *testing.T) {
	enc := testEncoder()

	_, err := enc.Fit(context.Background(), nil)
	assert.ErrorIs(t, err, common.ErrEmptyTrainingSet)
}

func TestEncoder_FitBuildsSortedVocabulary(t *testing.T) {
	enc := testEncoder()

	claims := []model.ClaimRecord{
		testClaim("c1", "United", "99213", 120),
		testClaim("c2", "Aetna", "99214", 180),
		testClaim("c3", "Cigna", "99213", 95),
	}

	state, err := enc.Fit(context.Background(), claims)
	require.NoError(t, err)
	require.NotEmpty(t, state.Version)

	var payers []string
	for _, f := range state.Categorical {
		if f.Name == "payer" {
			payers = f.Vocab
		}
	}
	assert.Equal(t, []string{"Aetna", "Cigna", "United"}, payers)
}

func TestEncoder_TransformIdempotent(t *testing.T) {
	enc := testEncoder()

	claims := []model.ClaimRecord{
		testClaim("c1", "Aetna", "99213", 120),
		testClaim("c2", "Cigna", "99214", 180),
	}
	state, err := enc.Fit(context.Background(), claims)
	require.NoError(t, err)

	first, err := enc.Transform(claims[0], state)
	require.NoError(t, err)
	second, err := enc.Transform(claims[0], state)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, state.Len())
}

func TestEncoder_TransformStandardizesNumerics(t *testing.T) {
	enc := testEncoder()

	claims := []model.ClaimRecord{
		testClaim("c1", "Aetna", "99213", 100),
		testClaim("c2", "Aetna", "99213", 300),
	}
	state, err := enc.Fit(context.Background(), claims)
	require.NoError(t, err)

	vector, err := enc.Transform(claims[0], state)
	require.NoError(t, err)

	// billed_amount is the first column: mean 200, population std 100,
	// so 100 standardizes to -1.
	assert.InDelta(t, -1.0, vector[0], 1e-9)

	// units is constant across the set; scale floors to 1 and the
	// centered value is 0.
	assert.InDelta(t, 0.0, vector[1], 1e-9)
}

func TestEncoder_UnknownCategoryEncodesAllZero(t *testing.T) {
	enc := testEncoder()

	claims := []model.ClaimRecord{
		testClaim("c1", "Aetna", "99213", 120),
		testClaim("c2", "Cigna", "99214", 180),
	}
	state, err := enc.Fit(context.Background(), claims)
	require.NoError(t, err)

	unseen := testClaim("c3", "Humana", "99213", 150)
	vector, err := enc.Transform(unseen, state)
	require.NoError(t, err)
	assert.Len(t, vector, state.Len(), "unseen category must not change the schema")

	// The payer block immediately follows the numeric columns and must
	// be all zeros for an unseen payer.
	offset := len(state.Numeric)
	for _, f := range state.Categorical {
		if f.Name != "payer" {
			continue
		}
		for j := range f.Vocab {
			assert.Zero(t, vector[offset+j], "payer indicator %d should be zero", j)
		}
	}
}

func TestEncoder_TransformSchemaMismatch(t *testing.T) {
	enc := testEncoder()

	state, err := enc.Fit(context.Background(), []model.ClaimRecord{testClaim("c1", "Aetna", "99213", 120)})
	require.NoError(t, err)

	missing := testClaim("c2", "Aetna", "", 120)
	_, err = enc.Transform(missing, state)
	assert.ErrorIs(t, err, common.ErrSchemaMismatch)
}

func TestEncoder_SubmissionLagUsesBusinessDays(t *testing.T) {
	enc := testEncoder()

	claim := testClaim("c1", "Aetna", "99213", 120)
	// Service Wed Jul 3 2024, submitted Mon Jul 8: two business days
	// once the July 4 holiday and the weekend are excluded.
	claim.ServiceDate = calendar.NewDate(2024, time.July, 3)
	claim.SubmissionDate = calendar.NewDate(2024, time.July, 8)

	state, err := enc.Fit(context.Background(), []model.ClaimRecord{claim})
	require.NoError(t, err)

	var lag NumericField
	for _, f := range state.Numeric {
		if f.Name == "submission_lag_days" {
			lag = f
		}
	}
	assert.InDelta(t, 2.0, lag.Mean, 1e-9)
}

func TestEncoderState_FeatureNames(t *testing.T) {
	enc := testEncoder()

	state, err := enc.Fit(context.Background(), []model.ClaimRecord{testClaim("c1", "Aetna", "99213", 120)})
	require.NoError(t, err)

	names := state.FeatureNames()
	require.Len(t, names, state.Len())
	assert.Equal(t, "billed_amount", names[0])
	assert.Contains(t, names, "payer=Aetna")
	assert.NotContains(t, names, "denied", "label must never enter the schema")
	assert.NotContains(t, names, "paid_amount", "outcome fields must never enter the schema")
}
