package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/arclaim/internal/calendar"
	"github.com/ledgerline/arclaim/internal/common"
	"github.com/ledgerline/arclaim/internal/model"
	"github.com/ledgerline/arclaim/internal/service"
)

func setupStore(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func storedClaim(id string) model.ClaimRecord {
	return model.ClaimRecord{
		ID:             id,
		PatientID:      "pt-9",
		Payer:          "Aetna",
		ProcedureCode:  "99213",
		DiagnosisCode:  "E11.9",
		PlaceOfService: "11",
		ServiceDate:    calendar.NewDate(2024, time.March, 4),
		SubmissionDate: calendar.NewDate(2024, time.March, 6),
		BilledAmount:   120.50,
		Units:          1,
		PatientAge:     54,
	}
}

func TestSQLiteStorage_SaveAndGetClaim(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	claim := storedClaim("clm-1")
	require.NoError(t, store.SaveClaims(ctx, []model.ClaimRecord{claim}))

	got, err := store.GetClaim(ctx, "clm-1")
	require.NoError(t, err)
	assert.Equal(t, claim, *got)
}

func TestSQLiteStorage_GetClaimNotFound(t *testing.T) {
	store := setupStore(t)

	_, err := store.GetClaim(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLiteStorage_SaveClaimsUpsertsOutcome(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	claim := storedClaim("clm-1")
	require.NoError(t, store.SaveClaims(ctx, []model.ClaimRecord{claim}))

	// Re-import the same claim once adjudicated.
	claim.PaymentDate = calendar.NewDate(2024, time.April, 2)
	claim.PaidAmount = 95.20
	claim.Adjudicated = true
	require.NoError(t, store.SaveClaims(ctx, []model.ClaimRecord{claim}))

	got, err := store.GetClaim(ctx, "clm-1")
	require.NoError(t, err)
	assert.True(t, got.Paid())
	assert.True(t, got.Adjudicated)
	assert.InDelta(t, 95.20, got.PaidAmount, 1e-9)

	claims, err := store.GetClaims(ctx, service.ClaimFilter{})
	require.NoError(t, err)
	assert.Len(t, claims, 1, "re-import must not duplicate the claim")
}

func TestSQLiteStorage_GetClaimsFilter(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	early := storedClaim("clm-early")
	early.ServiceDate = calendar.NewDate(2024, time.January, 10)
	late := storedClaim("clm-late")
	late.ServiceDate = calendar.NewDate(2024, time.June, 10)
	otherPayer := storedClaim("clm-other")
	otherPayer.Payer = "Cigna"

	require.NoError(t, store.SaveClaims(ctx, []model.ClaimRecord{early, late, otherPayer}))

	start := calendar.NewDate(2024, time.February, 1)
	claims, err := store.GetClaims(ctx, service.ClaimFilter{Start: &start})
	require.NoError(t, err)
	assert.Len(t, claims, 2)

	claims, err = store.GetClaims(ctx, service.ClaimFilter{Payer: "Cigna"})
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, "clm-other", claims[0].ID)

	claims, err = store.GetClaims(ctx, service.ClaimFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, claims, 1)
}

func TestSQLiteStorage_GetAdjudicatedClaims(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	open := storedClaim("clm-open")
	denied := storedClaim("clm-denied")
	denied.Adjudicated = true
	denied.Denied = true
	paid := storedClaim("clm-paid")
	paid.Adjudicated = true
	paid.PaymentDate = calendar.NewDate(2024, time.April, 1)

	require.NoError(t, store.SaveClaims(ctx, []model.ClaimRecord{open, denied, paid}))

	claims, err := store.GetAdjudicatedClaims(ctx)
	require.NoError(t, err)
	require.Len(t, claims, 2)
	for _, c := range claims {
		assert.True(t, c.Adjudicated)
	}
}
