package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ledgerline/arclaim/internal/calendar"
	"github.com/ledgerline/arclaim/internal/common"
	"github.com/ledgerline/arclaim/internal/model"
	"github.com/ledgerline/arclaim/internal/service"
)

const claimColumns = `id, hash, patient_id, payer, procedure_code, diagnosis_code,
	place_of_service, service_date, submission_date, payment_date,
	billed_amount, paid_amount, units, patient_age, adjudicated, denied`

// SaveClaims upserts a batch of claims inside one transaction,
// deduplicating on the content hash.
func (s *SQLiteStorage) SaveClaims(ctx context.Context, claims []model.ClaimRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(claims) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO claims (`+claimColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET
			payment_date = excluded.payment_date,
			paid_amount = excluded.paid_amount,
			adjudicated = excluded.adjudicated,
			denied = excluded.denied`)
	if err != nil {
		return fmt.Errorf("failed to prepare claim insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range claims {
		c := &claims[i]
		if c.ID == "" {
			return fmt.Errorf("claim %d has no id", i)
		}

		var paymentDate any
		if c.Paid() {
			paymentDate = c.PaymentDate.String()
		}

		if _, err := stmt.ExecContext(ctx,
			c.ID, c.GenerateHash(), c.PatientID, c.Payer, c.ProcedureCode, c.DiagnosisCode,
			c.PlaceOfService, c.ServiceDate.String(), c.SubmissionDate.String(), paymentDate,
			c.BilledAmount, c.PaidAmount, c.Units, c.PatientAge,
			boolToInt(c.Adjudicated), boolToInt(c.Denied),
		); err != nil {
			return fmt.Errorf("failed to save claim %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit claims: %w", err)
	}

	return nil
}

// GetClaim retrieves a single claim by ID.
func (s *SQLiteStorage) GetClaim(ctx context.Context, id string) (*model.ClaimRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+claimColumns+` FROM claims WHERE id = ?`, id)
	claim, err := scanClaim(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("claim %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get claim %s: %w", id, err)
	}

	return claim, nil
}

// GetClaims retrieves claims matching the filter, ordered by service date.
func (s *SQLiteStorage) GetClaims(ctx context.Context, filter service.ClaimFilter) ([]model.ClaimRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var conditions []string
	var args []any
	if filter.Start != nil {
		conditions = append(conditions, "service_date >= ?")
		args = append(args, filter.Start.String())
	}
	if filter.End != nil {
		conditions = append(conditions, "service_date <= ?")
		args = append(args, filter.End.String())
	}
	if filter.Payer != "" {
		conditions = append(conditions, "payer = ?")
		args = append(args, filter.Payer)
	}

	query := `SELECT ` + claimColumns + ` FROM claims`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY service_date, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	return s.queryClaims(ctx, query, args...)
}

// GetAdjudicatedClaims retrieves claims with a known outcome, the
// training population, in a stable order so training is reproducible.
func (s *SQLiteStorage) GetAdjudicatedClaims(ctx context.Context) ([]model.ClaimRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	return s.queryClaims(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE adjudicated = 1 ORDER BY service_date, id`)
}

func (s *SQLiteStorage) queryClaims(ctx context.Context, query string, args ...any) ([]model.ClaimRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query claims: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var claims []model.ClaimRecord
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, *claim)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim iteration failed: %w", err)
	}

	return claims, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaim(row rowScanner) (*model.ClaimRecord, error) {
	var c model.ClaimRecord
	var hash string
	var serviceDate, submissionDate string
	var paymentDate sql.NullString
	var adjudicated, denied int

	if err := row.Scan(
		&c.ID, &hash, &c.PatientID, &c.Payer, &c.ProcedureCode, &c.DiagnosisCode,
		&c.PlaceOfService, &serviceDate, &submissionDate, &paymentDate,
		&c.BilledAmount, &c.PaidAmount, &c.Units, &c.PatientAge, &adjudicated, &denied,
	); err != nil {
		return nil, err
	}

	var err error
	if c.ServiceDate, err = calendar.ParseDate(serviceDate); err != nil {
		return nil, err
	}
	if c.SubmissionDate, err = calendar.ParseDate(submissionDate); err != nil {
		return nil, err
	}
	if paymentDate.Valid && paymentDate.String != "" {
		if c.PaymentDate, err = calendar.ParseDate(paymentDate.String); err != nil {
			return nil, err
		}
	}
	c.Adjudicated = adjudicated == 1
	c.Denied = denied == 1

	return &c, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
