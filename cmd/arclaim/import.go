package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ledgerline/arclaim/internal/calendar"
	"github.com/ledgerline/arclaim/internal/common"
	"github.com/ledgerline/arclaim/internal/model"
	"github.com/ledgerline/arclaim/internal/service"
)

// Column order for claim CSV files. The header row is required and
// checked so a reordered export fails loudly instead of silently
// swapping fields.
var claimCSVHeader = []string{
	"id", "patient_id", "payer", "procedure_code", "diagnosis_code",
	"place_of_service", "service_date", "submission_date", "payment_date",
	"billed_amount", "paid_amount", "units", "patient_age",
	"adjudicated", "denied",
}

func importCmd() *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "import <claims.csv>",
		Short: "Import claims from a CSV export",
		Long: `Import claims from a CSV export of the practice management system.

Re-importing is safe: claims are deduplicated on a content hash, and an
existing claim picks up payment and adjudication updates in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], batchSize)
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", 500, "claims per database transaction")

	return cmd
}

func runImport(cmd *cobra.Command, path string, batchSize int) error {
	ctx := cmd.Context()

	claims, err := loadClaimsCSV(path)
	if err != nil {
		return err
	}
	if len(claims) == 0 {
		slog.Info("No claims found in file", "file", path)
		return nil
	}

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	bar := progressbar.NewOptions(len(claims),
		progressbar.OptionSetDescription("Importing claims..."),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
	)

	imported := 0
	for start := 0; start < len(claims); start += batchSize {
		end := start + batchSize
		if end > len(claims) {
			end = len(claims)
		}
		batch := claims[start:end]

		err := common.WithRetry(ctx, func() error {
			return store.SaveClaims(ctx, batch)
		}, service.RetryOptions{MaxAttempts: 3, InitialDelay: 200 * time.Millisecond})
		if err != nil {
			return fmt.Errorf("failed to save claims %d-%d: %w", start, end-1, err)
		}

		imported += len(batch)
		_ = bar.Add(len(batch))
	}
	_ = bar.Finish()
	fmt.Println()

	slog.Info("Import complete", "file", path, "claims", imported)
	return nil
}

// loadClaimsCSV parses a claim CSV file, validating the header and every
// row before anything touches the database.
func loadClaimsCSV(path string) ([]model.ClaimRecord, error) {
	f, err := os.Open(path) // #nosec G304 -- operator-supplied import path
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(claimCSVHeader)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i, want := range claimCSVHeader {
		if header[i] != want {
			return nil, fmt.Errorf("unexpected CSV header: column %d is %q, want %q", i, header[i], want)
		}
	}

	var claims []model.ClaimRecord
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		claim, err := parseClaimRow(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		claims = append(claims, claim)
	}

	return claims, nil
}

func parseClaimRow(record []string) (model.ClaimRecord, error) {
	claim := model.ClaimRecord{
		ID:             record[0],
		PatientID:      record[1],
		Payer:          record[2],
		ProcedureCode:  record[3],
		DiagnosisCode:  record[4],
		PlaceOfService: record[5],
	}
	if claim.ID == "" {
		return model.ClaimRecord{}, fmt.Errorf("missing claim id")
	}

	var err error
	if claim.ServiceDate, err = calendar.ParseDate(record[6]); err != nil {
		return model.ClaimRecord{}, fmt.Errorf("service_date: %w", err)
	}
	if claim.SubmissionDate, err = calendar.ParseDate(record[7]); err != nil {
		return model.ClaimRecord{}, fmt.Errorf("submission_date: %w", err)
	}
	if record[8] != "" {
		if claim.PaymentDate, err = calendar.ParseDate(record[8]); err != nil {
			return model.ClaimRecord{}, fmt.Errorf("payment_date: %w", err)
		}
	}

	if claim.BilledAmount, err = strconv.ParseFloat(record[9], 64); err != nil {
		return model.ClaimRecord{}, fmt.Errorf("billed_amount: %w", err)
	}
	if record[10] != "" {
		if claim.PaidAmount, err = strconv.ParseFloat(record[10], 64); err != nil {
			return model.ClaimRecord{}, fmt.Errorf("paid_amount: %w", err)
		}
	}
	if claim.Units, err = strconv.Atoi(record[11]); err != nil {
		return model.ClaimRecord{}, fmt.Errorf("units: %w", err)
	}
	if claim.PatientAge, err = strconv.Atoi(record[12]); err != nil {
		return model.ClaimRecord{}, fmt.Errorf("patient_age: %w", err)
	}

	if record[13] != "" {
		if claim.Adjudicated, err = strconv.ParseBool(record[13]); err != nil {
			return model.ClaimRecord{}, fmt.Errorf("adjudicated: %w", err)
		}
	}
	if record[14] != "" {
		if claim.Denied, err = strconv.ParseBool(record[14]); err != nil {
			return model.ClaimRecord{}, fmt.Errorf("denied: %w", err)
		}
	}
	if claim.Denied && !claim.Adjudicated {
		return model.ClaimRecord{}, fmt.Errorf("claim %s marked denied but not adjudicated", claim.ID)
	}

	return claim, nil
}
