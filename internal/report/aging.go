// Package report builds AR aging summaries from stored claims.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/ledgerline/arclaim/internal/calendar"
	"github.com/ledgerline/arclaim/internal/model"
	"github.com/ledgerline/arclaim/internal/service"
)

// Aging aggregates business-day AR counts per payer. Paid claims age
// from service date to payment date; open claims age to asOf.
func Aging(claims []model.ClaimRecord, cal *calendar.Calendar, asOf calendar.Date) ([]service.AgingBucket, error) {
	type accumulator struct {
		count  int
		sum    int
		max    int
		billed float64
	}
	byPayer := make(map[string]*accumulator)

	for i := range claims {
		c := &claims[i]

		end := asOf
		if c.Paid() {
			end = c.PaymentDate
		}
		days, err := cal.BusinessDaysElapsed(c.ServiceDate, end)
		if err != nil {
			return nil, fmt.Errorf("claim %s: %w", c.ID, err)
		}

		acc := byPayer[c.Payer]
		if acc == nil {
			acc = &accumulator{}
			byPayer[c.Payer] = acc
		}
		acc.count++
		acc.sum += days
		if days > acc.max {
			acc.max = days
		}
		acc.billed += c.BilledAmount
	}

	buckets := make([]service.AgingBucket, 0, len(byPayer))
	for payer, acc := range byPayer {
		buckets = append(buckets, service.AgingBucket{
			Payer:       payer,
			ClaimCount:  acc.count,
			MeanARDays:  float64(acc.sum) / float64(acc.count),
			MaxARDays:   acc.max,
			TotalBilled: acc.billed,
		})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Payer < buckets[j].Payer })

	return buckets, nil
}

// WriteCSV renders buckets as CSV with a header row.
func WriteCSV(w io.Writer, buckets []service.AgingBucket) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"payer", "claims", "mean_ar_days", "max_ar_days", "total_billed"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, b := range buckets {
		record := []string{
			b.Payer,
			strconv.Itoa(b.ClaimCount),
			strconv.FormatFloat(b.MeanARDays, 'f', 2, 64),
			strconv.Itoa(b.MaxARDays),
			strconv.FormatFloat(b.TotalBilled, 'f', 2, 64),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", b.Payer, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
