package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/arclaim/internal/common"
)

func TestBusinessDaysElapsed(t *testing.T) {
	cal := NewFederal()

	tests := []struct {
		name  string
		start Date
		end   Date
		want  int
	}{
		{
			name:  "same day is zero under the start-exclusive convention",
			start: NewDate(2024, time.March, 6),
			end:   NewDate(2024, time.March, 6),
			want:  0,
		},
		{
			name:  "adjacent weekdays",
			start: NewDate(2024, time.March, 5),
			end:   NewDate(2024, time.March, 6),
			want:  1,
		},
		{
			name: "weekday-only span equals the raw day difference",
			// Mon Mar 4 through Fri Mar 8 2024, no holidays.
			start: NewDate(2024, time.March, 4),
			end:   NewDate(2024, time.March, 8),
			want:  4,
		},
		{
			name:  "weekend excluded",
			start: NewDate(2024, time.March, 8), // Friday
			end:   NewDate(2024, time.March, 11), // Monday
			want:  1,
		},
		{
			name: "holiday and weekend excluded",
			// Service Wed Jul 3 2024, payment Mon Jul 8 2024.
			// Jul 4 (holiday), Jul 6, Jul 7 (weekend) are excluded;
			// Jul 5 and Jul 8 count.
			start: NewDate(2024, time.July, 3),
			end:   NewDate(2024, time.July, 8),
			want:  2,
		},
		{
			name: "observed holiday excluded",
			// Jul 4 2021 was a Sunday, observed Mon Jul 5.
			start: NewDate(2021, time.July, 2), // Friday
			end:   NewDate(2021, time.July, 6), // Tuesday
			want:  1,
		},
		{
			name: "year boundary with shifted new years",
			// Dec 30 2021 (Thu) through Jan 4 2022 (Tue). Dec 31 was
			// the observed New Year's Day 2022; Jan 1/2 are the weekend.
			start: NewDate(2021, time.December, 30),
			end:   NewDate(2022, time.January, 4),
			want:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cal.BusinessDaysElapsed(tt.start, tt.end)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBusinessDaysElapsed_InvalidRange(t *testing.T) {
	cal := NewFederal()

	_, err := cal.BusinessDaysElapsed(NewDate(2024, time.March, 6), NewDate(2024, time.March, 5))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidRange)
}

func TestBusinessDaysElapsed_MultiYearSpan(t *testing.T) {
	cal := NewFederal()

	// 2022 has 260 weekdays. Ten observed holidays fell on weekdays
	// within the year: New Year's was observed Dec 31 2021 (outside the
	// range), while Juneteenth and Christmas shifted from Sunday to the
	// following Monday.
	got, err := cal.BusinessDaysElapsed(NewDate(2021, time.December, 31), NewDate(2022, time.December, 31))
	require.NoError(t, err)
	assert.Equal(t, 250, got)
}

func TestBusinessDaysElapsed_OverrideClosure(t *testing.T) {
	closure := NewDate(2024, time.March, 6) // Wednesday
	cal := NewFederal(closure)

	got, err := cal.BusinessDaysElapsed(NewDate(2024, time.March, 5), NewDate(2024, time.March, 7))
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}
