package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolidayRule_DateIn(t *testing.T) {
	tests := []struct {
		name string
		rule HolidayRule
		year int
		want Date
	}{
		{
			name: "fixed date",
			rule: HolidayRule{Name: "Independence Day", Month: time.July, Day: 4},
			year: 2024,
			want: NewDate(2024, time.July, 4),
		},
		{
			name: "fourth thursday of november",
			rule: HolidayRule{Name: "Thanksgiving Day", Month: time.November, Weekday: time.Thursday, Nth: 4},
			year: 2024,
			want: NewDate(2024, time.November, 28),
		},
		{
			name: "third monday of january",
			rule: HolidayRule{Name: "MLK Day", Month: time.January, Weekday: time.Monday, Nth: 3},
			year: 2024,
			want: NewDate(2024, time.January, 15),
		},
		{
			name: "last monday of may",
			rule: HolidayRule{Name: "Memorial Day", Month: time.May, Weekday: time.Monday, Nth: lastWeek},
			year: 2024,
			want: NewDate(2024, time.May, 27),
		},
		{
			name: "last monday of may on the 31st",
			rule: HolidayRule{Name: "Memorial Day", Month: time.May, Weekday: time.Monday, Nth: lastWeek},
			year: 2021,
			want: NewDate(2021, time.May, 31),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rule.dateIn(tt.year))
		})
	}
}

func TestCalendar_ObservanceShifts(t *testing.T) {
	cal := NewFederal()

	// July 4 2021 fell on a Sunday; observed the following Monday.
	assert.True(t, cal.IsHoliday(NewDate(2021, time.July, 5)))
	assert.False(t, cal.IsHoliday(NewDate(2021, time.July, 4)))

	// Christmas 2021 fell on a Saturday; observed the preceding Friday.
	assert.True(t, cal.IsHoliday(NewDate(2021, time.December, 24)))
	assert.False(t, cal.IsHoliday(NewDate(2021, time.December, 25)))

	// A midweek holiday observes on its calendar date.
	assert.True(t, cal.IsHoliday(NewDate(2024, time.July, 4)))
}

func TestCalendar_YearBoundaryAttribution(t *testing.T) {
	cal := NewFederal()

	// New Year's Day 2022 fell on a Saturday and was observed Friday,
	// December 31 2021. It belongs to 2021's set, not 2022's.
	assert.True(t, cal.IsHoliday(NewDate(2021, time.December, 31)))
	assert.False(t, cal.IsHoliday(NewDate(2022, time.January, 1)))

	holidays2021 := cal.HolidaysForYear(2021)
	require.NotEmpty(t, holidays2021)
	for _, d := range holidays2021 {
		assert.Equal(t, 2021, d.Year, "every holiday in the 2021 set must fall in 2021")
	}
	assert.Equal(t, NewDate(2021, time.December, 31), holidays2021[len(holidays2021)-1])

	// 2021 carries twelve observed dates: its own eleven holidays
	// (Juneteenth shifted to June 18) plus the borrowed New Year's Eve.
	assert.Len(t, holidays2021, 12)
}

func TestCalendar_HolidaysForYearSortedAndCached(t *testing.T) {
	cal := NewFederal()

	first := cal.HolidaysForYear(2024)
	second := cal.HolidaysForYear(2024)

	require.Len(t, first, 11)
	assert.Equal(t, first, second)
	for i := 1; i < len(first); i++ {
		assert.True(t, first[i-1].Before(first[i]), "holidays must be sorted ascending")
	}
	assert.Equal(t, NewDate(2024, time.January, 1), first[0])
	assert.Equal(t, NewDate(2024, time.December, 25), first[len(first)-1])
}

func TestCalendar_Overrides(t *testing.T) {
	closure := NewDate(2024, time.March, 15)
	cal := NewFederal(closure)

	assert.True(t, cal.IsHoliday(closure))

	// Overrides merge with the rule table rather than replacing it.
	assert.True(t, cal.IsHoliday(NewDate(2024, time.July, 4)))
}

func TestCalendar_SyntheticRules(t *testing.T) {
	// A calendar with an injected synthetic rule table, per the
	// constructor-injection design.
	rules := []HolidayRule{
		{Name: "Founders Day", Month: time.April, Day: 2},
	}
	cal := New(rules, nil)

	// April 2 2022 was a Saturday; observed Friday April 1.
	assert.True(t, cal.IsHoliday(NewDate(2022, time.April, 1)))
	assert.False(t, cal.IsHoliday(NewDate(2022, time.April, 2)))
	assert.False(t, cal.IsHoliday(NewDate(2022, time.July, 4)))
}
