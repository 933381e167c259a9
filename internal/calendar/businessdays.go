package calendar

import (
	"fmt"

	"github.com/ledgerline/arclaim/internal/common"
)

// BusinessDaysElapsed counts business days between start and end using a
// start-exclusive, end-inclusive convention: the start date is day zero,
// so BusinessDaysElapsed(d, d) == 0. A business day is any weekday that
// is not an observed holiday. Returns ErrInvalidRange when end precedes
// start.
//
// Holiday sets are resolved once per distinct year spanned, so multi-year
// ranges stay linear in days with no repeated rule evaluation.
func (c *Calendar) BusinessDaysElapsed(start, end Date) (int, error) {
	if end.Before(start) {
		return 0, fmt.Errorf("%w: start %s, end %s", common.ErrInvalidRange, start, end)
	}

	count := 0
	holidays := c.holidaySet(start.Year)
	year := start.Year

	for d := start.AddDays(1); !d.After(end); d = d.AddDays(1) {
		if d.Year != year {
			year = d.Year
			holidays = c.holidaySet(year)
		}
		if d.IsWeekend() {
			continue
		}
		if _, ok := holidays[d]; ok {
			continue
		}
		count++
	}

	return count, nil
}
