package calendar

import (
	"sort"
	"sync"
	"time"
)

// lastWeek selects the final occurrence of a weekday within the month.
const lastWeek = -1

// HolidayRule describes how a named holiday's calendar date is derived
// for a given year. Exactly one of Day or Nth/Weekday is set: a fixed-date
// rule uses Day, an nth-weekday rule uses Weekday with Nth (or lastWeek).
type HolidayRule struct {
	Name    string
	Month   time.Month
	Day     int
	Weekday time.Weekday
	Nth     int
}

// dateIn resolves the rule to its calendar date (before observance
// shifting) for the given year.
func (r HolidayRule) dateIn(year int) Date {
	if r.Day != 0 {
		return Date{Year: year, Month: r.Month, Day: r.Day}
	}

	if r.Nth == lastWeek {
		d := Date{Year: year, Month: r.Month + 1, Day: 1}.AddDays(-1)
		for d.Weekday() != r.Weekday {
			d = d.AddDays(-1)
		}
		return d
	}

	d := Date{Year: year, Month: r.Month, Day: 1}
	for d.Weekday() != r.Weekday {
		d = d.AddDays(1)
	}
	return d.AddDays(7 * (r.Nth - 1))
}

// FederalRules is the US federal holiday rule table.
var FederalRules = []HolidayRule{
	{Name: "New Year's Day", Month: time.January, Day: 1},
	{Name: "Birthday of Martin Luther King, Jr.", Month: time.January, Weekday: time.Monday, Nth: 3},
	{Name: "Washington's Birthday", Month: time.February, Weekday: time.Monday, Nth: 3},
	{Name: "Memorial Day", Month: time.May, Weekday: time.Monday, Nth: lastWeek},
	{Name: "Juneteenth National Independence Day", Month: time.June, Day: 19},
	{Name: "Independence Day", Month: time.July, Day: 4},
	{Name: "Labor Day", Month: time.September, Weekday: time.Monday, Nth: 1},
	{Name: "Columbus Day", Month: time.October, Weekday: time.Monday, Nth: 2},
	{Name: "Veterans Day", Month: time.November, Day: 11},
	{Name: "Thanksgiving Day", Month: time.November, Weekday: time.Thursday, Nth: 4},
	{Name: "Christmas Day", Month: time.December, Day: 25},
}

// observe applies the federal weekend shift: a Saturday holiday is
// observed the preceding Friday, a Sunday holiday the following Monday.
func observe(d Date) Date {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDays(-1)
	case time.Sunday:
		return d.AddDays(1)
	default:
		return d
	}
}

// Calendar resolves observed holidays per year from an immutable rule
// table plus an optional ad-hoc override list, caching each year's set.
type Calendar struct {
	rules     []HolidayRule
	overrides map[int][]Date

	cacheMu sync.RWMutex
	cache   map[int]map[Date]struct{}
}

// New creates a Calendar from a rule table and ad-hoc closure dates.
// Overrides are explicit observed dates; no weekend shift is applied.
func New(rules []HolidayRule, overrides []Date) *Calendar {
	byYear := make(map[int][]Date)
	for _, d := range overrides {
		byYear[d.Year] = append(byYear[d.Year], d)
	}

	return &Calendar{
		rules:     rules,
		overrides: byYear,
		cache:     make(map[int]map[Date]struct{}),
	}
}

// NewFederal creates a Calendar using the US federal rule table.
func NewFederal(overrides ...Date) *Calendar {
	return New(FederalRules, overrides)
}

// HolidaysForYear returns the observed holidays falling within the given
// calendar year, sorted ascending. A New Year's Day shifted into the
// previous December is attributed to the year containing the observed
// date, so every set covers exactly its own year.
func (c *Calendar) HolidaysForYear(year int) []Date {
	set := c.holidaySet(year)

	dates := make([]Date, 0, len(set))
	for d := range set {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	return dates
}

// IsHoliday reports whether the date is an observed holiday or override.
func (c *Calendar) IsHoliday(d Date) bool {
	_, ok := c.holidaySet(d.Year)[d]
	return ok
}

// holidaySet computes (or returns cached) observed holidays for a year.
// Rules from adjacent years are consulted so observances shifted across
// the year boundary land in the correct set.
func (c *Calendar) holidaySet(year int) map[Date]struct{} {
	c.cacheMu.RLock()
	set, ok := c.cache[year]
	c.cacheMu.RUnlock()
	if ok {
		return set
	}

	set = make(map[Date]struct{})
	for yy := year - 1; yy <= year+1; yy++ {
		for _, rule := range c.rules {
			obs := observe(rule.dateIn(yy))
			if obs.Year == year {
				set[obs] = struct{}{}
			}
		}
	}
	for _, d := range c.overrides[year] {
		set[d] = struct{}{}
	}

	c.cacheMu.Lock()
	c.cache[year] = set
	c.cacheMu.Unlock()

	return set
}
