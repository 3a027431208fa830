// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

package recurrence

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/choreus/internal/logging"
)

// MaxIterations bounds the advance loop in NextDue. Hitting the ceiling is a
// logged best-effort result, never an infinite loop: the pathological cases
// are month-end and period-end anchors that advance by sub-day deltas.
const MaxIterations = 1000

// Calculator computes next due timestamps. Day, week and month boundary
// arithmetic happens in the configured local zone; callers compare the
// results in UTC.
type Calculator struct {
	loc *time.Location
	log zerolog.Logger
}

// NewCalculator returns a Calculator computing boundaries in loc.
// A nil loc means UTC.
func NewCalculator(loc *time.Location) *Calculator {
	if loc == nil {
		loc = time.UTC
	}
	return &Calculator{
		loc: loc,
		log: logging.Component("recurrence"),
	}
}

// Location returns the calculator's boundary zone.
func (c *Calculator) Location() *time.Location {
	return c.loc
}

// NextDue returns the next due timestamp after applying one recurrence step
// to base. With requireFuture set, steps are applied until the result lands
// strictly after now, bounded by MaxIterations. One-shot rules return the
// zero time.
//
// For custom_from_completion rules the caller must pass the completion
// timestamp as base, not the previous due timestamp.
func (c *Calculator) NextDue(rule Rule, base, now time.Time, requireFuture bool) time.Time {
	if rule.IsZero() {
		return time.Time{}
	}

	next := c.step(rule, base.In(c.loc))
	if !requireFuture {
		return next
	}

	for i := 0; i < MaxIterations; i++ {
		if next.After(now) {
			return next
		}
		advanced := c.step(rule, next)
		if !advanced.After(next) {
			// Stalled: force a whole-day advance. An hour is not enough to
			// clear month-end and period-end anchors.
			advanced = next.AddDate(0, 0, 1)
		}
		next = advanced
	}

	c.log.Warn().
		Str("rule", rule.String()).
		Time("base", base).
		Time("now", now).
		Time("result", next).
		Int("iterations", MaxIterations).
		Msg("iteration ceiling reached, returning best-effort due time")
	return next
}

// NextDueFiltered is NextDue restricted to the given applicable weekdays
// (local zone). An empty filter applies no restriction. A filter excluding
// every weekday is rejected at configuration time; should one slip through,
// the iteration ceiling still bounds the search.
func (c *Calculator) NextDueFiltered(rule Rule, base, now time.Time, requireFuture bool, days []time.Weekday) time.Time {
	next := c.NextDue(rule, base, now, requireFuture)
	if next.IsZero() || len(days) == 0 {
		return next
	}

	for i := 0; i < MaxIterations; i++ {
		if weekdayIn(next.In(c.loc).Weekday(), days) {
			return next
		}
		advanced := c.step(rule, next)
		if !advanced.After(next) {
			advanced = next.AddDate(0, 0, 1)
		}
		next = advanced
	}

	c.log.Warn().
		Str("rule", rule.String()).
		Time("result", next).
		Msg("no applicable weekday found within iteration ceiling")
	return next
}

func weekdayIn(wd time.Weekday, days []time.Weekday) bool {
	for _, d := range days {
		if d == wd {
			return true
		}
	}
	return false
}

// step applies a single recurrence advance to t (already in c.loc) and
// returns a timestamp strictly after t for every kind except a degenerate
// custom rule, which NextDue's stall guard covers.
func (c *Calculator) step(rule Rule, t time.Time) time.Time {
	switch rule.Kind {
	case KindDaily, KindDailyMulti:
		if len(rule.Times) == 0 {
			return t.AddDate(0, 0, 1)
		}
		return c.nextSlot(t, rule.Times)

	case KindWeekly:
		return c.nextWeekday(t, rule, 7)

	case KindBiweekly:
		return c.nextWeekday(t, rule, 14)

	case KindMonthly:
		day := rule.MonthDay
		if day == 0 {
			day = t.Day()
		}
		return addMonthsClamped(t, 1, day)

	case KindCustom, KindCustomFromCompletion:
		switch rule.IntervalUnit {
		case UnitWeeks:
			return t.AddDate(0, 0, 7*rule.N)
		case UnitMonths:
			return addMonthsClamped(t, rule.N, t.Day())
		default:
			return t.AddDate(0, 0, rule.N)
		}

	case KindEndOfDay:
		return c.nextPeriodEnd(t, func(d time.Time) time.Time { return d })

	case KindEndOfWeek:
		return c.nextPeriodEnd(t, func(d time.Time) time.Time {
			// Weeks end Sunday.
			offset := (int(time.Sunday) - int(d.Weekday()) + 7) % 7
			return d.AddDate(0, 0, offset)
		})

	case KindEndOfMonth:
		return c.nextPeriodEnd(t, func(d time.Time) time.Time {
			return time.Date(d.Year(), d.Month(), daysInMonth(d.Year(), d.Month()), 0, 0, 0, 0, c.loc)
		})

	case KindEndOfQuarter:
		return c.nextPeriodEnd(t, func(d time.Time) time.Time {
			m := endMonthOfPeriod(d.Month(), 3)
			return time.Date(d.Year(), m, daysInMonth(d.Year(), m), 0, 0, 0, 0, c.loc)
		})

	case KindEndOfHalfYear:
		return c.nextPeriodEnd(t, func(d time.Time) time.Time {
			m := endMonthOfPeriod(d.Month(), 6)
			return time.Date(d.Year(), m, daysInMonth(d.Year(), m), 0, 0, 0, 0, c.loc)
		})

	case KindEndOfYear:
		return c.nextPeriodEnd(t, func(d time.Time) time.Time {
			return time.Date(d.Year(), time.December, 31, 0, 0, 0, 0, c.loc)
		})
	}

	// Unknown kinds behave as one-shot daily advance so the sweep keeps
	// functioning; Parse rejects them before they get here.
	return t.AddDate(0, 0, 1)
}

// nextSlot returns the earliest configured time-of-day strictly after t,
// rolling to the first slot on the next day when all of today's slots have
// passed. Times must be sorted ascending.
func (c *Calculator) nextSlot(t time.Time, times []TimeOfDay) time.Time {
	for _, slot := range times {
		candidate := time.Date(t.Year(), t.Month(), t.Day(), slot.Hour, slot.Minute, 0, 0, c.loc)
		if candidate.After(t) {
			return candidate
		}
	}
	first := times[0]
	next := t.AddDate(0, 0, 1)
	return time.Date(next.Year(), next.Month(), next.Day(), first.Hour, first.Minute, 0, 0, c.loc)
}

// nextWeekday advances by span days, first aligning to the rule's anchor
// weekday when one is configured.
func (c *Calculator) nextWeekday(t time.Time, rule Rule, span int) time.Time {
	if !rule.HasWeekday {
		return t.AddDate(0, 0, span)
	}
	days := (int(rule.Weekday) - int(t.Weekday()) + 7) % 7
	if days == 0 {
		days = span
	}
	return t.AddDate(0, 0, days)
}

// nextPeriodEnd resolves the period end containing t to 23:59:59 local; if
// that instant is not strictly after t, it resolves the period containing
// the next day instead.
func (c *Calculator) nextPeriodEnd(t time.Time, endDay func(time.Time) time.Time) time.Time {
	candidate := atEndOfDay(endDay(t), c.loc)
	if candidate.After(t) {
		return candidate
	}
	return atEndOfDay(endDay(t.AddDate(0, 0, 1)), c.loc)
}

func atEndOfDay(d time.Time, loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, loc)
}

// endMonthOfPeriod returns the final month of the size-month period
// containing m (size 3 for quarters, 6 for half years).
func endMonthOfPeriod(m time.Month, size int) time.Month {
	idx := (int(m) - 1) / size
	return time.Month((idx + 1) * size)
}

// addMonthsClamped adds n months keeping the target day of month, clamping
// to the last day of short months. This deliberately avoids time.AddDate's
// overflow normalization (Jan 31 + 1 month must be Feb 28/29, not Mar 3).
func addMonthsClamped(t time.Time, n, day int) time.Time {
	year, month := t.Year(), int(t.Month())+n
	year += (month - 1) / 12
	month = (month-1)%12 + 1

	m := time.Month(month)
	if max := daysInMonth(year, m); day > max {
		day = max
	}
	return time.Date(year, m, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, m time.Month) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
