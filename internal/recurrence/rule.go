// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

// Package recurrence implements chore recurrence rules and next-due-date
// computation.
//
// Rules are configured in a compact string syntax:
//
//	none                      one-shot, never re-arms
//	daily                     every day at the same time of day
//	daily@08:00               every day at 08:00 local
//	daily@08:00,14:00,20:00   multiple slots per day
//	weekly                    every 7 days
//	weekly:monday             every Monday
//	biweekly                  every 14 days
//	biweekly:sunday           every other Sunday
//	monthly                   same day every month
//	monthly:31                day 31, clamped to short months
//	every:3d                  every N days/weeks/months (every:2w, every:6m)
//	after:2w                  N days/weeks/months after completion
//	end_of_day                23:59:59 local at the end of each period;
//	end_of_week               weeks end Sunday
//	end_of_month
//	end_of_quarter
//	end_of_half_year
//	end_of_year
package recurrence

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidRule is returned by Parse for malformed rule strings.
var ErrInvalidRule = errors.New("invalid recurrence rule")

// Kind identifies the recurrence shape.
type Kind string

const (
	KindNone                 Kind = "none"
	KindDaily                Kind = "daily"
	KindDailyMulti           Kind = "daily_multi"
	KindWeekly               Kind = "weekly"
	KindBiweekly             Kind = "biweekly"
	KindMonthly              Kind = "monthly"
	KindCustom               Kind = "custom"
	KindCustomFromCompletion Kind = "custom_from_completion"
	KindEndOfDay             Kind = "end_of_day"
	KindEndOfWeek            Kind = "end_of_week"
	KindEndOfMonth           Kind = "end_of_month"
	KindEndOfQuarter         Kind = "end_of_quarter"
	KindEndOfHalfYear        Kind = "end_of_half_year"
	KindEndOfYear            Kind = "end_of_year"
)

// Unit is the interval unit for custom rules.
type Unit string

const (
	UnitDays   Unit = "days"
	UnitWeeks  Unit = "weeks"
	UnitMonths Unit = "months"
)

var unitSuffix = map[byte]Unit{
	'd': UnitDays,
	'w': UnitWeeks,
	'm': UnitMonths,
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// TimeOfDay is a wall-clock slot for daily rules.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// String formats the slot as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// minutes returns the slot as minutes since midnight, for ordering.
func (t TimeOfDay) minutes() int {
	return t.Hour*60 + t.Minute
}

// Rule is a parsed recurrence rule. The zero value is the one-shot rule.
type Rule struct {
	Kind Kind

	// Times holds the daily slots, sorted ascending. One entry for a daily
	// rule with an explicit time, two or more for daily_multi, empty for a
	// plain daily rule that keeps the base's time of day.
	Times []TimeOfDay

	// Weekday anchors weekly/biweekly rules when HasWeekday is set;
	// otherwise those rules keep the base's weekday.
	Weekday    time.Weekday
	HasWeekday bool

	// MonthDay is the target day of month for monthly rules, clamped to
	// short months. Zero keeps the base's day of month.
	MonthDay int

	// N and IntervalUnit define custom and custom_from_completion intervals.
	N            int
	IntervalUnit Unit
}

// IsZero reports whether the rule is one-shot (no recurrence).
func (r Rule) IsZero() bool {
	return r.Kind == "" || r.Kind == KindNone
}

// FromCompletion reports whether the rule anchors on the completion
// timestamp rather than the previous due timestamp.
func (r Rule) FromCompletion() bool {
	return r.Kind == KindCustomFromCompletion
}

// Parse parses the compact rule syntax. An empty string parses as the
// one-shot rule.
func Parse(s string) (Rule, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	switch s {
	case "", "none":
		return Rule{Kind: KindNone}, nil
	case "daily":
		return Rule{Kind: KindDaily}, nil
	case "weekly":
		return Rule{Kind: KindWeekly}, nil
	case "biweekly":
		return Rule{Kind: KindBiweekly}, nil
	case "monthly":
		return Rule{Kind: KindMonthly}, nil
	case "end_of_day":
		return Rule{Kind: KindEndOfDay}, nil
	case "end_of_week":
		return Rule{Kind: KindEndOfWeek}, nil
	case "end_of_month":
		return Rule{Kind: KindEndOfMonth}, nil
	case "end_of_quarter":
		return Rule{Kind: KindEndOfQuarter}, nil
	case "end_of_half_year":
		return Rule{Kind: KindEndOfHalfYear}, nil
	case "end_of_year":
		return Rule{Kind: KindEndOfYear}, nil
	}

	switch {
	case strings.HasPrefix(s, "daily@"):
		return parseDailySlots(s[len("daily@"):])

	case strings.HasPrefix(s, "weekly:"):
		return parseWeekdayRule(KindWeekly, s[len("weekly:"):])

	case strings.HasPrefix(s, "biweekly:"):
		return parseWeekdayRule(KindBiweekly, s[len("biweekly:"):])

	case strings.HasPrefix(s, "monthly:"):
		day, err := strconv.Atoi(s[len("monthly:"):])
		if err != nil || day < 1 || day > 31 {
			return Rule{}, fmt.Errorf("%w: day of month %q", ErrInvalidRule, s[len("monthly:"):])
		}
		return Rule{Kind: KindMonthly, MonthDay: day}, nil

	case strings.HasPrefix(s, "every:"):
		n, unit, err := parseInterval(s[len("every:"):])
		if err != nil {
			return Rule{}, err
		}
		return Rule{Kind: KindCustom, N: n, IntervalUnit: unit}, nil

	case strings.HasPrefix(s, "after:"):
		n, unit, err := parseInterval(s[len("after:"):])
		if err != nil {
			return Rule{}, err
		}
		return Rule{Kind: KindCustomFromCompletion, N: n, IntervalUnit: unit}, nil
	}

	return Rule{}, fmt.Errorf("%w: %q", ErrInvalidRule, s)
}

// parseDailySlots parses "08:00,14:00,20:00" into a daily or daily_multi rule.
func parseDailySlots(s string) (Rule, error) {
	parts := strings.Split(s, ",")
	times := make([]TimeOfDay, 0, len(parts))
	seen := make(map[int]bool, len(parts))

	for _, part := range parts {
		tod, err := parseTimeOfDay(strings.TrimSpace(part))
		if err != nil {
			return Rule{}, err
		}
		if seen[tod.minutes()] {
			return Rule{}, fmt.Errorf("%w: duplicate time slot %q", ErrInvalidRule, part)
		}
		seen[tod.minutes()] = true
		times = append(times, tod)
	}
	if len(times) == 0 {
		return Rule{}, fmt.Errorf("%w: no time slots", ErrInvalidRule)
	}

	sort.Slice(times, func(i, j int) bool { return times[i].minutes() < times[j].minutes() })

	kind := KindDaily
	if len(times) > 1 {
		kind = KindDailyMulti
	}
	return Rule{Kind: kind, Times: times}, nil
}

func parseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("%w: time slot %q", ErrInvalidRule, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("%w: hour in %q", ErrInvalidRule, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: minute in %q", ErrInvalidRule, s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

func parseWeekdayRule(kind Kind, name string) (Rule, error) {
	wd, ok := weekdayNames[name]
	if !ok {
		return Rule{}, fmt.Errorf("%w: weekday %q", ErrInvalidRule, name)
	}
	return Rule{Kind: kind, Weekday: wd, HasWeekday: true}, nil
}

// parseInterval parses "3d", "2w" or "6m".
func parseInterval(s string) (int, Unit, error) {
	if len(s) < 2 {
		return 0, "", fmt.Errorf("%w: interval %q", ErrInvalidRule, s)
	}
	unit, ok := unitSuffix[s[len(s)-1]]
	if !ok {
		return 0, "", fmt.Errorf("%w: interval unit in %q", ErrInvalidRule, s)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n < 1 {
		return 0, "", fmt.Errorf("%w: interval count in %q", ErrInvalidRule, s)
	}
	return n, unit, nil
}

// String serializes the rule back to its canonical compact form.
func (r Rule) String() string {
	switch r.Kind {
	case "", KindNone:
		return "none"
	case KindDaily, KindDailyMulti:
		if len(r.Times) == 0 {
			return "daily"
		}
		slots := make([]string, len(r.Times))
		for i, t := range r.Times {
			slots[i] = t.String()
		}
		return "daily@" + strings.Join(slots, ",")
	case KindWeekly:
		if r.HasWeekday {
			return "weekly:" + strings.ToLower(r.Weekday.String())
		}
		return "weekly"
	case KindBiweekly:
		if r.HasWeekday {
			return "biweekly:" + strings.ToLower(r.Weekday.String())
		}
		return "biweekly"
	case KindMonthly:
		if r.MonthDay > 0 {
			return "monthly:" + strconv.Itoa(r.MonthDay)
		}
		return "monthly"
	case KindCustom:
		return "every:" + formatInterval(r.N, r.IntervalUnit)
	case KindCustomFromCompletion:
		return "after:" + formatInterval(r.N, r.IntervalUnit)
	default:
		return string(r.Kind)
	}
}

func formatInterval(n int, unit Unit) string {
	suffix := "d"
	switch unit {
	case UnitWeeks:
		suffix = "w"
	case UnitMonths:
		suffix = "m"
	}
	return strconv.Itoa(n) + suffix
}

// Describe returns a human-readable description, used in notification text.
func (r Rule) Describe() string {
	switch r.Kind {
	case "", KindNone:
		return "One time"
	case KindDaily:
		if len(r.Times) == 1 {
			return "Daily at " + r.Times[0].String()
		}
		return "Daily"
	case KindDailyMulti:
		slots := make([]string, len(r.Times))
		for i, t := range r.Times {
			slots[i] = t.String()
		}
		return "Daily at " + strings.Join(slots, ", ")
	case KindWeekly:
		if r.HasWeekday {
			return "Every " + r.Weekday.String()
		}
		return "Weekly"
	case KindBiweekly:
		if r.HasWeekday {
			return "Every other " + r.Weekday.String()
		}
		return "Every 2 weeks"
	case KindMonthly:
		if r.MonthDay > 0 {
			return fmt.Sprintf("Monthly on day %d", r.MonthDay)
		}
		return "Monthly"
	case KindCustom:
		return "Every " + describeInterval(r.N, r.IntervalUnit)
	case KindCustomFromCompletion:
		return describeInterval(r.N, r.IntervalUnit) + " after completion"
	case KindEndOfDay:
		return "End of every day"
	case KindEndOfWeek:
		return "End of every week"
	case KindEndOfMonth:
		return "End of every month"
	case KindEndOfQuarter:
		return "End of every quarter"
	case KindEndOfHalfYear:
		return "Every half year end"
	case KindEndOfYear:
		return "End of every year"
	}
	return string(r.Kind)
}

func describeInterval(n int, unit Unit) string {
	name := string(unit)
	if n == 1 {
		name = strings.TrimSuffix(name, "s")
	}
	return fmt.Sprintf("%d %s", n, name)
}
