// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

package recurrence

import (
	"errors"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Rule
		wantErr bool
	}{
		{
			name:  "empty string is one-shot",
			input: "",
			want:  Rule{Kind: KindNone},
		},
		{
			name:  "none",
			input: "none",
			want:  Rule{Kind: KindNone},
		},
		{
			name:  "plain daily",
			input: "daily",
			want:  Rule{Kind: KindDaily},
		},
		{
			name:  "daily with single time",
			input: "daily@08:00",
			want:  Rule{Kind: KindDaily, Times: []TimeOfDay{{8, 0}}},
		},
		{
			name:  "daily with multiple times",
			input: "daily@08:00,14:00,20:00",
			want: Rule{Kind: KindDailyMulti, Times: []TimeOfDay{
				{8, 0}, {14, 0}, {20, 0},
			}},
		},
		{
			name:  "daily multi sorts slots",
			input: "daily@20:00,08:00",
			want: Rule{Kind: KindDailyMulti, Times: []TimeOfDay{
				{8, 0}, {20, 0},
			}},
		},
		{
			name:  "weekly without anchor",
			input: "weekly",
			want:  Rule{Kind: KindWeekly},
		},
		{
			name:  "weekly with weekday",
			input: "weekly:monday",
			want:  Rule{Kind: KindWeekly, Weekday: time.Monday, HasWeekday: true},
		},
		{
			name:  "biweekly with weekday",
			input: "biweekly:sunday",
			want:  Rule{Kind: KindBiweekly, Weekday: time.Sunday, HasWeekday: true},
		},
		{
			name:  "monthly with day",
			input: "monthly:31",
			want:  Rule{Kind: KindMonthly, MonthDay: 31},
		},
		{
			name:  "custom days",
			input: "every:3d",
			want:  Rule{Kind: KindCustom, N: 3, IntervalUnit: UnitDays},
		},
		{
			name:  "custom weeks",
			input: "every:2w",
			want:  Rule{Kind: KindCustom, N: 2, IntervalUnit: UnitWeeks},
		},
		{
			name:  "custom months",
			input: "every:6m",
			want:  Rule{Kind: KindCustom, N: 6, IntervalUnit: UnitMonths},
		},
		{
			name:  "from completion",
			input: "after:2w",
			want:  Rule{Kind: KindCustomFromCompletion, N: 2, IntervalUnit: UnitWeeks},
		},
		{
			name:  "end of month",
			input: "end_of_month",
			want:  Rule{Kind: KindEndOfMonth},
		},
		{
			name:  "case and whitespace normalized",
			input: "  Weekly:Monday ",
			want:  Rule{Kind: KindWeekly, Weekday: time.Monday, HasWeekday: true},
		},
		{
			name:    "unknown keyword",
			input:   "fortnightly",
			wantErr: true,
		},
		{
			name:    "bad hour",
			input:   "daily@25:00",
			wantErr: true,
		},
		{
			name:    "bad minute",
			input:   "daily@08:61",
			wantErr: true,
		},
		{
			name:    "missing colon in slot",
			input:   "daily@0800",
			wantErr: true,
		},
		{
			name:    "duplicate slot",
			input:   "daily@08:00,08:00",
			wantErr: true,
		},
		{
			name:    "unknown weekday",
			input:   "weekly:someday",
			wantErr: true,
		},
		{
			name:    "month day zero",
			input:   "monthly:0",
			wantErr: true,
		},
		{
			name:    "month day out of range",
			input:   "monthly:32",
			wantErr: true,
		},
		{
			name:    "interval count zero",
			input:   "every:0d",
			wantErr: true,
		},
		{
			name:    "interval bad unit",
			input:   "every:3y",
			wantErr: true,
		},
		{
			name:    "interval missing count",
			input:   "after:w",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRule) {
					t.Errorf("Parse(%q) error = %v, want ErrInvalidRule", tt.input, err)
				}
				return
			}
			if !rulesEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestStringRoundTrip(t *testing.T) {
	inputs := []string{
		"none",
		"daily",
		"daily@08:00",
		"daily@08:00,14:00,20:00",
		"weekly",
		"weekly:monday",
		"biweekly",
		"biweekly:sunday",
		"monthly",
		"monthly:31",
		"every:3d",
		"every:2w",
		"every:6m",
		"after:2w",
		"end_of_day",
		"end_of_week",
		"end_of_month",
		"end_of_quarter",
		"end_of_half_year",
		"end_of_year",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			rule, err := Parse(input)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", input, err)
			}
			if got := rule.String(); got != input {
				t.Errorf("Parse(%q).String() = %q", input, got)
			}
			again, err := Parse(rule.String())
			if err != nil {
				t.Fatalf("re-Parse(%q) error = %v", rule.String(), err)
			}
			if !rulesEqual(rule, again) {
				t.Errorf("round trip changed rule: %+v vs %+v", rule, again)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"none", "One time"},
		{"daily@08:00", "Daily at 08:00"},
		{"weekly:monday", "Every Monday"},
		{"biweekly", "Every 2 weeks"},
		{"monthly:15", "Monthly on day 15"},
		{"every:1d", "Every 1 day"},
		{"every:3w", "Every 3 weeks"},
		{"after:2w", "2 weeks after completion"},
		{"end_of_month", "End of every month"},
	}

	for _, tt := range tests {
		rule, err := Parse(tt.input)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", tt.input, err)
		}
		if got := rule.Describe(); got != tt.want {
			t.Errorf("Describe(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func rulesEqual(a, b Rule) bool {
	if a.Kind != b.Kind || a.Weekday != b.Weekday || a.HasWeekday != b.HasWeekday ||
		a.MonthDay != b.MonthDay || a.N != b.N || a.IntervalUnit != b.IntervalUnit {
		return false
	}
	if len(a.Times) != len(b.Times) {
		return false
	}
	for i := range a.Times {
		if a.Times[i] != b.Times[i] {
			return false
		}
	}
	return true
}
