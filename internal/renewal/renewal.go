// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package renewal computes billing dates on a monthly calendar.
package renewal

import (
	"math"
	"time"
)

// Urgency levels for upcoming renewals.
const (
	UrgencyCritical = "critical"
	UrgencyWarning  = "warning"
	UrgencyNormal   = "normal"
)

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonth moves t forward one calendar month, keeping the day of month
// but clamping it to the end of the target month (Jan 31 -> Feb 28).
func AddMonth(t time.Time) time.Time {
	y, m, d := t.Date()
	ty, tm, _ := time.Date(y, m+1, 1, 0, 0, 0, 0, t.Location()).Date()
	if last := DaysInMonth(ty, tm); d > last {
		d = last
	}
	return time.Date(ty, tm, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// Next returns the first date on the given day of month strictly after now,
// at midnight in now's location. Days past the end of a month clamp to its
// last day.
func Next(day int, now time.Time) time.Time {
	day = ClampDay(day)
	y, m, _ := now.Date()
	candidate := onDay(y, m, day, now.Location())
	if !candidate.After(now) {
		ny, nm, _ := time.Date(y, m+1, 1, 0, 0, 0, 0, now.Location()).Date()
		candidate = onDay(ny, nm, day, now.Location())
	}
	return candidate
}

// ClampDay bounds a renewal day to 1..31.
func ClampDay(day int) int {
	switch {
	case day < 1:
		return 1
	case day > 31:
		return 31
	}
	return day
}

func onDay(year int, month time.Month, day int, loc *time.Location) time.Time {
	if last := DaysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// DaysUntil returns the whole days from now until t, rounded up. Past dates
// yield zero or a negative count.
func DaysUntil(t, now time.Time) int {
	return int(math.Ceil(t.Sub(now).Hours() / 24))
}

// Urgency classifies how soon a renewal is due.
func Urgency(days int) string {
	switch {
	case days <= 3:
		return UrgencyCritical
	case days <= 7:
		return UrgencyWarning
	}
	return UrgencyNormal
}
