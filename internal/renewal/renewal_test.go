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

package renewal

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddMonth_ClampsToMonthEnd(t *testing.T) {
	tests := []struct {
		in   time.Time
		want time.Time
	}{
		{date(2026, time.January, 31), date(2026, time.February, 28)},
		{date(2028, time.January, 31), date(2028, time.February, 29)},
		{date(2026, time.March, 31), date(2026, time.April, 30)},
		{date(2026, time.December, 15), date(2027, time.January, 15)},
		{date(2026, time.May, 1), date(2026, time.June, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.in.Format("2006-01-02"), func(t *testing.T) {
			if got := AddMonth(tt.in); !got.Equal(tt.want) {
				t.Errorf("AddMonth(%s) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestNext(t *testing.T) {
	now := time.Date(2026, time.February, 10, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		day  int
		want time.Time
	}{
		{"later this month", 20, date(2026, time.February, 20)},
		{"today rolls over", 10, date(2026, time.March, 10)},
		{"earlier rolls over", 5, date(2026, time.March, 5)},
		{"clamped to february end", 31, date(2026, time.February, 28)},
		{"zero treated as first", 0, date(2026, time.March, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Next(tt.day, now); !got.Equal(tt.want) {
				t.Errorf("Next(%d) = %s, want %s", tt.day, got, tt.want)
			}
		})
	}
}

func TestNext_DecemberRollsIntoNewYear(t *testing.T) {
	now := time.Date(2026, time.December, 28, 12, 0, 0, 0, time.UTC)
	if got, want := Next(3, now), date(2027, time.January, 3); !got.Equal(want) {
		t.Errorf("Next = %s, want %s", got, want)
	}
}

func TestUrgency(t *testing.T) {
	now := time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		due  time.Time
		days int
		want string
	}{
		{now.Add(36 * time.Hour), 2, UrgencyCritical},
		{now.Add(3 * 24 * time.Hour), 3, UrgencyCritical},
		{now.Add(6 * 24 * time.Hour), 6, UrgencyWarning},
		{now.Add(20 * 24 * time.Hour), 20, UrgencyNormal},
	}
	for _, tt := range tests {
		days := DaysUntil(tt.due, now)
		if days != tt.days {
			t.Errorf("DaysUntil(%s) = %d, want %d", tt.due, days, tt.days)
		}
		if got := Urgency(days); got != tt.want {
			t.Errorf("Urgency(%d) = %q, want %q", days, got, tt.want)
		}
	}
}
