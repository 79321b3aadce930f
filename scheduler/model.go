/*
 * MIT License
 *
 * Copyright (c) 2023 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package scheduler wakes at least once a minute and transitions each
// non-active job to WAITING whenever one of its rules matches the
// current (or a missed) minute, replaying any minutes skipped by a
// long pause so at most one catch-up run per rule is scheduled on a
// given wakeup.
package scheduler

import (
	"time"

	"github.com/sabouaram/barsys/job"
)

// anyHour/anyMinute mark a Rule field as unconstrained; 0 is itself a
// valid hour or minute, so unlike Year/Month/Day (where 0 never occurs
// in a real calendar date) these two need a value outside their valid
// range.
const (
	AnyHour   = -1
	AnyMinute = -1
)

// Weekday bits, Sunday = bit 0 through Saturday = bit 6; a zero mask
// means "every day of the week".
const (
	Sunday uint8 = 1 << iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday

	AnyWeekday uint8 = 0
)

func weekdayBit(d time.Weekday) uint8 {
	return 1 << uint(d)
}

// Rule is one schedule entry: a (year, month, day, weekday-mask, hour,
// minute) pattern that, when it matches a given minute and is Enabled,
// starts JobID under ArchiveType.
type Rule struct {
	ID    string
	JobID string

	Enabled bool

	Year  int // 0 = any
	Month int // 0 = any (time.January == 1)
	Day   int // 0 = any

	WeekdayMask uint8 // AnyWeekday = every day

	Hour   int // AnyHour = every hour
	Minute int // AnyMinute = every minute

	ArchiveType job.ArchiveType

	// LastCheckTime is the last minute this rule was evaluated through;
	// every minute strictly after it, up to and including "now", is
	// replayed on the next tick.
	LastCheckTime time.Time
}

// Matches reports whether t's (year, month, day, weekday, hour,
// minute) satisfies r, ignoring seconds/sub-second precision.
func (r Rule) Matches(t time.Time) bool {
	if r.Year != 0 && t.Year() != r.Year {
		return false
	}
	if r.Month != 0 && int(t.Month()) != r.Month {
		return false
	}
	if r.Day != 0 && t.Day() != r.Day {
		return false
	}
	if r.WeekdayMask != AnyWeekday && r.WeekdayMask&weekdayBit(t.Weekday()) == 0 {
		return false
	}
	if r.Hour != AnyHour && t.Hour() != r.Hour {
		return false
	}
	if r.Minute != AnyMinute && t.Minute() != r.Minute {
		return false
	}
	return true
}
