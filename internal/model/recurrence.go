package model

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidRecurrence = errors.New("invalid recurrence")

// Recurrence tells how often a task repeats.
type Recurrence string

const (
	RecurrenceOnce     Recurrence = "once"
	RecurrenceDaily    Recurrence = "daily"
	RecurrenceWeekly   Recurrence = "weekly"
	RecurrenceBiweekly Recurrence = "biweekly"
	RecurrenceMonthly  Recurrence = "monthly"
)

var Recurrences = []Recurrence{
	RecurrenceOnce,
	RecurrenceDaily,
	RecurrenceWeekly,
	RecurrenceBiweekly,
	RecurrenceMonthly,
}

func ParseRecurrence(raw string) (Recurrence, error) {
	r := Recurrence(strings.ToLower(strings.TrimSpace(raw)))
	if r == "" {
		return RecurrenceOnce, nil
	}
	if _, ok := r.IntervalDays(); !ok && r != RecurrenceOnce {
		return "", fmt.Errorf("%w: %q", ErrInvalidRecurrence, raw)
	}
	return r, nil
}

// IntervalDays returns the fixed number of days between two occurrences.
// Monthly is a flat 30 days. The second result is false for once and for
// values outside the known set.
func (r Recurrence) IntervalDays() (int, bool) {
	switch r {
	case RecurrenceDaily:
		return 1, true
	case RecurrenceWeekly:
		return 7, true
	case RecurrenceBiweekly:
		return 14, true
	case RecurrenceMonthly:
		return 30, true
	default:
		return 0, false
	}
}

func (r Recurrence) IsRecurring() bool { return r != RecurrenceOnce && r != "" }

func (r Recurrence) String() string { return string(r) }
