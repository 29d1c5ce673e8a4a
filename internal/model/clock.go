package model

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidClockTime = errors.New("invalid clock time")

// ClockTime is a time of day without a date, used for fixed appointment slots.
type ClockTime struct {
	Hour   int
	Minute int
	Second int
}

func NewClockTime(hour, minute int) ClockTime {
	return ClockTime{Hour: hour, Minute: minute}
}

// ParseClockTime accepts HH:MM, HH:MM:SS and HH:MM:SS.ffffff.
// Fractional seconds are dropped.
func ParseClockTime(raw string) (ClockTime, error) {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, '.'); i >= 0 {
		raw = raw[:i]
	}
	parts := strings.Split(raw, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return ClockTime{}, fmt.Errorf("%w: %q, expected HH:MM", ErrInvalidClockTime, raw)
	}
	values := make([]int, 3)
	limits := []int{23, 59, 59}
	for i, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil || v < 0 || v > limits[i] {
			return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidClockTime, raw)
		}
		values[i] = v
	}
	return ClockTime{Hour: values[0], Minute: values[1], Second: values[2]}, nil
}

// Offset is the time elapsed since midnight.
func (c ClockTime) Offset() time.Duration {
	return time.Duration(c.Hour)*time.Hour + time.Duration(c.Minute)*time.Minute + time.Duration(c.Second)*time.Second
}

// On places the clock time on the calendar date of day, in day's location.
func (c ClockTime) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, c.Second, 0, day.Location())
}

// String renders HH:MM, or HH:MM:SS when seconds are set.
func (c ClockTime) String() string {
	if c.Second != 0 {
		return c.ISO()
	}
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ISO renders HH:MM:SS.
func (c ClockTime) ISO() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
}

func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.ISO()), nil
}

func (c *ClockTime) UnmarshalText(text []byte) error {
	parsed, err := ParseClockTime(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (ClockTime) GormDataType() string { return "text" }

func (c ClockTime) Value() (driver.Value, error) {
	return c.ISO(), nil
}

func (c *ClockTime) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return c.UnmarshalText([]byte(v))
	case []byte:
		return c.UnmarshalText(v)
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrInvalidClockTime, src)
	}
}
