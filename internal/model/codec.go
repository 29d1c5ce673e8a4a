package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Datetimes are stored as naive local ISO-8601 with microsecond precision.
const isoLayout = "2006-01-02T15:04:05.999999"

var inputLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseDateTime parses an ISO-8601 datetime or date. Values without a zone
// are read in local time.
func ParseDateTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range inputLayouts {
		var (
			t   time.Time
			err error
		)
		if layout == time.RFC3339Nano {
			t, err = time.Parse(layout, raw)
		} else {
			t, err = time.ParseInLocation(layout, raw, time.Local)
		}
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid datetime %q", raw)
}

// FormatDateTime renders t the way the data file stores it.
func FormatDateTime(t time.Time) string {
	return t.In(time.Local).Format(isoLayout)
}

type taskJSON struct {
	ID             string  `json:"id,omitempty"`
	Name           string  `json:"name"`
	Priority       string  `json:"priority"`
	Duration       int     `json:"duration"`
	DueDate        *string `json:"due_date"`
	StartTime      *string `json:"start_time"`
	Completed      bool    `json:"completed"`
	Description    string  `json:"description,omitempty"`
	Recurrence     string  `json:"recurrence,omitempty"`
	RecurrenceDays *int    `json:"recurrence_days"`
	LastCompleted  *string `json:"last_completed"`
}

func (t Task) MarshalJSON() ([]byte, error) {
	wire := taskJSON{
		ID:             t.ID,
		Name:           t.Name,
		Priority:       string(t.Priority),
		Duration:       t.Duration,
		Completed:      t.Completed,
		Description:    t.Description,
		Recurrence:     string(t.Recurrence),
		RecurrenceDays: t.RecurrenceDays,
	}
	if wire.Recurrence == "" {
		wire.Recurrence = string(RecurrenceOnce)
	}
	if t.DueDate != nil {
		s := FormatDateTime(*t.DueDate)
		wire.DueDate = &s
	}
	if t.StartTime != nil {
		s := t.StartTime.ISO()
		wire.StartTime = &s
	}
	if t.LastCompleted != nil {
		s := FormatDateTime(*t.LastCompleted)
		wire.LastCompleted = &s
	}
	return json.Marshal(wire)
}

func (t *Task) UnmarshalJSON(data []byte) error {
	var wire taskJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	priority, err := ParsePriority(wire.Priority)
	if err != nil {
		return fmt.Errorf("task %q: %w", wire.Name, err)
	}
	decoded := Task{
		ID:             wire.ID,
		Name:           wire.Name,
		Priority:       priority,
		Duration:       wire.Duration,
		Completed:      wire.Completed,
		Description:    wire.Description,
		Recurrence:     RecurrenceOnce,
		RecurrenceDays: wire.RecurrenceDays,
	}
	if decoded.ID == "" {
		decoded.ID = uuid.NewString()
	}
	// Unknown recurrence values are kept so NeedsScheduling can fail open.
	if raw := strings.ToLower(strings.TrimSpace(wire.Recurrence)); raw != "" {
		decoded.Recurrence = Recurrence(raw)
	}
	if wire.DueDate != nil {
		due, err := ParseDateTime(*wire.DueDate)
		if err != nil {
			return fmt.Errorf("task %q due_date: %w", wire.Name, err)
		}
		decoded.DueDate = &due
	}
	if wire.StartTime != nil {
		start, err := ParseClockTime(*wire.StartTime)
		if err != nil {
			return fmt.Errorf("task %q start_time: %w", wire.Name, err)
		}
		decoded.StartTime = &start
	}
	if wire.LastCompleted != nil {
		last, err := ParseDateTime(*wire.LastCompleted)
		if err != nil {
			return fmt.Errorf("task %q last_completed: %w", wire.Name, err)
		}
		decoded.LastCompleted = &last
	}
	*t = decoded
	return nil
}

type petJSON struct {
	Name   string  `json:"name"`
	Breed  string  `json:"breed"`
	Age    int     `json:"age"`
	Weight float64 `json:"weight"`
	Tasks  []*Task `json:"tasks"`
}

func (p Pet) MarshalJSON() ([]byte, error) {
	tasks := p.Tasks
	if tasks == nil {
		tasks = []*Task{}
	}
	return json.Marshal(petJSON{Name: p.Name, Breed: p.Breed, Age: p.Age, Weight: p.Weight, Tasks: tasks})
}

func (p *Pet) UnmarshalJSON(data []byte) error {
	var wire petJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*p = Pet{Name: wire.Name, Breed: wire.Breed, Age: wire.Age, Weight: wire.Weight, Tasks: wire.Tasks}
	return nil
}

type ownerJSON struct {
	Name string `json:"name"`
	Pets []*Pet `json:"pets"`
}

func (o Owner) MarshalJSON() ([]byte, error) {
	pets := o.Pets
	if pets == nil {
		pets = []*Pet{}
	}
	return json.Marshal(ownerJSON{Name: o.Name, Pets: pets})
}

func (o *Owner) UnmarshalJSON(data []byte) error {
	var wire ownerJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*o = Owner{Name: wire.Name, Pets: wire.Pets}
	return nil
}
