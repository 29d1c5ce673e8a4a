package model

import (
	"time"

	"github.com/google/uuid"
)

// Task is a single unit of pet care work.
type Task struct {
	ID             string     `gorm:"primaryKey;size:36"`
	PetID          uint       `gorm:"index"`
	Position       int        // insertion order inside the owning pet
	Name           string     `gorm:"not null"`
	Priority       Priority   `gorm:"size:16"`
	Duration       int        // minutes
	DueDate        *time.Time // only the calendar date matters for ordering
	StartTime      *ClockTime // set only for fixed appointment slots
	Completed      bool       `gorm:"default:false"`
	Description    string
	Recurrence     Recurrence `gorm:"size:16;default:once"`
	RecurrenceDays *int       // reserved, carried along but not used for intervals
	LastCompleted  *time.Time
}

// NewTask returns a pending one-off task with a fresh identity.
func NewTask(name string, priority Priority, duration int) *Task {
	return &Task{
		ID:         uuid.NewString(),
		Name:       name,
		Priority:   priority,
		Duration:   duration,
		Recurrence: RecurrenceOnce,
	}
}

// ShortID is the first 8 characters of the ID, enough to address a task by hand.
func (t *Task) ShortID() string {
	if len(t.ID) <= 8 {
		return t.ID
	}
	return t.ID[:8]
}

// IsOverdue reports whether the task is unfinished and its due date lies
// strictly before the calendar date of now.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.Completed || t.DueDate == nil {
		return false
	}
	return DaysBetween(now, *t.DueDate) < 0
}

// NeedsScheduling reports whether the task should show up in a plan again.
// Unknown recurrence values fail open.
func (t *Task) NeedsScheduling(now time.Time) bool {
	if !t.Recurrence.IsRecurring() {
		return !t.Completed
	}
	if t.LastCompleted == nil {
		return true
	}
	days, ok := t.Recurrence.IntervalDays()
	if !ok {
		return true
	}
	return now.Sub(*t.LastCompleted) >= time.Duration(days)*24*time.Hour
}

// MarkComplete flags the task done and stamps the completion time.
func (t *Task) MarkComplete(now time.Time) {
	t.Completed = true
	completedAt := now
	t.LastCompleted = &completedAt
}

// Clone returns a deep copy that shares no pointers with t.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	cp := *t
	if t.DueDate != nil {
		due := *t.DueDate
		cp.DueDate = &due
	}
	if t.StartTime != nil {
		start := *t.StartTime
		cp.StartTime = &start
	}
	if t.RecurrenceDays != nil {
		days := *t.RecurrenceDays
		cp.RecurrenceDays = &days
	}
	if t.LastCompleted != nil {
		last := *t.LastCompleted
		cp.LastCompleted = &last
	}
	return &cp
}

// DaysBetween returns the signed number of calendar days from a to b,
// ignoring the time of day. Both dates are read in their own location.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}
