package service

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"pawpal/internal/model"
)

// ErrTaskNotOwned is returned when a task is not found under any of the owner's pets.
var ErrTaskNotOwned = errors.New("task is not owned by any pet")

// Scheduler derives plans, conflicts and recurring successors from an owner's
// task graph. It keeps no state besides its clock.
//
// Returned slices hold the live tasks from the graph, not copies. Callers that
// share an owner across goroutines must serialize access (HouseholdService does).
type Scheduler struct {
	now func() time.Time
}

type SchedulerOption func(*Scheduler)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

func NewScheduler(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Now() time.Time { return s.now() }

// AllTasks flattens the tasks of every pet the owner has.
func (s *Scheduler) AllTasks(owner *model.Owner) []*model.Task {
	if owner == nil {
		return nil
	}
	return owner.AllTasks()
}

// CreatePlan orders every task by priority, then due-date urgency, then
// duration. Tasks without a due date come last inside their priority.
func (s *Scheduler) CreatePlan(owner *model.Owner) []*model.Task {
	tasks := s.AllTasks(owner)
	now := s.now()

	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
			return ra < rb
		}
		if ua, ub := urgency(a, now), urgency(b, now); ua != ub {
			return ua < ub
		}
		return a.Duration < b.Duration
	})
	return tasks
}

// Urgency is the signed day offset between today and the task's due date.
// The second result is false when the task has no due date.
func Urgency(task *model.Task, now time.Time) (int, bool) {
	if task.DueDate == nil {
		return 0, false
	}
	return model.DaysBetween(now, *task.DueDate), true
}

func urgency(task *model.Task, now time.Time) int {
	days, ok := Urgency(task, now)
	if !ok {
		return math.MaxInt
	}
	return days
}

// SortByTime returns a new slice ordered by due date. Tasks without a due
// date keep their relative order at the end.
func (s *Scheduler) SortByTime(tasks []*model.Task) []*model.Task {
	sorted := append([]*model.Task(nil), tasks...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		switch {
		case a.DueDate == nil:
			return false
		case b.DueDate == nil:
			return true
		default:
			return a.DueDate.Before(*b.DueDate)
		}
	})
	return sorted
}

// CalculateNextDueDate advances the due date by the recurrence interval.
func (s *Scheduler) CalculateNextDueDate(task *model.Task) (time.Time, bool) {
	if task == nil || task.DueDate == nil {
		return time.Time{}, false
	}
	days, ok := task.Recurrence.IntervalDays()
	if !ok {
		return time.Time{}, false
	}
	return task.DueDate.AddDate(0, 0, days), true
}

// CreateNextRecurringTask builds the next occurrence of task, or returns nil
// when there is no next due date.
func (s *Scheduler) CreateNextRecurringTask(task *model.Task) *model.Task {
	next, ok := s.CalculateNextDueDate(task)
	if !ok {
		return nil
	}
	successor := &model.Task{
		ID:          uuid.NewString(),
		Name:        task.Name,
		Priority:    task.Priority,
		Duration:    task.Duration,
		DueDate:     &next,
		Description: task.Description,
		Recurrence:  task.Recurrence,
	}
	if task.StartTime != nil {
		start := *task.StartTime
		successor.StartTime = &start
	}
	if task.RecurrenceDays != nil {
		days := *task.RecurrenceDays
		successor.RecurrenceDays = &days
	}
	return successor
}

// CompleteTask marks task done and, for recurring tasks, appends the next
// occurrence to the pet that owns it. The successor is nil for one-off tasks
// and for recurring tasks without a due date.
//
// A task that no pet owns is left untouched and ErrTaskNotOwned is returned.
func (s *Scheduler) CompleteTask(owner *model.Owner, task *model.Task) (*model.Task, error) {
	if owner == nil || task == nil {
		return nil, ErrTaskNotOwned
	}
	pet := owner.PetOf(task)
	if pet == nil {
		return nil, fmt.Errorf("complete %q: %w", task.Name, ErrTaskNotOwned)
	}

	task.MarkComplete(s.now())
	if !task.Recurrence.IsRecurring() {
		return nil, nil
	}

	successor := s.CreateNextRecurringTask(task)
	if successor == nil {
		return nil, nil
	}
	pet.AddTask(successor)
	return successor, nil
}

// Conflict is a pair of appointments whose time slots overlap.
type Conflict struct {
	First     *model.Task
	FirstPet  string
	Second    *model.Task
	SecondPet string
}

// String names the shared day once. Slots that cross midnight carry each
// task's own date.
func (c Conflict) String() string {
	firstDay := c.First.DueDate.Format("2006-01-02")
	secondDay := c.Second.DueDate.Format("2006-01-02")
	if firstDay == secondDay {
		return fmt.Sprintf("⚠️ Conflict: %q (%s) at %s overlaps with %q (%s) at %s on %s",
			c.First.Name, c.FirstPet, c.First.StartTime,
			c.Second.Name, c.SecondPet, c.Second.StartTime, firstDay)
	}
	return fmt.Sprintf("⚠️ Conflict: %q (%s) at %s on %s overlaps with %q (%s) at %s on %s",
		c.First.Name, c.FirstPet, c.First.StartTime, firstDay,
		c.Second.Name, c.SecondPet, c.Second.StartTime, secondDay)
}

// FindConflicts compares every pair of tasks that both have a start time and
// a due date. Slots are half-open, so back-to-back tasks do not conflict.
func (s *Scheduler) FindConflicts(owner *model.Owner) []Conflict {
	tasks := s.AllTasks(owner)
	var conflicts []Conflict
	for i := 0; i < len(tasks); i++ {
		for j := i + 1; j < len(tasks); j++ {
			a, b := tasks[i], tasks[j]
			if !overlaps(a, b) {
				continue
			}
			conflicts = append(conflicts, Conflict{
				First:     a,
				FirstPet:  petName(owner, a),
				Second:    b,
				SecondPet: petName(owner, b),
			})
		}
	}
	return conflicts
}

// DetectConflicts returns one warning line per conflicting pair.
func (s *Scheduler) DetectConflicts(owner *model.Owner) []string {
	conflicts := s.FindConflicts(owner)
	warnings := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		warnings = append(warnings, c.String())
	}
	return warnings
}

func slot(task *model.Task) (time.Time, time.Time, bool) {
	if task.StartTime == nil || task.DueDate == nil {
		return time.Time{}, time.Time{}, false
	}
	start := task.StartTime.On(*task.DueDate)
	return start, start.Add(time.Duration(task.Duration) * time.Minute), true
}

func overlaps(a, b *model.Task) bool {
	startA, endA, ok := slot(a)
	if !ok {
		return false
	}
	startB, endB, ok := slot(b)
	if !ok {
		return false
	}
	return startA.Before(endB) && startB.Before(endA)
}

func petName(owner *model.Owner, task *model.Task) string {
	if pet := owner.PetOf(task); pet != nil {
		return pet.Name
	}
	return "unknown pet"
}

const noTasksScheduled = "No tasks scheduled."

// ExplainPlan summarizes an already ordered list of tasks.
func (s *Scheduler) ExplainPlan(tasks []*model.Task) string {
	if len(tasks) == 0 {
		return noTasksScheduled
	}

	total := 0
	for _, t := range tasks {
		total += t.Duration
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Plan: %d %s, %d minutes total\n", len(tasks), plural(len(tasks), "task"), total))
	for i, t := range tasks {
		builder.WriteString(fmt.Sprintf("%d. %s [%s] %d min\n", i+1, t.Name, t.Priority, t.Duration))
		if desc := strings.TrimSpace(t.Description); desc != "" {
			builder.WriteString(fmt.Sprintf("   %s\n", desc))
		}
	}
	return strings.TrimRight(builder.String(), "\n")
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
