package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"pawpal/internal/model"
)

// TaskEntry is a detached copy of a task together with the name of its pet.
type TaskEntry struct {
	Task    *model.Task
	PetName string
}

// SortMode selects the order of a task listing.
type SortMode string

const (
	SortDue      SortMode = "due"
	SortEntered  SortMode = "entered"
	SortPet      SortMode = "pet"
	SortPriority SortMode = "priority"
	SortStatus   SortMode = "status"
)

var SortModes = []SortMode{SortDue, SortEntered, SortPet, SortPriority, SortStatus}

// FilterMode selects which tasks a listing shows.
type FilterMode string

const (
	FilterNone        FilterMode = "none"
	FilterCompleted   FilterMode = "completed"
	FilterUncompleted FilterMode = "uncompleted"
	FilterOverdue     FilterMode = "overdue"
	FilterPet         FilterMode = "pet"
	FilterPriority    FilterMode = "priority"
	FilterToday       FilterMode = "today"
	FilterFuture      FilterMode = "future"
)

var FilterModes = []FilterMode{
	FilterNone, FilterCompleted, FilterUncompleted, FilterOverdue,
	FilterPet, FilterPriority, FilterToday, FilterFuture,
}

// TaskView describes a listing. Pet and Priority are only read by their filters.
type TaskView struct {
	Sort     SortMode
	Filter   FilterMode
	Pet      string
	Priority model.Priority
}

func ParseSortMode(raw string) (SortMode, error) {
	m := SortMode(strings.ToLower(strings.TrimSpace(raw)))
	if m == "" {
		return SortDue, nil
	}
	for _, known := range SortModes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown sort %q", ErrInvalidInput, raw)
}

func ParseFilterMode(raw string) (FilterMode, error) {
	m := FilterMode(strings.ToLower(strings.TrimSpace(raw)))
	if m == "" {
		return FilterNone, nil
	}
	for _, known := range FilterModes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown filter %q", ErrInvalidInput, raw)
}

// ApplyView sorts then filters entries taken in entry order.
func ApplyView(s *Scheduler, entries []TaskEntry, view TaskView, now time.Time) []TaskEntry {
	sorted := sortEntries(s, entries, view.Sort, now)

	out := make([]TaskEntry, 0, len(sorted))
	for _, e := range sorted {
		if keep(e, view, now) {
			out = append(out, e)
		}
	}
	return out
}

func sortEntries(s *Scheduler, entries []TaskEntry, mode SortMode, now time.Time) []TaskEntry {
	sorted := append([]TaskEntry(nil), entries...)
	switch mode {
	case SortEntered:
	case SortPet:
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].PetName < sorted[j].PetName })
	case SortPriority:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Task.Priority.Rank() < sorted[j].Task.Priority.Rank()
		})
	case SortStatus:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Task.IsOverdue(now) && !sorted[j].Task.IsOverdue(now)
		})
	default:
		byPtr := make(map[*model.Task]TaskEntry, len(sorted))
		tasks := make([]*model.Task, len(sorted))
		for i, e := range sorted {
			byPtr[e.Task] = e
			tasks[i] = e.Task
		}
		for i, t := range s.SortByTime(tasks) {
			sorted[i] = byPtr[t]
		}
	}
	return sorted
}

func keep(e TaskEntry, view TaskView, now time.Time) bool {
	t := e.Task
	switch view.Filter {
	case FilterCompleted:
		return t.Completed
	case FilterOverdue:
		return t.IsOverdue(now)
	case FilterPet:
		return !t.Completed && strings.EqualFold(e.PetName, view.Pet)
	case FilterPriority:
		return !t.Completed && t.Priority == view.Priority
	case FilterToday:
		return !t.Completed && t.DueDate != nil && model.DaysBetween(now, *t.DueDate) == 0
	case FilterFuture:
		return !t.Completed && t.DueDate != nil && model.DaysBetween(now, *t.DueDate) > 0
	default:
		return !t.Completed
	}
}

// Agenda is a plan split by due day. Completed tasks are left out.
type Agenda struct {
	Overdue  []TaskEntry
	Today    []TaskEntry
	Upcoming []TaskEntry
}

func (a Agenda) Empty() bool {
	return len(a.Overdue) == 0 && len(a.Today) == 0 && len(a.Upcoming) == 0
}

// BuildAgenda keeps plan order inside each section. Tasks without a due date
// are upcoming.
func BuildAgenda(plan []TaskEntry, now time.Time) Agenda {
	var agenda Agenda
	for _, e := range plan {
		if e.Task.Completed {
			continue
		}
		if e.Task.DueDate == nil {
			agenda.Upcoming = append(agenda.Upcoming, e)
			continue
		}
		switch days := model.DaysBetween(now, *e.Task.DueDate); {
		case days < 0:
			agenda.Overdue = append(agenda.Overdue, e)
		case days == 0:
			agenda.Today = append(agenda.Today, e)
		default:
			agenda.Upcoming = append(agenda.Upcoming, e)
		}
	}
	return agenda
}
