package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"pawpal/internal/model"
	"pawpal/internal/service"
)

// renderTasks prints entries as an aligned table. The status column is last so
// its styling does not disturb the alignment.
func renderTasks(out io.Writer, entries []service.TaskEntry, now time.Time) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPET\tTASK\tPRIORITY\tDUE\tSTART\tMIN\tREPEAT\tSTATUS")
	for _, e := range entries {
		t := e.Task
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			t.ShortID(),
			e.PetName,
			t.Name,
			t.Priority,
			formatDue(t, now),
			formatStart(t),
			t.Duration,
			formatRepeat(t, now),
			formatStatus(t, now),
		)
	}
	return w.Flush()
}

func formatDue(t *model.Task, now time.Time) string {
	if t.DueDate == nil {
		return "-"
	}
	switch days := model.DaysBetween(now, *t.DueDate); {
	case days == 0:
		return t.DueDate.Format("2006-01-02") + " (today)"
	case days == 1:
		return t.DueDate.Format("2006-01-02") + " (tomorrow)"
	default:
		return fmt.Sprintf("%s (%s)", t.DueDate.Format("2006-01-02"), humanize.RelTime(*t.DueDate, startOfDay(now), "ago", "from now"))
	}
}

func formatStart(t *model.Task) string {
	if t.StartTime == nil {
		return "-"
	}
	return t.StartTime.String()
}

func formatRepeat(t *model.Task, now time.Time) string {
	if !t.Recurrence.IsRecurring() {
		return "-"
	}
	if t.LastCompleted == nil {
		return t.Recurrence.String()
	}
	return fmt.Sprintf("%s, done %s", t.Recurrence, humanize.RelTime(*t.LastCompleted, now, "ago", "from now"))
}

func formatStatus(t *model.Task, now time.Time) string {
	switch {
	case t.Completed:
		return successStyle.Render("done")
	case t.IsOverdue(now):
		return errorStyle.Render("overdue")
	default:
		return "open"
	}
}

func renderAgenda(out io.Writer, agenda service.Agenda, now time.Time) error {
	sections := []struct {
		title   string
		entries []service.TaskEntry
	}{
		{"Overdue", agenda.Overdue},
		{"Today", agenda.Today},
		{"Upcoming", agenda.Upcoming},
	}
	for _, s := range sections {
		if len(s.entries) == 0 {
			continue
		}
		fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%s (%d)", s.title, len(s.entries))))
		if err := renderTasks(out, s.entries, now); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
	return nil
}

func renderPets(out io.Writer, pets []*model.Pet) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PET\tBREED\tAGE\tWEIGHT\tTASKS")
	for _, p := range pets {
		open := 0
		for _, t := range p.Tasks {
			if !t.Completed {
				open++
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d open / %d\n",
			p.Name, dash(p.Breed), p.Age, humanize.FormatFloat("#.##", p.Weight), open, len(p.Tasks))
	}
	return w.Flush()
}

func describeEntry(e service.TaskEntry) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("%q for %s", e.Task.Name, e.PetName))
	parts = append(parts, fmt.Sprintf("[%s] %d min", e.Task.Priority, e.Task.Duration))
	if e.Task.DueDate != nil {
		parts = append(parts, "due "+e.Task.DueDate.Format("2006-01-02"))
	}
	if e.Task.StartTime != nil {
		parts = append(parts, "at "+e.Task.StartTime.String())
	}
	if e.Task.Recurrence.IsRecurring() {
		parts = append(parts, e.Task.Recurrence.String())
	}
	return strings.Join(parts, ", ")
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
