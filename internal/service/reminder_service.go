package service

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"pawpal/internal/model"
)

// ReminderService builds human-readable summaries for daily notifications.
type ReminderService struct {
	household *HouseholdService
}

func NewReminderService(household *HouseholdService) *ReminderService {
	return &ReminderService{household: household}
}

// DailySummary renders the agenda, conflicts and today's totals as Telegram HTML.
// Sections and relative due dates are both computed against now.
func (s *ReminderService) DailySummary(now time.Time) string {
	agenda := s.household.AgendaAt(now)
	conflicts := s.household.Conflicts()

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("🐾 <b>Daily plan for %s</b>\n", html.EscapeString(s.household.OwnerName())))
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("Monday, 02 Jan 2006")))

	if agenda.Empty() {
		builder.WriteString("Nothing to do, enjoy the day 🐶\n")
		return strings.TrimSpace(builder.String())
	}

	writeSection(&builder, "⚠️ <b>Overdue</b>", agenda.Overdue, now)
	writeSection(&builder, "📌 <b>Today</b>", agenda.Today, now)
	writeSection(&builder, "🔜 <b>Upcoming</b>", agenda.Upcoming, now)

	if len(conflicts) > 0 {
		builder.WriteString("🚧 <b>Conflicts</b>\n")
		for _, c := range conflicts {
			builder.WriteString(html.EscapeString(c))
			builder.WriteByte('\n')
		}
		builder.WriteByte('\n')
	}

	builder.WriteString("<pre>")
	builder.WriteString(html.EscapeString(s.household.Explain(agenda.Today)))
	builder.WriteString("</pre>")
	return strings.TrimSpace(builder.String())
}

func writeSection(builder *strings.Builder, title string, entries []TaskEntry, now time.Time) {
	if len(entries) == 0 {
		return
	}
	builder.WriteString(title)
	builder.WriteByte('\n')
	for _, e := range entries {
		builder.WriteString(FormatEntryHTML(e, now))
	}
	builder.WriteByte('\n')
}

// FormatEntryHTML renders one task as a short multi-line HTML block.
func FormatEntryHTML(e TaskEntry, now time.Time) string {
	t := e.Task
	var sb strings.Builder

	icon := priorityIcon(t.Priority)
	sb.WriteString(fmt.Sprintf("%s <b>%s</b> · %s", icon, html.EscapeString(t.Name), html.EscapeString(e.PetName)))
	if t.StartTime != nil {
		sb.WriteString(fmt.Sprintf(" · 🕒 %s", t.StartTime))
	}
	sb.WriteString(fmt.Sprintf(" · %d min", t.Duration))
	sb.WriteString(fmt.Sprintf(" <code>%s</code>", t.ShortID()))

	if t.DueDate != nil {
		days := model.DaysBetween(now, *t.DueDate)
		switch {
		case t.Completed:
			sb.WriteString(fmt.Sprintf("\n   ✅ done, was due %s", t.DueDate.Format("2006-01-02")))
		case days < 0:
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s · <b>overdue</b>", t.DueDate.Format("2006-01-02")))
		case days == 0:
			sb.WriteString("\n   ⏰ due today")
		default:
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s · in %d d.", t.DueDate.Format("2006-01-02"), days))
		}
	}
	if t.Recurrence.IsRecurring() {
		sb.WriteString(fmt.Sprintf("\n   ♻️ %s", t.Recurrence))
		if t.LastCompleted != nil {
			sb.WriteString(fmt.Sprintf(", last done %s", humanize.RelTime(*t.LastCompleted, now, "ago", "from now")))
		}
	}
	if t.Description != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(t.Description)))
	}
	sb.WriteByte('\n')
	return sb.String()
}

func priorityIcon(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "🔴"
	case model.PriorityMedium:
		return "🟡"
	default:
		return "🟢"
	}
}
