package bot

import (
	"fmt"
	"strings"

	"pawpal/internal/model"
	"pawpal/internal/service"
)

func formatPet(p *model.Pet) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("• <b>%s</b>", escape(p.Name)))
	var details []string
	if p.Breed != "" {
		details = append(details, escape(p.Breed))
	}
	if p.Age > 0 {
		details = append(details, fmt.Sprintf("%d y.", p.Age))
	}
	if p.Weight > 0 {
		details = append(details, fmt.Sprintf("%g kg", p.Weight))
	}
	if len(details) > 0 {
		b.WriteString(" · " + strings.Join(details, ", "))
	}

	open := 0
	for _, t := range p.Tasks {
		if !t.Completed {
			open++
		}
	}
	b.WriteString(fmt.Sprintf(" · %d open / %d tasks\n", open, len(p.Tasks)))
	return b.String()
}

func completionText(result service.CompletionResult) string {
	done := result.Completed
	text := fmt.Sprintf("✅ %q for %s is done.", escape(done.Task.Name), escape(done.PetName))
	if next := result.Successor; next != nil && next.Task.DueDate != nil {
		text += fmt.Sprintf("\n♻️ Next one is due %s (<code>%s</code>).", next.Task.DueDate.Format("2006-01-02"), next.Task.ShortID())
	}
	return text
}

func priorityLabel(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "🔴 high"
	case model.PriorityMedium:
		return "🟡 medium"
	default:
		return "🟢 low"
	}
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}
