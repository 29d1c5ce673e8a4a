package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestOwnerJSONRoundTrip(t *testing.T) {
	t.Parallel()
	due := time.Date(2026, 2, 12, 0, 0, 0, 0, time.Local)
	last := time.Date(2026, 2, 11, 9, 30, 15, 123456000, time.Local)
	start := NewClockTime(14, 0)
	days := 3

	owner := NewOwner("Jon")
	odie := NewPet("Odie", "Dachshund", 4, 20.5)
	owner.AddPet(odie)
	owner.AddPet(NewPet("Garfield", "Orange Tabby", 4, 25))

	full := NewTask("Vet visit", PriorityHigh, 45)
	full.DueDate = &due
	full.StartTime = &start
	full.Description = "Annual shots"
	full.Recurrence = RecurrenceMonthly
	full.RecurrenceDays = &days
	full.LastCompleted = &last
	full.Completed = true
	bare := NewTask("Brush", PriorityLow, 10)
	odie.AddTask(full)
	odie.AddTask(bare)

	data, err := json.Marshal(owner)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got Owner
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got.Name != "Jon" || len(got.Pets) != 2 {
		t.Fatalf("unexpected owner: %+v", got)
	}
	if got.Pets[1].Tasks == nil || len(got.Pets[1].Tasks) != 0 {
		t.Fatalf("empty pet should decode with an empty task list, got %v", got.Pets[1].Tasks)
	}
	gotPet := got.Pets[0]
	if gotPet.Breed != "Dachshund" || gotPet.Age != 4 || gotPet.Weight != 20.5 {
		t.Fatalf("unexpected pet: %+v", gotPet)
	}

	g := gotPet.Tasks[0]
	if g.ID != full.ID || g.Name != full.Name || g.Priority != PriorityHigh || g.Duration != 45 {
		t.Fatalf("scalar fields differ: %+v", g)
	}
	if g.DueDate == nil || !g.DueDate.Equal(due) {
		t.Fatalf("DueDate = %v, want %v", g.DueDate, due)
	}
	if g.StartTime == nil || *g.StartTime != start {
		t.Fatalf("StartTime = %v, want %v", g.StartTime, start)
	}
	if g.LastCompleted == nil || !g.LastCompleted.Equal(last) {
		t.Fatalf("LastCompleted = %v, want %v", g.LastCompleted, last)
	}
	if !g.Completed || g.Description != "Annual shots" || g.Recurrence != RecurrenceMonthly {
		t.Fatalf("flags differ: %+v", g)
	}
	if g.RecurrenceDays == nil || *g.RecurrenceDays != 3 {
		t.Fatalf("RecurrenceDays = %v", g.RecurrenceDays)
	}

	b := gotPet.Tasks[1]
	if b.DueDate != nil || b.StartTime != nil || b.LastCompleted != nil || b.RecurrenceDays != nil {
		t.Fatalf("absent optional fields came back set: %+v", b)
	}
	if b.Description != "" || b.Completed || b.Recurrence != RecurrenceOnce {
		t.Fatalf("defaults differ: %+v", b)
	}
}

func TestTaskUnmarshalDefaultsAndLegacyFormat(t *testing.T) {
	t.Parallel()
	raw := `{
		"name": "Feed Garfield",
		"priority": "MEDIUM",
		"duration": 10,
		"due_date": "2026-02-12T00:00:00",
		"start_time": "10:30:00",
		"last_completed": "2026-02-11T10:31:02.500000"
	}`
	var task Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if task.ID == "" {
		t.Fatal("missing id should be generated")
	}
	if task.Completed || task.Recurrence != RecurrenceOnce || task.Priority != PriorityMedium {
		t.Fatalf("unexpected defaults: %+v", task)
	}
	if task.DueDate.Year() != 2026 || task.DueDate.Day() != 12 {
		t.Fatalf("DueDate = %v", task.DueDate)
	}
	if task.StartTime.String() != "10:30" {
		t.Fatalf("StartTime = %v", task.StartTime)
	}
	if task.LastCompleted.Nanosecond() != 500000000 {
		t.Fatalf("LastCompleted = %v", task.LastCompleted)
	}
}

func TestTaskUnmarshalRejectsBadPriority(t *testing.T) {
	t.Parallel()
	var task Task
	err := json.Unmarshal([]byte(`{"name":"x","priority":"urgent","duration":5}`), &task)
	if err == nil || !strings.Contains(err.Error(), "invalid priority") {
		t.Fatalf("expected invalid priority error, got %v", err)
	}
}

func TestTaskMarshalWritesNullForAbsentFields(t *testing.T) {
	t.Parallel()
	task := NewTask("Brush", PriorityLow, 10)
	data, err := json.Marshal(task)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := string(data)
	for _, want := range []string{`"due_date":null`, `"start_time":null`, `"recurrence":"once"`, `"priority":"low"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("%s missing %s", out, want)
		}
	}
	if strings.Contains(out, "description") {
		t.Fatalf("empty description should be omitted: %s", out)
	}
}
