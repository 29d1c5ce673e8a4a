package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"pawpal/internal/metrics"
	"pawpal/internal/model"
	"pawpal/internal/repository"
)

type failingStore struct {
	repository.Store
	saveErr error
}

func (f failingStore) Save(context.Context, *model.Owner) error { return f.saveErr }

func newHousehold(t *testing.T) (*HouseholdService, *repository.JSONStore, *metrics.Registry) {
	t.Helper()
	store := repository.NewJSONStore(filepath.Join(t.TempDir(), "pawpal_data.json"))
	reg := metrics.NewRegistry(nil)
	svc := NewHouseholdService(store, NewScheduler(fixedClock()), reg, zerolog.Nop())
	loaded, err := svc.Bootstrap(context.Background(), "Jon")
	if err != nil {
		t.Fatalf("Bootstrap error: %v", err)
	}
	if loaded {
		t.Fatal("fresh store should report no saved state")
	}
	return svc, store, reg
}

func mustAddPet(t *testing.T, svc *HouseholdService, name string) {
	t.Helper()
	if _, err := svc.AddPet(context.Background(), PetInput{Name: name, Breed: "Mixed", Age: 3, Weight: 10}); err != nil {
		t.Fatalf("AddPet(%s) error: %v", name, err)
	}
}

func mustAddTask(t *testing.T, svc *HouseholdService, pet string, in TaskInput) TaskEntry {
	t.Helper()
	entry, err := svc.AddTask(context.Background(), pet, in)
	if err != nil {
		t.Fatalf("AddTask(%s) error: %v", in.Name, err)
	}
	return entry
}

func TestHouseholdBootstrapLoadsSavedState(t *testing.T) {
	t.Parallel()
	svc, store, _ := newHousehold(t)
	mustAddPet(t, svc, "Odie")
	mustAddTask(t, svc, "Odie", TaskInput{Name: "Walk", Priority: "high", Duration: 30})

	again := NewHouseholdService(store, NewScheduler(fixedClock()), nil, zerolog.Nop())
	loaded, err := again.Bootstrap(context.Background(), "Someone else")
	if err != nil || !loaded {
		t.Fatalf("Bootstrap = (%t, %v)", loaded, err)
	}
	if again.OwnerName() != "Jon" {
		t.Fatalf("OwnerName = %q, want Jon", again.OwnerName())
	}
	pets := again.Pets()
	if len(pets) != 1 || pets[0].NumTasks() != 1 {
		t.Fatalf("unexpected pets: %+v", pets)
	}
}

func TestHouseholdAddPetValidation(t *testing.T) {
	t.Parallel()
	svc, _, _ := newHousehold(t)
	ctx := context.Background()
	mustAddPet(t, svc, "Odie")

	if _, err := svc.AddPet(ctx, PetInput{Name: "odie"}); !errors.Is(err, ErrDuplicatePet) {
		t.Fatalf("duplicate pet err = %v", err)
	}
	if _, err := svc.AddPet(ctx, PetInput{Name: "  "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank pet err = %v", err)
	}
	if err := svc.RemovePet(ctx, "Nermal"); !errors.Is(err, ErrPetNotFound) {
		t.Fatalf("remove missing pet err = %v", err)
	}
	if err := svc.RemovePet(ctx, "Odie"); err != nil {
		t.Fatalf("RemovePet error: %v", err)
	}
	if len(svc.Pets()) != 0 {
		t.Fatal("pet not removed")
	}
}

func TestHouseholdAddTaskValidation(t *testing.T) {
	t.Parallel()
	svc, _, _ := newHousehold(t)
	mustAddPet(t, svc, "Odie")

	tests := []struct {
		name string
		pet  string
		in   TaskInput
		want error
	}{
		{name: "unknown pet", pet: "Nermal", in: TaskInput{Name: "Walk", Duration: 10}, want: ErrPetNotFound},
		{name: "blank name", pet: "Odie", in: TaskInput{Name: " ", Duration: 10}, want: ErrInvalidInput},
		{name: "zero duration", pet: "Odie", in: TaskInput{Name: "Walk"}, want: ErrInvalidInput},
		{name: "too long", pet: "Odie", in: TaskInput{Name: "Walk", Duration: 241}, want: ErrInvalidInput},
		{name: "bad priority", pet: "Odie", in: TaskInput{Name: "Walk", Duration: 10, Priority: "urgent"}, want: ErrInvalidInput},
		{name: "bad recurrence", pet: "Odie", in: TaskInput{Name: "Walk", Duration: 10, Recurrence: "hourly"}, want: ErrInvalidInput},
		{name: "bad date", pet: "Odie", in: TaskInput{Name: "Walk", Duration: 10, DueDate: "12/02/2026"}, want: ErrInvalidInput},
		{name: "bad start", pet: "Odie", in: TaskInput{Name: "Walk", Duration: 10, StartTime: "25:00"}, want: ErrInvalidInput},
	}
	for _, tt := range tests {
		if _, err := svc.AddTask(context.Background(), tt.pet, tt.in); !errors.Is(err, tt.want) {
			t.Fatalf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
	}

	entry := mustAddTask(t, svc, "odie", TaskInput{
		Name: "Vet", Duration: 45, DueDate: "2026-02-14", StartTime: "14:00", Recurrence: "Weekly",
	})
	if entry.PetName != "Odie" || entry.Task.Priority != model.PriorityMedium || entry.Task.Recurrence != model.RecurrenceWeekly {
		t.Fatalf("unexpected entry: %+v", entry.Task)
	}
	if entry.Task.DueDate.Day() != 14 || entry.Task.StartTime.String() != "14:00" {
		t.Fatalf("dates not parsed: %+v", entry.Task)
	}
}

func TestHouseholdCompleteRecurringTask(t *testing.T) {
	t.Parallel()
	svc, store, reg := newHousehold(t)
	mustAddPet(t, svc, "Odie")
	mustAddPet(t, svc, "Garfield")
	entry := mustAddTask(t, svc, "Garfield", TaskInput{Name: "Feed", Priority: "high", Duration: 10, DueDate: "2026-02-12", Recurrence: "daily"})

	result, err := svc.CompleteTask(context.Background(), entry.Task.ShortID())
	if err != nil {
		t.Fatalf("CompleteTask error: %v", err)
	}
	if !result.Completed.Task.Completed {
		t.Fatal("completed copy not marked done")
	}
	if result.Successor == nil || result.Successor.PetName != "Garfield" {
		t.Fatalf("successor = %+v", result.Successor)
	}
	if result.Successor.Task.DueDate.Day() != 13 {
		t.Fatalf("successor due = %v", result.Successor.Task.DueDate)
	}
	if got := testutil.ToFloat64(reg.SuccessorsCreated); got != 1 {
		t.Fatalf("successors metric = %v", got)
	}

	saved, ok, err := store.Load(context.Background())
	if err != nil || !ok {
		t.Fatalf("Load = (%t, %v)", ok, err)
	}
	if got := saved.Pet("Garfield").NumTasks(); got != 2 {
		t.Fatalf("saved Garfield tasks = %d, want 2", got)
	}
}

func TestHouseholdCompleteTwiceIsRefused(t *testing.T) {
	t.Parallel()
	svc, _, reg := newHousehold(t)
	mustAddPet(t, svc, "Odie")
	entry := mustAddTask(t, svc, "Odie", TaskInput{Name: "Walk", Duration: 30, DueDate: "2026-03-10", Recurrence: "daily"})
	ctx := context.Background()

	if _, err := svc.CompleteTask(ctx, entry.Task.ID); err != nil {
		t.Fatalf("first CompleteTask error: %v", err)
	}
	result, err := svc.CompleteTask(ctx, entry.Task.ID)
	if !errors.Is(err, ErrTaskCompleted) {
		t.Fatalf("second CompleteTask err = %v, want ErrTaskCompleted", err)
	}
	if result.Successor != nil {
		t.Fatalf("refused completion returned successor %+v", result.Successor)
	}
	if got := svc.Pets()[0].NumTasks(); got != 2 {
		t.Fatalf("Odie tasks = %d, want 2", got)
	}
	if got := testutil.ToFloat64(reg.SuccessorsCreated); got != 1 {
		t.Fatalf("successors metric = %v, want 1", got)
	}
}

func TestHouseholdTaskReferences(t *testing.T) {
	t.Parallel()
	svc, _, _ := newHousehold(t)
	mustAddPet(t, svc, "Odie")
	entry := mustAddTask(t, svc, "Odie", TaskInput{Name: "Walk", Duration: 30})

	if _, err := svc.GetTask(entry.Task.ID); err != nil {
		t.Fatalf("full id lookup: %v", err)
	}
	if _, err := svc.GetTask(strings.ToUpper(entry.Task.ShortID())); err != nil {
		t.Fatalf("prefix lookup: %v", err)
	}
	if _, err := svc.GetTask(entry.Task.ID[:3]); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("short prefix err = %v", err)
	}
	if _, err := svc.CompleteTask(context.Background(), "ffffffff-none"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("missing task err = %v", err)
	}
}

func TestHouseholdUpdateMovesTask(t *testing.T) {
	t.Parallel()
	svc, _, _ := newHousehold(t)
	ctx := context.Background()
	mustAddPet(t, svc, "Odie")
	mustAddPet(t, svc, "Garfield")
	entry := mustAddTask(t, svc, "Odie", TaskInput{Name: "Walk", Duration: 30, StartTime: "09:00"})

	name := "Evening walk"
	pet := "garfield"
	empty := ""
	updated, err := svc.UpdateTask(ctx, entry.Task.ID, TaskUpdate{Name: &name, Pet: &pet, StartTime: &empty})
	if err != nil {
		t.Fatalf("UpdateTask error: %v", err)
	}
	if updated.PetName != "Garfield" || updated.Task.Name != "Evening walk" || updated.Task.StartTime != nil {
		t.Fatalf("unexpected update: %+v %+v", updated, updated.Task)
	}
	if updated.Task.ID != entry.Task.ID {
		t.Fatal("update must keep the task identity")
	}

	owner := svc.Snapshot()
	if owner.Pet("Odie").NumTasks() != 0 || owner.Pet("Garfield").NumTasks() != 1 {
		t.Fatal("task not moved between pets")
	}

	bad := 0
	if _, err := svc.UpdateTask(ctx, entry.Task.ID, TaskUpdate{Duration: &bad}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad duration err = %v", err)
	}
	if got, _ := svc.GetTask(entry.Task.ID); got.Task.Duration != 30 {
		t.Fatal("failed update must not change the task")
	}

	if _, err := svc.DeleteTask(ctx, entry.Task.ID); err != nil {
		t.Fatalf("DeleteTask error: %v", err)
	}
	if _, err := svc.GetTask(entry.Task.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("deleted task still found: %v", err)
	}
}

func TestHouseholdPlanReturnsCopies(t *testing.T) {
	t.Parallel()
	svc, _, _ := newHousehold(t)
	mustAddPet(t, svc, "Odie")
	mustAddTask(t, svc, "Odie", TaskInput{Name: "Brush", Priority: "low", Duration: 10})
	mustAddTask(t, svc, "Odie", TaskInput{Name: "Walk", Priority: "high", Duration: 30})

	plan := svc.Plan()
	if len(plan) != 2 || plan[0].Task.Name != "Walk" || plan[0].PetName != "Odie" {
		t.Fatalf("plan = %+v", plan)
	}
	plan[0].Task.Name = "mutated"
	if svc.Plan()[0].Task.Name != "Walk" {
		t.Fatal("plan entries share state with the live graph")
	}
	if !strings.HasPrefix(svc.Explain(plan), "Plan: 2 tasks, 40 minutes total") {
		t.Fatalf("Explain = %q", svc.Explain(plan))
	}
}

func TestHouseholdConflictsAndReset(t *testing.T) {
	t.Parallel()
	svc, store, reg := newHousehold(t)
	ctx := context.Background()
	mustAddPet(t, svc, "Odie")
	mustAddPet(t, svc, "Garfield")
	mustAddTask(t, svc, "Odie", TaskInput{Name: "Walk", Duration: 30, DueDate: "2026-02-12", StartTime: "14:00"})
	mustAddTask(t, svc, "Garfield", TaskInput{Name: "Vet", Duration: 30, DueDate: "2026-02-12", StartTime: "14:15"})

	if got := svc.Conflicts(); len(got) != 1 {
		t.Fatalf("Conflicts = %v", got)
	}
	if got := testutil.ToFloat64(reg.Conflicts); got != 1 {
		t.Fatalf("conflicts gauge = %v", got)
	}

	if err := svc.Reset(ctx); err != nil {
		t.Fatalf("Reset error: %v", err)
	}
	if len(svc.Pets()) != 0 || svc.OwnerName() != "Jon" {
		t.Fatal("Reset should keep the owner name and drop pets")
	}
	if _, ok, _ := store.Load(ctx); ok {
		t.Fatal("saved state survived Reset")
	}
}

func TestHouseholdSaveFailure(t *testing.T) {
	t.Parallel()
	store := failingStore{
		Store:   repository.NewJSONStore(filepath.Join(t.TempDir(), "x.json")),
		saveErr: errors.New("disk full"),
	}
	svc := NewHouseholdService(store, NewScheduler(fixedClock()), nil, zerolog.Nop())
	if _, err := svc.Bootstrap(context.Background(), "Jon"); err != nil {
		t.Fatalf("Bootstrap error: %v", err)
	}
	_, err := svc.AddPet(context.Background(), PetInput{Name: "Odie"})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("AddPet err = %v", err)
	}
}
