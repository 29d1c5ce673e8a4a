package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"pawpal/internal/metrics"
	"pawpal/internal/model"
	"pawpal/internal/repository"
)

var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrAmbiguousTask = errors.New("task reference matches more than one task")
	ErrPetNotFound   = errors.New("pet not found")
	ErrDuplicatePet  = errors.New("pet already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrTaskCompleted = errors.New("task is already completed")
)

const (
	maxTaskDuration = 240
	minRefLength    = 4
)

// PetInput represents data required to add a pet.
type PetInput struct {
	Name   string
	Breed  string
	Age    int
	Weight float64
}

// TaskInput represents data required to create a task. Dates are YYYY-MM-DD
// and start times HH:MM; empty strings mean absent.
type TaskInput struct {
	Name        string
	Description string
	Priority    string
	Duration    int
	Recurrence  string
	DueDate     string
	StartTime   string
}

// TaskUpdate changes only the fields that are set. An empty DueDate or
// StartTime clears it; a set Pet moves the task to that pet.
type TaskUpdate struct {
	Name        *string
	Description *string
	Priority    *string
	Duration    *int
	Recurrence  *string
	DueDate     *string
	StartTime   *string
	Pet         *string
}

// CompletionResult holds copies of the completed task and its successor, if any.
type CompletionResult struct {
	Completed TaskEntry
	Successor *TaskEntry
}

// HouseholdService owns the live owner graph. Every call takes the same lock,
// so the bot and the cron jobs never touch the graph at the same time.
// Results are copies and can be read without the lock.
type HouseholdService struct {
	mu        sync.Mutex
	store     repository.Store
	scheduler *Scheduler
	metrics   *metrics.Registry
	log       zerolog.Logger
	owner     *model.Owner
}

func NewHouseholdService(store repository.Store, scheduler *Scheduler, reg *metrics.Registry, log zerolog.Logger) *HouseholdService {
	if scheduler == nil {
		scheduler = NewScheduler()
	}
	return &HouseholdService{
		store:     store,
		scheduler: scheduler,
		metrics:   reg,
		log:       log.With().Str("component", "household").Logger(),
		owner:     model.NewOwner(""),
	}
}

// Bootstrap loads the saved graph. With no saved state it starts an empty
// owner named ownerName and reports false.
func (s *HouseholdService) Bootstrap(ctx context.Context, ownerName string) (bool, error) {
	owner, ok, err := s.store.Load(ctx)
	s.metrics.ObserveStore("load", err)
	if err != nil {
		return false, fmt.Errorf("load household: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !ok {
		s.owner = model.NewOwner(ownerName)
		s.log.Info().Str("owner", ownerName).Msg("no saved state, starting fresh")
		return false, nil
	}
	if strings.TrimSpace(owner.Name) == "" {
		owner.Name = ownerName
	}
	s.owner = owner
	s.log.Info().Str("owner", owner.Name).Int("pets", len(owner.Pets)).Msg("household loaded")
	return true, nil
}

func (s *HouseholdService) Scheduler() *Scheduler { return s.scheduler }

func (s *HouseholdService) OwnerName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner.Name
}

// Snapshot returns a deep copy of the whole graph.
func (s *HouseholdService) Snapshot() *model.Owner {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner.Clone()
}

func (s *HouseholdService) Pets() []*model.Pet {
	s.mu.Lock()
	defer s.mu.Unlock()
	pets := make([]*model.Pet, len(s.owner.Pets))
	for i, p := range s.owner.Pets {
		pets[i] = p.Clone()
	}
	return pets
}

func (s *HouseholdService) AddPet(ctx context.Context, in PetInput) (*model.Pet, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: pet name is required", ErrInvalidInput)
	}
	if in.Age < 0 || in.Weight < 0 {
		return nil, fmt.Errorf("%w: age and weight cannot be negative", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner.Pet(name) != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicatePet, name)
	}
	pet := model.NewPet(name, strings.TrimSpace(in.Breed), in.Age, in.Weight)
	s.owner.AddPet(pet)
	if err := s.persistLocked(ctx); err != nil {
		return nil, err
	}
	s.log.Info().Str("pet", name).Msg("pet added")
	return pet.Clone(), nil
}

// RemovePet drops the pet and every task it owns.
func (s *HouseholdService) RemovePet(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.owner.RemovePet(strings.TrimSpace(name)) {
		return fmt.Errorf("%w: %s", ErrPetNotFound, name)
	}
	if err := s.persistLocked(ctx); err != nil {
		return err
	}
	s.log.Info().Str("pet", name).Msg("pet removed")
	return nil
}

func (s *HouseholdService) AddTask(ctx context.Context, petName string, in TaskInput) (TaskEntry, error) {
	task, err := buildTask(in)
	if err != nil {
		return TaskEntry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	pet := s.owner.Pet(petName)
	if pet == nil {
		return TaskEntry{}, fmt.Errorf("%w: %s", ErrPetNotFound, petName)
	}
	pet.AddTask(task)
	if err := s.persistLocked(ctx); err != nil {
		return TaskEntry{}, err
	}
	s.log.Info().Str("task", task.ShortID()).Str("pet", pet.Name).Str("recurrence", task.Recurrence.String()).Msg("task created")
	return TaskEntry{Task: task.Clone(), PetName: pet.Name}, nil
}

func (s *HouseholdService) UpdateTask(ctx context.Context, ref string, upd TaskUpdate) (TaskEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, pet, err := s.resolveLocked(ref)
	if err != nil {
		return TaskEntry{}, err
	}

	edited := task.Clone()
	if err := applyUpdate(edited, upd); err != nil {
		return TaskEntry{}, err
	}

	target := pet
	if upd.Pet != nil && !strings.EqualFold(strings.TrimSpace(*upd.Pet), pet.Name) {
		target = s.owner.Pet(*upd.Pet)
		if target == nil {
			return TaskEntry{}, fmt.Errorf("%w: %s", ErrPetNotFound, *upd.Pet)
		}
	}

	*task = *edited
	if target != pet {
		pet.RemoveTask(task.ID)
		target.AddTask(task)
	}
	if err := s.persistLocked(ctx); err != nil {
		return TaskEntry{}, err
	}
	s.log.Info().Str("task", task.ShortID()).Str("pet", target.Name).Msg("task updated")
	return TaskEntry{Task: task.Clone(), PetName: target.Name}, nil
}

func (s *HouseholdService) DeleteTask(ctx context.Context, ref string) (TaskEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, pet, err := s.resolveLocked(ref)
	if err != nil {
		return TaskEntry{}, err
	}
	pet.RemoveTask(task.ID)
	if err := s.persistLocked(ctx); err != nil {
		return TaskEntry{}, err
	}
	s.log.Info().Str("task", task.ShortID()).Str("pet", pet.Name).Msg("task deleted")
	return TaskEntry{Task: task.Clone(), PetName: pet.Name}, nil
}

func (s *HouseholdService) GetTask(ref string) (TaskEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, pet, err := s.resolveLocked(ref)
	if err != nil {
		return TaskEntry{}, err
	}
	return TaskEntry{Task: task.Clone(), PetName: pet.Name}, nil
}

// CompleteTask marks the task done and appends its next occurrence, if any,
// to the same pet. A task that is already done is refused with ErrTaskCompleted.
func (s *HouseholdService) CompleteTask(ctx context.Context, ref string) (CompletionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, pet, err := s.resolveLocked(ref)
	if err != nil {
		return CompletionResult{}, err
	}
	if task.Completed {
		return CompletionResult{}, fmt.Errorf("%w: %q", ErrTaskCompleted, task.Name)
	}

	successor, err := s.scheduler.CompleteTask(s.owner, task)
	if err != nil {
		return CompletionResult{}, err
	}
	if err := s.persistLocked(ctx); err != nil {
		return CompletionResult{}, err
	}

	result := CompletionResult{Completed: TaskEntry{Task: task.Clone(), PetName: pet.Name}}
	event := s.log.Info().Str("task", task.ShortID()).Str("recurrence", task.Recurrence.String())
	if successor != nil {
		result.Successor = &TaskEntry{Task: successor.Clone(), PetName: pet.Name}
		event = event.Str("successor", successor.ShortID())
	}
	event.Msg("task completed")

	if s.metrics != nil {
		s.metrics.TasksCompleted.WithLabelValues(task.Recurrence.String()).Inc()
		if successor != nil {
			s.metrics.SuccessorsCreated.Inc()
		}
	}
	return result, nil
}

// Plan returns the prioritized plan over every task.
func (s *HouseholdService) Plan() []TaskEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.PlansGenerated.Inc()
	}
	return s.entriesLocked(s.scheduler.CreatePlan(s.owner))
}

// Explain summarizes the given plan entries.
func (s *HouseholdService) Explain(entries []TaskEntry) string {
	tasks := make([]*model.Task, len(entries))
	for i, e := range entries {
		tasks[i] = e.Task
	}
	return s.scheduler.ExplainPlan(tasks)
}

func (s *HouseholdService) Conflicts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	warnings := s.scheduler.DetectConflicts(s.owner)
	if s.metrics != nil {
		s.metrics.Conflicts.Set(float64(len(warnings)))
	}
	if len(warnings) > 0 {
		s.log.Warn().Int("count", len(warnings)).Msg("conflicts detected")
	}
	return warnings
}

func (s *HouseholdService) ListTasks(view TaskView) []TaskEntry {
	s.mu.Lock()
	entries := s.entriesLocked(s.owner.AllTasks())
	s.mu.Unlock()
	return ApplyView(s.scheduler, entries, view, s.scheduler.Now())
}

func (s *HouseholdService) Agenda() Agenda {
	return s.AgendaAt(s.scheduler.Now())
}

// AgendaAt splits the plan around the day of now.
func (s *HouseholdService) AgendaAt(now time.Time) Agenda {
	return BuildAgenda(s.Plan(), now)
}

// Reset forgets every pet and task and deletes the saved state.
func (s *HouseholdService) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.store.Reset(ctx)
	s.metrics.ObserveStore("reset", err)
	if err != nil {
		return fmt.Errorf("reset household: %w", err)
	}
	s.owner = model.NewOwner(s.owner.Name)
	s.log.Info().Msg("household reset")
	return nil
}

func (s *HouseholdService) persistLocked(ctx context.Context) error {
	err := s.store.Save(ctx, s.owner)
	s.metrics.ObserveStore("save", err)
	if err != nil {
		s.log.Error().Err(err).Msg("save household")
		return fmt.Errorf("save household: %w", err)
	}
	return nil
}

func (s *HouseholdService) entriesLocked(tasks []*model.Task) []TaskEntry {
	entries := make([]TaskEntry, 0, len(tasks))
	for _, t := range tasks {
		name := ""
		if pet := s.owner.PetOf(t); pet != nil {
			name = pet.Name
		}
		entries = append(entries, TaskEntry{Task: t.Clone(), PetName: name})
	}
	return entries
}

// resolveLocked accepts a full task ID or a unique prefix of at least four characters.
func (s *HouseholdService) resolveLocked(ref string) (*model.Task, *model.Pet, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if ref == "" {
		return nil, nil, fmt.Errorf("%w: empty reference", ErrTaskNotFound)
	}
	if task, pet := s.owner.FindTask(ref); task != nil {
		return task, pet, nil
	}
	if len(ref) < minRefLength {
		return nil, nil, fmt.Errorf("%w: %s", ErrTaskNotFound, ref)
	}

	var (
		found    *model.Task
		foundPet *model.Pet
	)
	for _, pet := range s.owner.Pets {
		for _, task := range pet.Tasks {
			if !strings.HasPrefix(task.ID, ref) {
				continue
			}
			if found != nil {
				return nil, nil, fmt.Errorf("%w: %s", ErrAmbiguousTask, ref)
			}
			found, foundPet = task, pet
		}
	}
	if found == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrTaskNotFound, ref)
	}
	return found, foundPet, nil
}

func buildTask(in TaskInput) (*model.Task, error) {
	task := model.NewTask("", model.PriorityMedium, 0)
	upd := TaskUpdate{
		Name:        &in.Name,
		Description: &in.Description,
		Duration:    &in.Duration,
		Recurrence:  &in.Recurrence,
		DueDate:     &in.DueDate,
		StartTime:   &in.StartTime,
	}
	if in.Priority != "" {
		upd.Priority = &in.Priority
	}
	if err := applyUpdate(task, upd); err != nil {
		return nil, err
	}
	return task, nil
}

func applyUpdate(task *model.Task, upd TaskUpdate) error {
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return fmt.Errorf("%w: task name is required", ErrInvalidInput)
		}
		task.Name = name
	}
	if upd.Description != nil {
		task.Description = strings.TrimSpace(*upd.Description)
	}
	if upd.Priority != nil {
		p, err := model.ParsePriority(*upd.Priority)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		task.Priority = p
	}
	if upd.Duration != nil {
		if *upd.Duration < 1 || *upd.Duration > maxTaskDuration {
			return fmt.Errorf("%w: duration must be between 1 and %d minutes", ErrInvalidInput, maxTaskDuration)
		}
		task.Duration = *upd.Duration
	}
	if upd.Recurrence != nil {
		r, err := model.ParseRecurrence(*upd.Recurrence)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		task.Recurrence = r
	}
	if upd.DueDate != nil {
		raw := strings.TrimSpace(*upd.DueDate)
		if raw == "" {
			task.DueDate = nil
		} else {
			due, err := model.ParseDateTime(raw)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidInput, err)
			}
			task.DueDate = &due
		}
	}
	if upd.StartTime != nil {
		raw := strings.TrimSpace(*upd.StartTime)
		if raw == "" {
			task.StartTime = nil
		} else {
			start, err := model.ParseClockTime(raw)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidInput, err)
			}
			task.StartTime = &start
		}
	}
	return nil
}
