package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"pawpal/internal/model"
	"pawpal/internal/service"
)

func newTaskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage care tasks",
	}
	cmd.AddCommand(
		newTaskAddCmd(a),
		newTaskListCmd(a),
		newTaskEditCmd(a),
		newTaskCompleteCmd(a),
		newTaskDeleteCmd(a),
	)
	return cmd
}

func newTaskAddCmd(a *app) *cobra.Command {
	var in service.TaskInput
	cmd := &cobra.Command{
		Use:   "add <pet> <name>",
		Short: "Add a task for a pet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = args[1]
			entry, err := a.household.AddTask(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", successStyle.Render("Added "+entry.Task.ShortID()), describeEntry(entry))
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVarP(&in.Duration, "duration", "d", 15, "duration in minutes")
	f.StringVarP(&in.Priority, "priority", "p", string(model.PriorityMedium), "high, medium or low")
	f.StringVarP(&in.Recurrence, "repeat", "r", string(model.RecurrenceOnce), "once, daily, weekly, biweekly or monthly")
	f.StringVar(&in.DueDate, "due", "", "due date, YYYY-MM-DD")
	f.StringVar(&in.StartTime, "at", "", "fixed start time, HH:MM")
	f.StringVar(&in.Description, "note", "", "free text description")
	return cmd
}

func newTaskListCmd(a *app) *cobra.Command {
	var sortArg, filterArg, pet, priority string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := buildView(sortArg, filterArg, pet, priority)
			if err != nil {
				return err
			}
			entries := a.household.ListTasks(view)
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), subtleStyle.Render("No tasks match."))
				return nil
			}
			return renderTasks(cmd.OutOrStdout(), entries, a.now())
		},
	}
	f := cmd.Flags()
	f.StringVar(&sortArg, "sort", string(service.SortDue), "due, entered, pet, priority or status")
	f.StringVar(&filterArg, "filter", string(service.FilterNone), "none, completed, uncompleted, overdue, pet, priority, today or future")
	f.StringVar(&pet, "pet", "", "pet name; implies --filter pet")
	f.StringVar(&priority, "priority", "", "priority; implies --filter priority")
	return cmd
}

// buildView lets --pet and --priority stand in for their filters.
func buildView(sortArg, filterArg, pet, priority string) (service.TaskView, error) {
	var view service.TaskView
	var err error
	if view.Sort, err = service.ParseSortMode(sortArg); err != nil {
		return view, err
	}
	if view.Filter, err = service.ParseFilterMode(filterArg); err != nil {
		return view, err
	}
	if pet != "" && view.Filter == service.FilterNone {
		view.Filter = service.FilterPet
	}
	if priority != "" && view.Filter == service.FilterNone {
		view.Filter = service.FilterPriority
	}
	view.Pet = pet

	switch view.Filter {
	case service.FilterPet:
		if pet == "" {
			return view, fmt.Errorf("%w: --filter pet needs --pet", service.ErrInvalidInput)
		}
	case service.FilterPriority:
		p, err := model.ParsePriority(priority)
		if err != nil {
			return view, fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
		}
		view.Priority = p
	}
	return view, nil
}

func newTaskEditCmd(a *app) *cobra.Command {
	var (
		name, note, priority, repeat, due, at, pet string
		duration                                   int
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a task; an empty --due or --at clears it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			var upd service.TaskUpdate
			if f.Changed("name") {
				upd.Name = &name
			}
			if f.Changed("note") {
				upd.Description = &note
			}
			if f.Changed("priority") {
				upd.Priority = &priority
			}
			if f.Changed("duration") {
				upd.Duration = &duration
			}
			if f.Changed("repeat") {
				upd.Recurrence = &repeat
			}
			if f.Changed("due") {
				upd.DueDate = &due
			}
			if f.Changed("at") {
				upd.StartTime = &at
			}
			if f.Changed("pet") {
				upd.Pet = &pet
			}

			entry, err := a.household.UpdateTask(cmd.Context(), args[0], upd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", successStyle.Render("Updated "+entry.Task.ShortID()), describeEntry(entry))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "name", "", "new name")
	f.StringVar(&note, "note", "", "new description")
	f.StringVarP(&priority, "priority", "p", "", "high, medium or low")
	f.IntVarP(&duration, "duration", "d", 0, "duration in minutes")
	f.StringVarP(&repeat, "repeat", "r", "", "once, daily, weekly, biweekly or monthly")
	f.StringVar(&due, "due", "", "due date, YYYY-MM-DD")
	f.StringVar(&at, "at", "", "fixed start time, HH:MM")
	f.StringVar(&pet, "pet", "", "move the task to another pet")
	return cmd
}

func newTaskCompleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <id>",
		Short: "Mark a task done; recurring tasks get their next occurrence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.household.CompleteTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("Done: %s", describeEntry(result.Completed))))
			if next := result.Successor; next != nil {
				fmt.Fprintf(out, "Next: %s %s\n", next.Task.ShortID(), describeEntry(*next))
			}
			return nil
		},
	}
}

func newTaskDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := a.household.DeleteTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Deleted %s", describeEntry(entry))))
			return nil
		},
	}
}
