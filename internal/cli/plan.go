package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newPlanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show the prioritized plan and today's agenda",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			now := a.now()
			plan := a.household.Plan()

			fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%s's pets · %s", a.household.OwnerName(), now.Format("Mon 02 Jan 2006"))))
			fmt.Fprintln(out, boxStyle.Render(a.household.Explain(plan)))
			fmt.Fprintln(out)

			agenda := a.household.AgendaAt(now)
			if agenda.Empty() {
				fmt.Fprintln(out, subtleStyle.Render("Nothing left to do."))
				return nil
			}
			return renderAgenda(out, agenda, now)
		},
	}
}

func newConflictsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "conflicts",
		Short: "List overlapping appointments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			warnings := a.household.Conflicts()
			if len(warnings) == 0 {
				fmt.Fprintln(out, successStyle.Render("No scheduling conflicts."))
				return nil
			}
			for _, w := range warnings {
				fmt.Fprintln(out, warningStyle.Render(w))
			}
			return nil
		},
	}
}

// now reads the scheduler clock.
func (a *app) now() time.Time {
	return a.household.Scheduler().Now()
}
