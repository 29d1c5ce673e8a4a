package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"pawpal/internal/service"
)

func newPetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pet",
		Short: "Manage pets",
	}
	cmd.AddCommand(newPetAddCmd(a), newPetListCmd(a), newPetRemoveCmd(a))
	return cmd
}

func newPetAddCmd(a *app) *cobra.Command {
	var in service.PetInput
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a pet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = args[0]
			pet, err := a.household.AddPet(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Added %s.", pet.Name)))
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Breed, "breed", "", "breed")
	cmd.Flags().IntVar(&in.Age, "age", 0, "age in years")
	cmd.Flags().Float64Var(&in.Weight, "weight", 0, "weight in kg")
	return cmd
}

func newPetListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pets := a.household.Pets()
			if len(pets) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), subtleStyle.Render("No pets yet. Add one with: pawpal pet add <name>"))
				return nil
			}
			return renderPets(cmd.OutOrStdout(), pets)
		},
	}
}

func newPetRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a pet and all of its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.household.RemovePet(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Removed %s.", args[0])))
			return nil
		},
	}
}
