package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stevedore/internal/config"
	"stevedore/internal/dependency"
)

var planStop bool

var planCmd = &cobra.Command{
	Use:   "plan [service...|all]",
	Short: "Print the start order without touching the runtime",
	Long: `Resolves the dependency graph and prints the services grouped by level.
Services in one level start concurrently; a level starts once the previous
one is up.

Naming services limits the plan to them and their dependencies, or with
--stop to them and their dependents.`,
	Example: `  stevedore plan
  stevedore plan api --stop`,
	RunE: runPlan,
}

func runPlan(cmd *cobra.Command, args []string) error {
	formatter, err := newFormatter()
	if err != nil {
		return err
	}

	model, err := config.Load(viper.GetString("config"))
	if err != nil {
		return err
	}
	plan, err := dependency.Resolve(model)
	if err != nil {
		return err
	}

	dir := dependency.DirectionStart
	if planStop {
		dir = dependency.DirectionStop
	}
	plan, err = plan.Subset(targets(args), dir)
	if err != nil {
		return err
	}
	return formatter.FormatPlan(cmd.OutOrStdout(), plan)
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().BoolVar(&planStop, "stop", false, "Select dependents instead of dependencies")
}
