package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stevedore/internal/config"
	"stevedore/internal/dependency"
	"stevedore/internal/descriptor"
	"stevedore/internal/ui"
)

var validateDescriptors bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration file",
	Long: `Loads the configuration, reports every problem found and checks the
dependency graph for cycles.

With --descriptors each enabled service's compose file is parsed as well,
with its .env file applied. Nothing is sent to the container runtime.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	path := viper.GetString("config")

	model, err := config.Load(path)
	if err != nil {
		return err
	}
	plan, err := dependency.Resolve(model)
	if err != nil {
		return err
	}
	ui.ValidationOK(out, path, fmt.Sprintf("%d services in %d levels, %d networks",
		len(model.ServiceNames()), len(plan.Levels), len(model.Networks())))

	if !validateDescriptors {
		return nil
	}

	failed := 0
	for _, res := range descriptor.LintAll(cmd.Context(), model) {
		if !res.OK() {
			failed++
			ui.ValidationErr(out, res.Service, res.Err.Error(), "check "+res.Path)
			continue
		}
		ui.ValidationOK(out, res.Service, fmt.Sprintf("project %s with %s", res.Project, strings.Join(res.Services, ", ")))
		for _, w := range res.Warnings {
			ui.Warn(out, res.Service+": "+w)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d descriptor(s) failed to parse", failed)
	}
	ui.Success(out, "All descriptors parsed")
	return nil
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVar(&validateDescriptors, "descriptors", false, "Also parse each service's compose file")
}
