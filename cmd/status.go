package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"stevedore/internal/app"
	"stevedore/internal/status"
)

var statusCmd = &cobra.Command{
	Use:   "status [service...|all]",
	Short: "Show whether services are running",
	Long: `Queries the container runtime for the current state of each service.

Services are reported as running, stopped or unknown when the runtime
cannot be reached. Disabled services are reported as skipped.`,
	Example: `  stevedore status
  stevedore status postgres -o yaml`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	formatter, err := newFormatter()
	if err != nil {
		return err
	}

	application, err := app.NewApplication(appConfig())
	if err != nil {
		return err
	}

	report, err := withSpinner(cmd.Context(), "Querying runtime...", func(ctx context.Context) (status.Report, error) {
		return application.Engine().Observe(ctx, targets(args))
	})
	if err != nil {
		return err
	}
	return formatter.FormatReport(cmd.OutOrStdout(), report)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
