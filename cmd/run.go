package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"stevedore/internal/api"
	"stevedore/internal/app"
	"stevedore/internal/orchestrator"
)

var runLongHelp = map[api.Action]string{
	api.ActionStart: `Start services in dependency order.

Networks are provisioned first. Each level starts once every service in the
previous level is running and healthy. Services that fail, and everything
depending on them, are reported without stopping the rest of the run.

Naming services starts them together with their dependencies.`,
	api.ActionStop: `Stop services in reverse dependency order.

Naming services stops them together with everything that depends on them.
A service that fails to stop is reported and the run continues.`,
	api.ActionRestart: `Stop services, then start them again.

The stop phase covers the named services and their dependents; the start
phase brings the same set back up in dependency order.`,
}

func newRunCmd(action api.Action) *cobra.Command {
	return &cobra.Command{
		Use:   fmt.Sprintf("%s [service...|all]", action),
		Short: fmt.Sprintf("%s services in dependency order", capitalize(string(action))),
		Long:  runLongHelp[action],
		Example: fmt.Sprintf(`  stevedore %[1]s
  stevedore %[1]s api worker
  stevedore %[1]s all -o json`, action),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, action, args)
		},
	}
}

func runAction(cmd *cobra.Command, action api.Action, args []string) error {
	formatter, err := newFormatter()
	if err != nil {
		return err
	}

	application, err := app.NewApplication(appConfig())
	if err != nil {
		return err
	}

	req := api.RunRequest{Action: action, Services: targets(args)}
	res, err := withSpinner(cmd.Context(), fmt.Sprintf("Running %s...", action), func(ctx context.Context) (*orchestrator.RunResult, error) {
		return application.Execute(ctx, req)
	})
	if err != nil {
		return err
	}

	if err := formatter.FormatRun(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	if !res.Success() {
		return &PartialFailureError{Summary: res.Report.Summary()}
	}
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func init() {
	rootCmd.AddCommand(newRunCmd(api.ActionStart))
	rootCmd.AddCommand(newRunCmd(api.ActionStop))
	rootCmd.AddCommand(newRunCmd(api.ActionRestart))
}
