package cmd

import (
	"github.com/spf13/cobra"

	"stevedore/internal/app"
	"stevedore/internal/containerizer"
)

var (
	logsFollow bool
	logsTail   int
)

var logsCmd = &cobra.Command{
	Use:   "logs <service>",
	Short: "Show the container output of a service",
	Long: `Prints the output of the service's containers as reported by compose.

The service must be running. With --follow the output keeps streaming
until interrupted.`,
	Example: `  stevedore logs postgres
  stevedore logs api -f --tail 50`,
	Args: cobra.ExactArgs(1),
	RunE: runLogs,
}

func runLogs(cmd *cobra.Command, args []string) error {
	application, err := app.NewApplication(appConfig())
	if err != nil {
		return err
	}

	opts := containerizer.LogOptions{Follow: logsFollow, Tail: logsTail}
	return application.Logs(cmd.Context(), args[0], opts, cmd.OutOrStdout())
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Keep streaming new output")
	logsCmd.Flags().IntVar(&logsTail, "tail", 0, "Number of lines to show from the end (0 for all)")
	rootCmd.AddCommand(logsCmd)
}
