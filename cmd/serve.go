package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stevedore/internal/app"
)

// serveCmd runs stevedore as a long-lived process.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start services and keep them in the configured state",
	Long: `Starts every service, then keeps running:

  - the configuration file is watched and a start run follows every change
  - an HTTP API serves /healthz, /status, /runs, /plan, /events and /metrics
  - with --monitor-interval, stopped services whose restart policy is
    always, on-failure or unless-stopped are started again

When run under systemd with Type=notify, readiness is reported once the API
is listening.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := appConfig()
	cfg.Listen = viper.GetString("listen")
	cfg.MonitorInterval = viper.GetDuration("monitor-interval")
	cfg.StopOnExit = viper.GetBool("stop-on-exit")
	cfg.EventsLog = viper.GetString("events-log")

	application, err := app.NewApplication(cfg)
	if err != nil {
		return err
	}
	return application.Serve(cmd.Context())
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", app.DefaultListen, "Address of the HTTP API")
	serveCmd.Flags().Duration("monitor-interval", 30*time.Second, "How often to check for stopped services (0 disables)")
	serveCmd.Flags().Bool("stop-on-exit", false, "Stop every service when serve exits")
	serveCmd.Flags().String("events-log", "", "Append service events as JSON lines to this file")
	cobra.CheckErr(viper.BindPFlags(serveCmd.Flags()))
}
