package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stevedore/internal/app"
	"stevedore/internal/config"
	"stevedore/internal/dependency"
	"stevedore/internal/network"
	"stevedore/internal/ui"
	"stevedore/pkg/logging"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeConfig indicates the configuration could not be loaded or is invalid.
	ExitCodeConfig = 2
	// ExitCodeCycle indicates the service dependencies form a cycle.
	ExitCodeCycle = 3
	// ExitCodePartialFailure indicates a run finished with services not in the goal state.
	ExitCodePartialFailure = 4
	// ExitCodeNetwork indicates a shared network could not be provisioned.
	ExitCodeNetwork = 5
)

const envPrefix = "STEVEDORE"

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "stevedore",
	Short: "Bring up a stack of compose projects in dependency order",
	Long: `stevedore starts, stops and restarts a set of compose projects described
in one configuration file. Services start level by level once their
dependencies are running and healthy, and stop in reverse order.

Every flag can also be set through the environment, e.g. STEVEDORE_CONFIG
or STEVEDORE_MAX_PARALLEL.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		format, level, err := logSettings()
		if err != nil {
			return err
		}
		if n := viper.GetInt("start-attempts"); n < 1 {
			return fmt.Errorf("--start-attempts must be at least 1, got %d", n)
		}
		logging.Init(format, level, os.Stderr)
		return nil
	},
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the root command and exits with a code describing the
// failure, if any.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "stevedore version %s\n" .Version}}`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		var partial *PartialFailureError
		if !errors.As(err, &partial) {
			fmt.Fprint(os.Stderr, describeError(err))
		}
		os.Exit(getExitCode(err))
	}
}

// PartialFailureError is returned when a run completed but left services
// outside the goal state. The report has already been printed.
type PartialFailureError struct {
	Summary string
}

func (e *PartialFailureError) Error() string {
	return "run finished with failures: " + e.Summary
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	var cycle *dependency.DependencyCycleError
	if errors.As(err, &cycle) {
		return ExitCodeCycle
	}

	var invalid *config.ConfigValidationError
	if errors.As(err, &invalid) {
		return ExitCodeConfig
	}

	var load *config.LoadError
	if errors.As(err, &load) {
		return ExitCodeConfig
	}

	var provision *network.ProvisionError
	if errors.As(err, &provision) {
		return ExitCodeNetwork
	}

	var partial *PartialFailureError
	if errors.As(err, &partial) {
		return ExitCodePartialFailure
	}

	return ExitCodeError
}

// describeError renders err for the terminal with a hint where one helps.
func describeError(err error) string {
	var invalid *config.ConfigValidationError
	if errors.As(err, &invalid) {
		return ui.FormatError("invalid configuration", invalid.Detailed(), "run 'stevedore validate' after fixing the file")
	}

	var load *config.LoadError
	if errors.As(err, &load) {
		return ui.FormatError("cannot load configuration", err.Error(), "pass --config or set STEVEDORE_CONFIG")
	}

	var cycle *dependency.DependencyCycleError
	if errors.As(err, &cycle) {
		return ui.FormatError("dependency cycle", err.Error(), "remove one of the depends_on edges")
	}

	var unknown *dependency.UnknownServiceError
	if errors.As(err, &unknown) {
		return ui.FormatError("unknown service", err.Error(), "run 'stevedore plan' to list the configured services")
	}

	var provision *network.ProvisionError
	if errors.As(err, &provision) {
		return ui.FormatError("network provisioning failed", err.Error(), "check that the container runtime is reachable")
	}

	return ui.FormatError(err.Error(), "", "")
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "stevedore.yaml", "Configuration file (.yaml, .yml, .json or .toml)")
	flags.String("runtime", "docker", "Container runtime CLI (docker or podman)")
	flags.String("compose-command", "", `Compose invocation (default "<runtime> compose")`)
	flags.Int("max-parallel", 4, "Services started or stopped concurrently within one level")
	flags.Bool("lenient", false, "Let dependents start when a dependency is degraded")
	flags.Duration("call-timeout", 2*time.Minute, "Timeout for a single compose call")
	flags.Int("start-attempts", 3, "Start or stop calls per service before it is marked failed")
	flags.Bool("debug", false, "Enable debug logging (same as --log-level debug)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "text", "Log format (text or json)")
	flags.StringP("output", "o", "table", "Output format (table, json, yaml)")
	flags.BoolP("quiet", "q", false, "Suppress non-essential output")

	cobra.CheckErr(viper.BindPFlags(flags))

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}

func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// logSettings resolves --log-format, --log-level and --debug.
func logSettings() (logging.Format, logging.LogLevel, error) {
	format, err := logging.ParseFormat(viper.GetString("log-format"))
	if err != nil {
		return "", logging.LevelInfo, err
	}
	level := logging.ParseLevel(viper.GetString("log-level"))
	if viper.GetBool("debug") {
		level = logging.LevelDebug
	}
	return format, level, nil
}

// appConfig builds the application configuration from flags and environment.
func appConfig() *app.Config {
	cfg := app.NewConfig(viper.GetString("config"), viper.GetBool("debug"))
	cfg.RuntimeType = viper.GetString("runtime")
	cfg.ComposeCommand = viper.GetString("compose-command")
	cfg.CallTimeout = viper.GetDuration("call-timeout")
	cfg.MaxParallel = viper.GetInt("max-parallel")
	cfg.Lenient = viper.GetBool("lenient")
	cfg.StartAttempts = viper.GetInt("start-attempts")
	if format, level, err := logSettings(); err == nil {
		cfg.LogFormat, cfg.LogLevel = format, level
	}
	cfg.Version = GetVersion()
	return cfg
}
