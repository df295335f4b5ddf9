package cmd

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/viper"

	"stevedore/internal/formatting"
)

// newFormatter returns the formatter selected by --output and --quiet.
func newFormatter() (formatting.Formatter, error) {
	format, err := formatting.ParseFormat(viper.GetString("output"))
	if err != nil {
		return nil, err
	}
	return formatting.NewFactory().CreateFormatter(formatting.Options{
		Format: format,
		Quiet:  viper.GetBool("quiet"),
		Color:  colorEnabled(os.Stdout),
	}), nil
}

// colorEnabled reports whether w is a terminal and NO_COLOR is unset.
func colorEnabled(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// withSpinner runs fn behind a progress spinner on stderr. The spinner is
// skipped in quiet mode, for machine-readable output and when stderr is not
// a terminal.
func withSpinner[T any](ctx context.Context, msg string, fn func(context.Context) (T, error)) (T, error) {
	if viper.GetBool("quiet") || viper.GetString("output") != string(formatting.FormatTable) || !colorEnabled(os.Stderr) {
		return fn(ctx)
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + msg
	s.Start()
	defer s.Stop()
	return fn(ctx)
}

// targets turns command arguments into run targets. No arguments or the
// single argument "all" select every service.
func targets(args []string) []string {
	if len(args) == 0 || (len(args) == 1 && args[0] == "all") {
		return nil
	}
	return args
}
