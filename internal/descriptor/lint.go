package descriptor

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/compose-spec/compose-go/v2/cli"
	"github.com/compose-spec/compose-go/v2/loader"

	"stevedore/internal/config"
	"stevedore/pkg/logging"
)

// Result is the outcome of linting one service's descriptor.
type Result struct {
	Service  string   `json:"service"`
	Path     string   `json:"path"`
	Project  string   `json:"project,omitempty"`
	Services []string `json:"services,omitempty"`
	Networks []string `json:"networks,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Err      error    `json:"-"`
}

// OK reports whether the descriptor parsed.
func (r Result) OK() bool {
	return r.Err == nil
}

// Lint parses the compose descriptor of svc the way the runtime would,
// with the descriptor directory as working directory and its .env file
// applied. It never contacts the runtime.
func Lint(ctx context.Context, svc config.ServiceDefinition) Result {
	res := Result{Service: svc.Name, Path: svc.DescriptorPath}

	opts, err := cli.NewProjectOptions(
		[]string{svc.DescriptorPath},
		cli.WithName(loader.NormalizeProjectName(svc.Name)),
		cli.WithWorkingDirectory(filepath.Dir(svc.DescriptorPath)),
		cli.WithOsEnv,
		cli.WithDotEnv,
	)
	if err != nil {
		res.Err = fmt.Errorf("project options: %w", err)
		return res
	}

	project, err := opts.LoadProject(ctx)
	if err != nil {
		res.Err = err
		return res
	}

	res.Project = project.Name
	res.Services = project.ServiceNames()
	res.Networks = project.NetworkNames()
	slices.Sort(res.Services)
	slices.Sort(res.Networks)

	for _, name := range svc.Networks {
		nw, ok := project.Networks[name]
		switch {
		case !ok:
			res.Warnings = append(res.Warnings, fmt.Sprintf("network %q is not referenced by the descriptor", name))
		case !bool(nw.External):
			res.Warnings = append(res.Warnings, fmt.Sprintf("network %q is not declared external in the descriptor", name))
		}
	}
	return res
}

// LintAll lints every enabled service of m in declaration order.
func LintAll(ctx context.Context, m *config.Model) []Result {
	var out []Result
	for _, svc := range m.Services() {
		if !svc.Enabled {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		res := Lint(ctx, svc)
		if res.Err != nil {
			logging.Debug("Descriptor", "Descriptor of %s failed to parse: %v", svc.Name, res.Err)
		}
		out = append(out, res)
	}
	return out
}
