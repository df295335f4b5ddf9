package config

import (
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// NewModel validates doc and freezes it into a Model. Relative descriptor
// paths are resolved against baseDir. All problems are collected and
// returned together as a *ConfigValidationError.
func NewModel(doc Document, baseDir string) (*Model, error) {
	return newModel(doc, baseDir, "")
}

func newModel(doc Document, baseDir, source string) (*Model, error) {
	var errs ValidationErrors

	m := &Model{
		source:   source,
		byName:   make(map[string]int),
		netIndex: make(map[string]int),
	}

	for i, nd := range doc.Networks {
		field := fmt.Sprintf("networks[%d]", i)
		if err := ValidateEntityName(field+".name", nd.Name, "network"); err != nil {
			errs.AddIfErr(err)
			continue
		}
		if _, dup := m.netIndex[nd.Name]; dup {
			errs.Add(field+".name", fmt.Sprintf("duplicate network name %q", nd.Name), nd.Name)
			continue
		}
		driver := strings.TrimSpace(nd.Driver)
		if driver == "" {
			driver = DefaultNetworkDriver
		}
		m.netIndex[nd.Name] = len(m.networks)
		m.networks = append(m.networks, NetworkDefinition{
			Name:     nd.Name,
			Driver:   driver,
			External: nd.External,
		})
	}

	if len(doc.Services) == 0 {
		errs.Add("services", "at least one service must be defined")
	}

	for i, sd := range doc.Services {
		field := fmt.Sprintf("services[%d]", i)
		if sd.Name != "" {
			field = fmt.Sprintf("services[%s]", sd.Name)
		}

		if err := ValidateEntityName(field+".name", sd.Name, "service"); err != nil {
			errs.AddIfErr(err)
			continue
		}
		if _, dup := m.byName[sd.Name]; dup {
			errs.Add(field+".name", fmt.Sprintf("duplicate service name %q", sd.Name), sd.Name)
			continue
		}

		svc := ServiceDefinition{
			Name:    sd.Name,
			Enabled: sd.Enabled == nil || *sd.Enabled,
			Restart: RestartNo,
		}

		descriptor, err := renderTemplate(sd.Name+".descriptor_path", sd.DescriptorPath, doc.Vars)
		if err != nil {
			errs.Add(field+".descriptor_path", err.Error(), sd.DescriptorPath)
		} else if err := ValidateRequired(field+".descriptor_path", descriptor, "service"); err != nil {
			errs.AddIfErr(err)
		} else {
			if !filepath.IsAbs(descriptor) && baseDir != "" {
				descriptor = filepath.Join(baseDir, descriptor)
			}
			svc.DescriptorPath = filepath.Clean(descriptor)
		}

		if sd.Restart != "" {
			if err := ValidateOneOf(field+".restart", sd.Restart, restartPolicies); err != nil {
				errs.AddIfErr(err)
			} else {
				svc.Restart = RestartPolicy(sd.Restart)
			}
		}

		seenNet := make(map[string]bool)
		for _, n := range sd.Networks {
			if seenNet[n] {
				errs.Add(field+".networks", fmt.Sprintf("network %q listed more than once", n), n)
				continue
			}
			seenNet[n] = true
			if _, ok := m.netIndex[n]; !ok {
				errs.Add(field+".networks", fmt.Sprintf("references undeclared network %q", n), n)
				continue
			}
			svc.Networks = append(svc.Networks, n)
		}

		seenDep := make(map[string]bool)
		for _, dep := range sd.DependsOn {
			if dep == sd.Name {
				errs.Add(field+".depends_on", "service cannot depend on itself", dep)
				continue
			}
			if seenDep[dep] {
				errs.Add(field+".depends_on", fmt.Sprintf("dependency %q listed more than once", dep), dep)
				continue
			}
			seenDep[dep] = true
			svc.DependsOn = append(svc.DependsOn, dep)
		}

		if sd.HealthCheck != nil {
			hc, hcErrs := buildHealthCheck(field+".health_check", sd.Name, svc.DescriptorPath, *sd.HealthCheck, doc.Vars)
			errs = append(errs, hcErrs...)
			svc.HealthCheck = hc
		}

		m.byName[sd.Name] = len(m.services)
		m.services = append(m.services, svc)
	}

	// References are checked once every name is known so that forward
	// references are legal.
	for _, svc := range m.services {
		field := fmt.Sprintf("services[%s].depends_on", svc.Name)
		for _, dep := range svc.DependsOn {
			idx, ok := m.byName[dep]
			if !ok {
				errs.AddErr(field, &UnknownDependencyError{Service: svc.Name, Dependency: dep})
				continue
			}
			if svc.Enabled && !m.services[idx].Enabled {
				errs.Add(field, fmt.Sprintf("enabled service depends on disabled service %q", dep), dep)
			}
		}
	}

	if errs.HasErrors() {
		return nil, &ConfigValidationError{Source: source, Problems: errs}
	}
	return m, nil
}

func buildHealthCheck(field, service, descriptor string, doc HealthCheckDocument, vars map[string]string) (*HealthCheckSpec, ValidationErrors) {
	var errs ValidationErrors

	workDir := ""
	if descriptor != "" {
		workDir = filepath.Dir(descriptor)
	}

	spec := &HealthCheckSpec{
		Kind:           HealthCheckKind(doc.Kind),
		Interval:       DefaultHealthInterval,
		Timeout:        DefaultHealthTimeout,
		AttemptTimeout:   DefaultHealthAttemptTimeout,
		MaxAttempts:    doc.MaxAttempts,
		Backoff:        BackoffFixed,
		Service:        service,
		DescriptorPath: descriptor,
		WorkDir:        workDir,
	}

	if err := ValidateOneOf(field+".kind", doc.Kind, healthCheckKinds); err != nil {
		errs.AddIfErr(err)
	}

	target, err := renderTemplate(service+".health_check.target", doc.Target, vars)
	if err != nil {
		errs.Add(field+".target", err.Error(), doc.Target)
	}
	spec.Target = strings.TrimSpace(target)

	switch spec.Kind {
	case HealthCheckHTTP:
		if spec.Target == "" {
			errs.Add(field+".target", "is required for http checks")
		} else if u, err := url.Parse(spec.Target); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs.Add(field+".target", "must be an http:// or https:// URL", spec.Target)
		}
	case HealthCheckTCP:
		if spec.Target == "" {
			errs.Add(field+".target", "is required for tcp checks")
		} else if _, _, err := net.SplitHostPort(spec.Target); err != nil {
			errs.Add(field+".target", "must be host:port", spec.Target)
		}
	case HealthCheckCommand:
		if spec.Target == "" {
			errs.Add(field+".target", "is required for command checks")
		}
	}

	if doc.MaxAttempts < 0 {
		errs.Add(field+".max_attempts", "must not be negative", doc.MaxAttempts)
	}

	if doc.Backoff != "" {
		if err := ValidateOneOf(field+".backoff", doc.Backoff, []string{string(BackoffFixed), string(BackoffExponential)}); err != nil {
			errs.AddIfErr(err)
		} else {
			spec.Backoff = BackoffKind(doc.Backoff)
		}
	}

	durations := []struct {
		name  string
		raw   string
		value *time.Duration
	}{
		{"interval", doc.Interval, &spec.Interval},
		{"timeout", doc.Timeout, &spec.Timeout},
		{"attempt_timeout", doc.AttemptTimeout, &spec.AttemptTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := ParseDuration(d.raw)
		if err != nil {
			errs.Add(field+"."+d.name, err.Error(), d.raw)
			continue
		}
		if v <= 0 {
			errs.Add(field+"."+d.name, "must be positive", d.raw)
			continue
		}
		*d.value = v
	}

	if spec.AttemptTimeout > spec.Timeout {
		spec.AttemptTimeout = spec.Timeout
	}

	return spec, errs
}

// ParseDuration accepts Go duration strings and bare numbers, which are read
// as seconds.
func ParseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	return d, nil
}
