package dependency

import (
	"fmt"
	"strings"
)

// DependencyCycleError is returned when the graph cannot be ordered. Cycle
// holds the members of one shortest cycle, in dependency order: each entry
// depends on the next and the last depends on the first.
type DependencyCycleError struct {
	Cycle []string
}

func (e *DependencyCycleError) Error() string {
	if len(e.Cycle) == 0 {
		return "dependency cycle detected"
	}
	path := append(append([]string{}, e.Cycle...), e.Cycle[0])
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(path, " -> "))
}

// UnknownServiceError is returned when a target filter names a service that
// is not part of the plan.
type UnknownServiceError struct {
	Name string
}

func (e *UnknownServiceError) Error() string {
	return fmt.Sprintf("unknown service %q", e.Name)
}
