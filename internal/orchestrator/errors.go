package orchestrator

import (
	"fmt"

	"stevedore/internal/api"
)

// DependencyFailedError is recorded on a service that was not attempted
// because one of its dependencies did not come up.
type DependencyFailedError struct {
	Service    string
	Dependency string
	State      api.ServiceState
}

func (e *DependencyFailedError) Error() string {
	return fmt.Sprintf("dependency %s of %s is %s", e.Dependency, e.Service, e.State)
}
