package status

import (
	"fmt"
	"time"

	"stevedore/internal/api"
)

// ServiceReport is one row of a Report.
type ServiceReport struct {
	Name           string           `json:"name"`
	State          api.ServiceState `json:"state"`
	Error          string           `json:"error,omitempty"`
	StartAttempts  int              `json:"startAttempts"`
	HealthAttempts int              `json:"healthAttempts"`
	Level          int              `json:"level"`
	LastTransition time.Time        `json:"lastTransition"`
}

// Report is the system-wide view of a set of services.
type Report struct {
	// Goal is the state every service must be in for Success.
	Goal     api.ServiceState         `json:"goal"`
	Success  bool                     `json:"success"`
	Counts   map[api.ServiceState]int `json:"counts"`
	Services []ServiceReport          `json:"services"`
}

// Aggregate builds a report from per-service states, keeping their order.
// Success is true only when every service is in goal; skipped services are
// listed but do not count against success. Aggregate never modifies its
// input.
func Aggregate(states []api.ServiceRuntimeState, goal api.ServiceState) Report {
	r := Report{
		Goal:     goal,
		Success:  true,
		Counts:   make(map[api.ServiceState]int),
		Services: make([]ServiceReport, 0, len(states)),
	}

	for _, st := range states {
		r.Counts[st.State]++
		if st.State != goal && st.State != api.StateSkipped {
			r.Success = false
		}
		r.Services = append(r.Services, ServiceReport{
			Name:           st.Name,
			State:          st.State,
			Error:          st.ErrorMessage(),
			StartAttempts:  st.StartAttempts,
			HealthAttempts: st.HealthAttempts,
			Level:          st.Level,
			LastTransition: st.LastTransition,
		})
	}
	return r
}

// Service returns the row for name.
func (r Report) Service(name string) (ServiceReport, bool) {
	for _, s := range r.Services {
		if s.Name == name {
			return s, true
		}
	}
	return ServiceReport{}, false
}

// Failed returns the rows that did not reach the goal, skipped services
// excluded.
func (r Report) Failed() []ServiceReport {
	var out []ServiceReport
	for _, s := range r.Services {
		if s.State != r.Goal && s.State != api.StateSkipped {
			out = append(out, s)
		}
	}
	return out
}

// Summary is a one-line description such as "2/3 services running".
func (r Report) Summary() string {
	total := len(r.Services) - r.Counts[api.StateSkipped]
	msg := fmt.Sprintf("%d/%d services %s", r.Counts[r.Goal], total, r.Goal)
	if skipped := r.Counts[api.StateSkipped]; skipped > 0 {
		msg += fmt.Sprintf(", %d skipped", skipped)
	}
	return msg
}
