package status

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"stevedore/internal/api"
)

func TestAggregate(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		states  []api.ServiceRuntimeState
		goal    api.ServiceState
		success bool
		failed  []string
		summary string
	}{
		{
			name: "all running",
			states: []api.ServiceRuntimeState{
				{Name: "A", State: api.StateRunning},
				{Name: "C", State: api.StateRunning},
			},
			goal:    api.StateRunning,
			success: true,
			summary: "2/2 services running",
		},
		{
			name: "partial failure",
			states: []api.ServiceRuntimeState{
				{Name: "A", State: api.StateFailed, LastError: errors.New("compose up failed")},
				{Name: "C", State: api.StateRunning},
				{Name: "B", State: api.StateFailed},
			},
			goal:    api.StateRunning,
			success: false,
			failed:  []string{"A", "B"},
			summary: "1/3 services running",
		},
		{
			name: "degraded is not success",
			states: []api.ServiceRuntimeState{
				{Name: "A", State: api.StateDegraded},
			},
			goal:    api.StateRunning,
			success: false,
			failed:  []string{"A"},
			summary: "0/1 services running",
		},
		{
			name: "skipped does not count",
			states: []api.ServiceRuntimeState{
				{Name: "A", State: api.StateStopped},
				{Name: "B", State: api.StateSkipped},
			},
			goal:    api.StateStopped,
			success: true,
			summary: "1/1 services stopped, 1 skipped",
		},
		{
			name:    "empty",
			goal:    api.StateRunning,
			success: true,
			summary: "0/0 services running",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := range tt.states {
				tt.states[i].LastTransition = now
			}
			r := Aggregate(tt.states, tt.goal)

			assert.Equal(t, tt.success, r.Success)
			assert.Equal(t, tt.goal, r.Goal)
			assert.Equal(t, tt.summary, r.Summary())
			assert.Len(t, r.Services, len(tt.states))

			var failed []string
			for _, f := range r.Failed() {
				failed = append(failed, f.Name)
			}
			assert.Equal(t, tt.failed, failed)
		})
	}
}

func TestAggregate_RowsCarryDetails(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	states := []api.ServiceRuntimeState{{
		Name:           "mail",
		State:          api.StateFailed,
		LastError:      errors.New("port 25 already allocated"),
		StartAttempts:  3,
		HealthAttempts: 0,
		Level:          1,
		LastTransition: ts,
	}}

	r := Aggregate(states, api.StateRunning)
	row, ok := r.Service("mail")
	assert.True(t, ok)
	assert.Equal(t, "port 25 already allocated", row.Error)
	assert.Equal(t, 3, row.StartAttempts)
	assert.Equal(t, 1, row.Level)
	assert.Equal(t, ts, row.LastTransition)

	_, ok = r.Service("nope")
	assert.False(t, ok)

	// input untouched
	assert.Equal(t, api.StateFailed, states[0].State)
}
