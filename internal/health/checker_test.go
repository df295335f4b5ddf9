package health

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stevedore/internal/config"
	"stevedore/internal/containerizer"
)

const kindFake config.HealthCheckKind = "fake"

// countingPinger fails until calls reaches healthyAfter (0 = never).
type countingPinger struct {
	calls        atomic.Int32
	healthyAfter int32
	err          error
}

func (p *countingPinger) Ping(ctx context.Context, spec config.HealthCheckSpec) error {
	n := p.calls.Add(1)
	if p.healthyAfter > 0 && n >= p.healthyAfter {
		return nil
	}
	return p.err
}

func fakeSpec(interval, timeout time.Duration, maxAttempts int) config.HealthCheckSpec {
	return config.HealthCheckSpec{
		Kind:         kindFake,
		Service:      "svc",
		Interval:     interval,
		Timeout:      timeout,
		AttemptTimeout: time.Second,
		MaxAttempts:  maxAttempts,
		Backoff:      config.BackoffFixed,
	}
}

func TestWaitUntilHealthy_AlwaysErroringTakesAboutThreeIntervals(t *testing.T) {
	pinger := &countingPinger{err: errors.New("connection refused")}
	c := NewChecker(nil).WithPinger(kindFake, pinger)

	interval := 100 * time.Millisecond
	start := time.Now()
	res := c.WaitUntilHealthy(context.Background(), fakeSpec(interval, 10*time.Second, 3))
	elapsed := time.Since(start)

	assert.Equal(t, OutcomeTimeout, res.Outcome)
	assert.Equal(t, 3, res.Attempts)
	assert.True(t, res.Exhausted)
	assert.False(t, res.Connected)
	assert.GreaterOrEqual(t, elapsed, 3*interval-10*time.Millisecond)
	assert.Less(t, elapsed, 10*interval)

	var timeoutErr *TimeoutError
	require.True(t, errors.As(res.Err, &timeoutErr))
	assert.Equal(t, 3, timeoutErr.Attempts)
	assert.Contains(t, res.Err.Error(), "connection refused")
}

func TestWaitUntilHealthy_BecomesHealthy(t *testing.T) {
	pinger := &countingPinger{healthyAfter: 3, err: errors.New("refused")}
	c := NewChecker(nil).WithPinger(kindFake, pinger)

	res := c.WaitUntilHealthy(context.Background(), fakeSpec(10*time.Millisecond, 5*time.Second, 10))

	assert.Equal(t, OutcomeHealthy, res.Outcome)
	assert.Equal(t, 3, res.Attempts)
	assert.True(t, res.Connected)
	assert.NoError(t, res.Err)
}

func TestWaitUntilHealthy_ConnectedButNeverReady(t *testing.T) {
	pinger := &countingPinger{err: &NotReadyError{Reason: "HTTP 503"}}
	c := NewChecker(nil).WithPinger(kindFake, pinger)

	res := c.WaitUntilHealthy(context.Background(), fakeSpec(10*time.Millisecond, 5*time.Second, 4))

	assert.Equal(t, OutcomeUnhealthy, res.Outcome)
	assert.True(t, res.Connected)
	assert.True(t, res.Exhausted)
	assert.Equal(t, 4, res.Attempts)
}

func TestWaitUntilHealthy_OverallTimeoutBoundsTheWait(t *testing.T) {
	pinger := &countingPinger{err: errors.New("refused")}
	c := NewChecker(nil).WithPinger(kindFake, pinger)

	start := time.Now()
	res := c.WaitUntilHealthy(context.Background(), fakeSpec(20*time.Millisecond, 150*time.Millisecond, 0))
	elapsed := time.Since(start)

	assert.Equal(t, OutcomeTimeout, res.Outcome)
	assert.False(t, res.Exhausted)
	assert.GreaterOrEqual(t, res.Attempts, 3)
	assert.Less(t, elapsed, time.Second)
}

func TestWaitUntilHealthy_Cancelled(t *testing.T) {
	pinger := &countingPinger{err: errors.New("refused")}
	c := NewChecker(nil).WithPinger(kindFake, pinger)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	res := c.WaitUntilHealthy(ctx, fakeSpec(time.Second, time.Minute, 0))

	assert.True(t, res.Cancelled)
	assert.False(t, res.Healthy())
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestWaitUntilHealthy_ExponentialIntervals(t *testing.T) {
	var stamps []time.Time
	pinger := PingerFunc(func(ctx context.Context, spec config.HealthCheckSpec) error {
		stamps = append(stamps, time.Now())
		return errors.New("refused")
	})
	c := NewChecker(nil).WithPinger(kindFake, pinger)

	spec := fakeSpec(20*time.Millisecond, 5*time.Second, 4)
	spec.Backoff = config.BackoffExponential
	c.WaitUntilHealthy(context.Background(), spec)

	require.Len(t, stamps, 4)
	first := stamps[1].Sub(stamps[0])
	third := stamps[3].Sub(stamps[2])
	// 20ms, 40ms, 80ms
	assert.Greater(t, third, 2*first)
}

func TestCheck_AttemptTimeout(t *testing.T) {
	slow := PingerFunc(func(ctx context.Context, spec config.HealthCheckSpec) error {
		<-ctx.Done()
		return ctx.Err()
	})
	c := NewChecker(nil).WithPinger(kindFake, slow)

	spec := fakeSpec(time.Second, time.Minute, 1)
	spec.AttemptTimeout = 20 * time.Millisecond

	res := c.Check(context.Background(), spec)
	assert.Equal(t, OutcomeTimeout, res.Outcome)
	assert.Equal(t, 1, res.Attempts)
	assert.Less(t, res.Latency, 500*time.Millisecond)
}

func TestCheck_UnsupportedKind(t *testing.T) {
	res := NewChecker(nil).Check(context.Background(), config.HealthCheckSpec{Kind: "grpc"})
	assert.Equal(t, OutcomeUnhealthy, res.Outcome)
	assert.Error(t, res.Err)
}

func TestHTTPPinger(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/nowhere", http.StatusFound)
	})
	mux.HandleFunc("/unavailable", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tests := []struct {
		name      string
		target    string
		outcome   Outcome
		connected bool
	}{
		{"200 is healthy", srv.URL + "/ok", OutcomeHealthy, true},
		{"302 is healthy", srv.URL + "/redirect", OutcomeHealthy, true},
		{"503 is not ready", srv.URL + "/unavailable", OutcomeUnhealthy, true},
		{"refused is not connected", "http://127.0.0.1:1/", OutcomeUnhealthy, false},
	}

	c := NewChecker(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.Check(context.Background(), config.HealthCheckSpec{
				Kind:         config.HealthCheckHTTP,
				Target:       tt.target,
				AttemptTimeout: 2 * time.Second,
			})
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Equal(t, tt.connected, res.Connected)
		})
	}
}

func TestTCPPinger(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	c := NewChecker(nil)
	res := c.Check(context.Background(), config.HealthCheckSpec{
		Kind:         config.HealthCheckTCP,
		Target:       ln.Addr().String(),
		AttemptTimeout: time.Second,
	})
	assert.True(t, res.Healthy())

	closed, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := closed.Addr().String()
	closed.Close()

	res = c.Check(context.Background(), config.HealthCheckSpec{
		Kind:         config.HealthCheckTCP,
		Target:       addr,
		AttemptTimeout: time.Second,
	})
	assert.False(t, res.Healthy())
	assert.False(t, res.Connected)
}

func TestCommandPinger(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name      string
		command   string
		outcome   Outcome
		connected bool
	}{
		{"exit zero", "exit 0", OutcomeHealthy, true},
		{"runs in descriptor dir", `test "$(pwd -P)" = "$(cd "` + dir + `" && pwd -P)"`, OutcomeHealthy, true},
		{"non-zero exit", "echo starting; exit 3", OutcomeUnhealthy, true},
	}

	c := NewChecker(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.Check(context.Background(), config.HealthCheckSpec{
				Kind:         config.HealthCheckCommand,
				Target:       tt.command,
				WorkDir:      dir,
				AttemptTimeout: 5 * time.Second,
			})
			assert.Equal(t, tt.outcome, res.Outcome, res.Message)
			assert.Equal(t, tt.connected, res.Connected)
		})
	}

	res := c.Check(context.Background(), config.HealthCheckSpec{
		Kind:         config.HealthCheckCommand,
		Target:       "echo starting; exit 3",
		WorkDir:      dir,
		AttemptTimeout: 5 * time.Second,
	})
	assert.Contains(t, res.Message, "status 3")
	assert.Contains(t, res.Message, "starting")
}

type listerFunc func(ctx context.Context, svc config.ServiceDefinition) ([]containerizer.ContainerState, error)

func (f listerFunc) Containers(ctx context.Context, svc config.ServiceDefinition) ([]containerizer.ContainerState, error) {
	return f(ctx, svc)
}

func TestContainerPinger(t *testing.T) {
	tests := []struct {
		name       string
		containers []containerizer.ContainerState
		err        error
		outcome    Outcome
		connected  bool
	}{
		{
			name:       "running",
			containers: []containerizer.ContainerState{{Name: "db-1", State: "running"}},
			outcome:    OutcomeHealthy,
			connected:  true,
		},
		{
			name:       "healthcheck starting",
			containers: []containerizer.ContainerState{{Name: "db-1", State: "running", Health: "starting"}},
			outcome:    OutcomeUnhealthy,
			connected:  true,
		},
		{
			name:      "no containers",
			outcome:   OutcomeUnhealthy,
			connected: false,
		},
		{
			name:      "runtime error",
			err:       errors.New("cannot connect to the docker daemon"),
			outcome:   OutcomeUnhealthy,
			connected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var asked string
			lister := listerFunc(func(ctx context.Context, svc config.ServiceDefinition) ([]containerizer.ContainerState, error) {
				asked = svc.Name
				return tt.containers, tt.err
			})
			res := NewChecker(lister).Check(context.Background(), config.HealthCheckSpec{
				Kind:         config.HealthCheckContainer,
				Service:      "db",
				AttemptTimeout: time.Second,
			})
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Equal(t, tt.connected, res.Connected)
			assert.Equal(t, "db", asked)
		})
	}
}
