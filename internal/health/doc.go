// Package health checks services until they report ready.
//
// Check runs one attempt bounded by HealthCheckSpec.AttemptTimeout. WaitUntilHealthy
// repeats it at a fixed or exponentially growing interval until the service
// is healthy, MaxAttempts attempts were made, or the overall Timeout elapsed.
// A failing attempt never aborts the wait.
//
// Four check kinds exist:
//
//   - http: GET the target URL; 2xx and 3xx are healthy.
//   - tcp: open a connection to host:port.
//   - command: run the target with "sh -c" in the descriptor's directory;
//     exit status 0 is healthy.
//   - container: every container of the service is running and, where a
//     healthcheck is declared, healthy.
//
// Pingers distinguish "reached the service but it is not ready" (a
// *NotReadyError) from "could not reach it at all". A wait that ends without
// success reports OutcomeUnhealthy when any attempt reached the service and
// OutcomeTimeout otherwise, and carries a *TimeoutError. The orchestrator
// uses that distinction to tell Degraded services from Failed ones.
package health
