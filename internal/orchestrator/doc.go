// Package orchestrator runs start, stop and restart operations across the
// configured services.
//
// An Engine resolves the model into a levelled plan once and then executes
// runs against it:
//
//  1. networks used by the run are provisioned, one at a time;
//  2. levels are processed strictly in order, services within a level in
//     parallel on a bounded pool;
//  3. each service is started with bounded retries, then waited on until its
//     health check passes, and its final state is recorded.
//
// A service whose dependency did not reach Running (or Degraded, in lenient
// mode) is marked Failed without any runtime call, and so are its
// transitive dependents. Stop runs use the reverse level order; a restart is
// a stop run over the targets and their dependents followed by a start run
// over the same services.
//
// Runs are serialized. Snapshot and Status may be called at any time,
// including while a run is in progress, and always return copies.
//
// Every state transition is published to subscribers obtained through
// SubscribeToStateChanges or SubscribeWithBuffer. Sends never block; a
// subscriber whose buffer is full misses events, and each miss is counted in
// the stevedore_orchestrator_dropped_events_total metric.
package orchestrator
