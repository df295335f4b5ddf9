// Package server exposes the orchestrator over HTTP while stevedore runs in
// serve mode.
//
// Routes:
//
//	GET  /healthz            liveness of the API itself
//	GET  /status             report of the latest run (?live=true queries the runtime)
//	GET  /status/:service    one row of that report
//	POST /runs               {"action":"start|stop|restart","services":[...]}
//	GET  /runs/last          result of the latest completed run
//	GET  /plan               start plan (?services=a,b narrows it)
//	GET  /metrics            Prometheus metrics
//	GET  /events             recent service events (?limit=n)
//
// Runs triggered over HTTP are bound to the server's lifetime, not to the
// request, so a client that disconnects does not cancel a run halfway.
package server
