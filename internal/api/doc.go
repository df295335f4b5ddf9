// Package api holds the types shared between the orchestrator, the status
// report and the outer surfaces (CLI, HTTP server, metrics).
//
// Nothing in here has behavior beyond small helpers on the types; it exists
// so that packages can exchange service states and events without
// importing each other.
package api
