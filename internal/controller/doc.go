// Package controller is the per-service interface to the container runtime.
//
// Start and Stop first ask the runtime for the service's containers and
// return without further calls when the service is already in the wanted
// state; otherwise they issue exactly one compose invocation. Each runtime
// call runs under its own timeout, and exceeding it surfaces as a
// ComposeInvocationError with TimedOut set. Status never fails: when the
// runtime cannot be queried it reports StatusUnknown.
package controller
