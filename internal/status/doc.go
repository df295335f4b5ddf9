// Package status turns per-service runtime states into a report.
//
// Aggregate is a pure function: it copies what it needs and never touches
// the states it is given, so it can run against a snapshot taken while a run
// is still in progress.
package status
