// Package dependency orders services by their declared dependencies.
//
// A Graph holds one node per service with the names it depends on. Resolve
// runs Kahn's algorithm over it and returns a Plan made of levels: every
// service whose dependencies are all placed in earlier levels goes into the
// next level, so the services of one level can be started concurrently.
// Services of a level keep their declaration order, which makes plans stable
// across runs.
//
//	plan, err := dependency.Resolve(model)
//	if err != nil {
//	    var cycle *dependency.DependencyCycleError
//	    if errors.As(err, &cycle) {
//	        fmt.Println("cycle:", cycle.Cycle)
//	    }
//	    return err
//	}
//	for i, level := range plan.Levels {
//	    fmt.Println(i, level)
//	}
//
// Given services A, B (depends on A) and C, the plan is [[A C] [B]].
// StopLevels returns the exact reverse so dependents are torn down before
// the services they rely on.
//
// # Cycles
//
// When nodes remain unplaced after the sort, the graph contains a cycle.
// DependencyCycleError reports the members of the shortest cycle among the
// unplaced nodes rather than every blocked node.
//
// # Subsets
//
// Plan.Subset narrows a plan to a set of targets. Starting a target pulls in
// everything it depends on; stopping a target pulls in everything that
// depends on it. The failure propagation in the orchestrator uses
// Graph.TransitiveDependents for the same walk.
package dependency
