// Package route implements the Route aggregate: an ordered set of drops that one
// driver services within one operating window.
//
// Once a drop is bound to a route, the route is the authority for its sequencing.
// The drop keeps only a back-reference.
//
// # Lifecycle
//
//	PendingAssignment ──> Assigned ──> InProgress ──> Completed
//	                         │  ^          │
//	                         └──┘          │
//	                    (reassignment)     │
//	             Assigned/InProgress ──> Failed
//
// A route enters PendingAssignment when the orchestrator found no driver for it.
// An admin (or a later pass) binds a driver, which moves it to Assigned.
package route
