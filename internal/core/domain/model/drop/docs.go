// Package drop implements the Drop aggregate: one pickup-and-deliver unit of work
// with its own time window, capacity footprint, priority and service tier.
//
// A Drop is created on booking confirmation and lives in the pending pool until the
// orchestration engine binds it to a Route. From then on the Route owns sequencing
// and the Drop only keeps a back-reference to it.
//
// # Lifecycle
//
//	Pending ──> AssignedToRoute ──> PickedUp ──> InTransit ──> Delivered
//	   ^               │
//	   └───────────────┘
//	      (route failed, drop released)
//
// Only Pending ↔ AssignedToRoute is driven by the orchestration engine; the later
// states are driven by delivery execution.
//
// # Construction
//
// NewDrop is strict and refuses to build a Drop that violates any invariant.
// RestoreDrop rehydrates a Drop from persistence or an API payload and only insists
// on a valid identifier, so that malformed input can be reported drop by drop:
//
//	d, err := drop.RestoreDrop(params, drop.Pending, nil)
//	if err != nil {
//	    return err // no usable identifier
//	}
//	if err := d.Validate(); err != nil {
//	    // reject this drop individually, keep processing the rest
//	}
package drop
