package route

import "dispatch/internal/core/domain/model/kernel"

// Stop references one drop at a position in the route sequence.
type Stop struct {
	dropID   kernel.UUID
	sequence int
}

func (s Stop) DropID() kernel.UUID {
	return s.dropID
}

// Sequence is the zero-based position of the drop on the route.
func (s Stop) Sequence() int {
	return s.sequence
}

// Metadata records how a route was produced.
type Metadata struct {
	AlgorithmVersion string
	Notes            string
	Warnings         []string
}

func (m Metadata) clone() Metadata {
	out := m
	out.Warnings = append([]string(nil), m.Warnings...)
	return out
}
