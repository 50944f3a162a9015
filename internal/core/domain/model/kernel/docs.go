// Package kernel provides the shared value objects of the dispatch domain.
//
// The package includes:
//   - UUID: identifier value object over github.com/google/uuid
//   - Location: a geographic point (latitude, longitude, address) with haversine distance
//   - TimeWindow: an earliest/latest service window
//   - Geofence: a circular service area
//
// Values are immutable and built through constructors that validate their invariants.
// Zero values fail validation so that uninitialised data cannot leak into the pipeline.
package kernel
