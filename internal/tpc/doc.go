// Package tpc implements the four-stage AT-TPC trajectory reconstruction
// pipeline: point-cloud building (C4), clustering (C5), estimation (C7),
// and physics solving (C8), plus their shared primitives (pad geometry,
// trace analysis, drift correction, circle fitting, particle-ID gating).
//
// Dependency rule: later phases may depend on earlier phase types, but a
// phase never depends on the store or run-driver packages. All positions
// crossing a component boundary are millimetres; the solver alone works
// internally in SI metres.
package tpc
