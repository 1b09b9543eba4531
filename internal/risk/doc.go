// Package risk converts raw sensor scalars into severities, trends,
// confidence and an aggregate risk index.
//
// Every function is pure: inputs are never retained or mutated, and the
// package holds no mutable state, so it is safe for concurrent use.
// History buffers and baselines are owned by the caller.
package risk
