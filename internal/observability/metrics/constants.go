// Package metrics provides the Prometheus collectors for dataset extraction.
package metrics

// Image outcomes.
const (
	OutcomeProcessed = "processed"
	OutcomeSkipped   = "skipped"
	OutcomeError     = "error"
)

// Annotation results.
const (
	ResultEncoded = "encoded"
	ResultDropped = "dropped"
)

// Row filter reasons.
const (
	ReasonHeldBack          = "held_back"
	ReasonSpecialUnenclosed = "special_unenclosed"
)

// Timed per-image operations.
const (
	OpPlace = "place"
	OpLabel = "label"
)
