package core

import "errors"

// Fatal engine errors. All of them abort the current computation; there is no
// partial-success mode — a snapshot is either fully computed or not produced.
var (
	// ErrInvalidEventPeriod reports an event period whose end date precedes its
	// start date, or dates that do not parse as YYYY-MM-DD.
	ErrInvalidEventPeriod = errors.New("invalid event period")

	// ErrIncompleteEventData reports an event missing beneficiaries or materials.
	ErrIncompleteEventData = errors.New("incomplete event data")

	// ErrMissingReferenceData reports a category or park id that is absent from
	// the reference lists supplied to a grouping call.
	ErrMissingReferenceData = errors.New("missing reference data")
)
