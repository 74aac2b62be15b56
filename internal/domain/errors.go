package domain

import "errors"

var (
	// ErrSourceUnavailable reports a failed fetch or a feed that could not be parsed.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSchemaMismatch reports a feed missing a required column. Errors carrying it
	// also match ErrSourceUnavailable.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrRegionNotFound reports a selection naming a region absent from the data.
	ErrRegionNotFound = errors.New("region not found")

	// ErrNoDataForDate reports a ranking requested for a date with no records.
	ErrNoDataForDate = errors.New("no data for date")

	// ErrInvalidSelection reports an unknown metric, window, view or policy value.
	ErrInvalidSelection = errors.New("invalid selection")
)
