package pipeline

import "errors"

var (
	// ErrMissingWeatherData means no weather record exists at or before a timestamp
	ErrMissingWeatherData = errors.New("no weather record at or before timestamp")
	// ErrGridInvariant means the assembled grid is not the exact edges × timestamps product
	ErrGridInvariant = errors.New("training grid invariant violated")
	// ErrSchemaMismatch means a category schema cannot encode the requested features
	ErrSchemaMismatch = errors.New("category schema mismatch")
	// ErrNoTrainingEdges means no sensor could be matched to an edge
	ErrNoTrainingEdges = errors.New("no sensor matched an edge")
	// ErrNoTimestamps means no count record survived matching
	ErrNoTimestamps = errors.New("no count record for a matched sensor")
)
