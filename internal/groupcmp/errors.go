package groupcmp

import "errors"

var (
	// ErrTooFewGroups is returned when fewer than two conditions have data.
	ErrTooFewGroups = errors.New("groupcmp: need at least two groups")
	// ErrTooFewObservations is returned when a test's minimum sample size
	// is not met.
	ErrTooFewObservations = errors.New("groupcmp: too few observations")
	// ErrAllIdentical is returned when every pooled value is the same and
	// no rank or variance based statistic exists.
	ErrAllIdentical = errors.New("groupcmp: all values are identical")
)
