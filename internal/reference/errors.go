package reference

import (
	"fmt"

	"github.com/banshee-data/temporal-compression/internal/trial"
)

// MissingReferenceError reports a trial whose route has no entry in the
// reference table. It aborts the join for the condition.
type MissingReferenceError struct {
	Condition trial.Condition
	Row       int
	RouteID   string
}

func (e *MissingReferenceError) Error() string {
	if e.RouteID == "" {
		return fmt.Sprintf("%s: row %d has no route_id", e.Condition, e.Row)
	}
	return fmt.Sprintf("%s: row %d references unknown route %q", e.Condition, e.Row, e.RouteID)
}

// AlignmentError reports that the trial table does not have the
// participant-major, route-minor layout a positional route assignment
// needs, or that the join changed the row count.
type AlignmentError struct {
	Condition   trial.Condition
	Participant string
	Expected    int
	Got         int
	Reason      string
}

func (e *AlignmentError) Error() string {
	if e.Participant != "" {
		return fmt.Sprintf("%s: participant %q: %s (expected %d, got %d)",
			e.Condition, e.Participant, e.Reason, e.Expected, e.Got)
	}
	return fmt.Sprintf("%s: %s (expected %d, got %d)", e.Condition, e.Reason, e.Expected, e.Got)
}
