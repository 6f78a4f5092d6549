package finisher

import (
	"context"

	"github.com/cockroachdb/errors"
)

// ErrBibUnavailable is returned by ClaimBib when the bib does not exist in
// the event or is already claimed by another athlete.
var ErrBibUnavailable = errors.New("bib not available for claim")

// Repository exposes finisher persistence operations.
type Repository interface {
	// InsertBatch writes all rows; implementations may split the slice into
	// multi-row statements for efficiency, but the batch size is not a
	// correctness boundary.
	InsertBatch(ctx context.Context, raceEventID int64, items []Finisher) error

	CountByEvent(ctx context.Context, raceEventID int64) (int, error)

	// AgeGroupBreakdown returns the count of finishers per distinct
	// age-group label for one event.
	AgeGroupBreakdown(ctx context.Context, raceEventID int64) (map[string]int, error)

	// ListByEvent returns finishers ordered by overall rank (nulls last),
	// capped at limit when limit > 0.
	ListByEvent(ctx context.Context, raceEventID int64, limit int) ([]Finisher, error)

	FindByBib(ctx context.Context, raceEventID int64, bib string) (*Finisher, error)

	ClaimBib(ctx context.Context, raceEventID int64, bib string, athleteID int64) error
}
