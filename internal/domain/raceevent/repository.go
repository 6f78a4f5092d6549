package raceevent

import "context"

// Repository exposes race-event persistence operations.
type Repository interface {
	// FindBySource returns the event for a (source_event_id, source_race_id)
	// pair, or nil when no import exists.
	FindBySource(ctx context.Context, sourceEventID, sourceRaceID string) (*RaceEvent, error)

	Create(ctx context.Context, event RaceEvent) (int64, error)

	// DeleteWithFinishers removes the event row; finisher rows go with it
	// (cascade delete on the foreign key).
	DeleteWithFinishers(ctx context.Context, id int64) error

	GetByID(ctx context.Context, id int64) (*RaceEvent, error)
}
