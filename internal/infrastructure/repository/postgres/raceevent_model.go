package postgres

import "time"

type raceEventTableModel struct {
	ID             int64      `db:"id"`
	Source         string     `db:"source"`
	SourceEventID  string     `db:"source_event_id"`
	SourceRaceID   string     `db:"source_race_id"`
	EventName      string     `db:"event_name"`
	RaceName       string     `db:"race_name"`
	EventDate      *time.Time `db:"event_date"`
	DistanceMeters int        `db:"distance_meters"`
	Location       string     `db:"location"`
	TotalFinishers int        `db:"total_finishers"`
	ImportedAt     time.Time  `db:"imported_at"`
}
