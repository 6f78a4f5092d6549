package raceevent

import (
	"strings"
	"time"
)

const (
	SourceSporthive  = "sporthive"
	SourceRaceResult = "raceresult"
	SourcePDF        = "pdf"

	// RaceResult events have no native race identifier; this sentinel keeps
	// the (source_event_id, source_race_id) pair unique per imported event.
	RaceResultRaceID = "rr"
)

// RaceEvent is one imported race: a specific source event + race pair.
type RaceEvent struct {
	ID             int64
	Source         string
	SourceEventID  string
	SourceRaceID   string
	EventName      string
	RaceName       string
	EventDate      *time.Time
	DistanceMeters int
	Location       string
	TotalFinishers int
	ImportedAt     time.Time
}

func NormalizeSource(value string) string {
	source := strings.ToLower(strings.TrimSpace(value))
	switch source {
	case SourceSporthive, SourceRaceResult, SourcePDF:
		return source
	default:
		return ""
	}
}
