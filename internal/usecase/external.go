package usecase

import "context"

// ExternalFinisher is the common output contract of every source adapter:
// one finisher candidate before persistence. Contest is only populated by
// sources that partition an event into divisions; it is used for adapter-side
// deduplication and is not persisted.
type ExternalFinisher struct {
	Bib             string
	Name            string
	Gender          int
	AgeGroup        string
	OverallRank     *int
	GenderRank      *int
	AgeGroupRank    *int
	ChipTimeSeconds *int
	CountryCode     string
	Contest         string
}

// ExternalRace is one selectable race within a source event, returned when a
// locator does not resolve to a single race.
type ExternalRace struct {
	ID       string
	Name     string
	Distance int
	Date     string
}

// SporthiveSource crawls a Sporthive classifications endpoint.
type SporthiveSource interface {
	ResolveLocator(locator string) (eventID, raceID string, err error)
	ListRaces(ctx context.Context, eventID string) ([]ExternalRace, error)
	FetchFinishers(ctx context.Context, eventID, raceID string) ([]ExternalFinisher, error)
}

// RaceResultSource crawls a RaceResult event after schema discovery.
type RaceResultSource interface {
	ResolveLocator(locator string) (eventID string, err error)
	FetchFinishers(ctx context.Context, eventID, listName string) ([]ExternalFinisher, error)
}
