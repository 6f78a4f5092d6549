package finisher

import "strings"

const (
	GenderUnknown = 0
	GenderMale    = 1
	GenderFemale  = 2
)

// Finisher is one competitor's persisted result within one race event.
// Rank fields are independently nullable: a source may supply some scopes
// and not others, and partial data is valid.
type Finisher struct {
	ID              int64
	RaceEventID     int64
	Bib             string
	Name            string
	Gender          int
	AgeGroup        string
	OverallRank     *int
	GenderRank      *int
	AgeGroupRank    *int
	ChipTimeSeconds *int
	CountryCode     string
	// AthleteID links the row to an athlete identity; it is set by the claim
	// operation after import, never by ingestion itself.
	AthleteID *int64
}

// ParseGender maps the source vocabulary (numeric codes, single letters,
// full words, group labels) onto the two-valued enum.
func ParseGender(raw string) int {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "m", "male", "man", "men", "h":
		return GenderMale
	case "2", "f", "female", "w", "woman", "women", "v":
		return GenderFemale
	default:
		return GenderUnknown
	}
}
