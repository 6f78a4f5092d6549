package postgres

import "github.com/paceline/raceresults/internal/domain/finisher"

type finisherTableModel struct {
	ID              int64  `db:"id"`
	RaceEventID     int64  `db:"race_event_id"`
	Bib             string `db:"bib"`
	Name            string `db:"name"`
	Gender          int    `db:"gender"`
	AgeGroup        string `db:"age_group"`
	OverallRank     *int   `db:"overall_rank"`
	GenderRank      *int   `db:"gender_rank"`
	AgeGroupRank    *int   `db:"age_group_rank"`
	ChipTimeSeconds *int   `db:"chip_time_seconds"`
	CountryCode     string `db:"country_code"`
	AthleteID       *int64 `db:"athlete_id"`
}

func (m finisherTableModel) toDomain() finisher.Finisher {
	return finisher.Finisher{
		ID:              m.ID,
		RaceEventID:     m.RaceEventID,
		Bib:             m.Bib,
		Name:            m.Name,
		Gender:          m.Gender,
		AgeGroup:        m.AgeGroup,
		OverallRank:     m.OverallRank,
		GenderRank:      m.GenderRank,
		AgeGroupRank:    m.AgeGroupRank,
		ChipTimeSeconds: m.ChipTimeSeconds,
		CountryCode:     m.CountryCode,
		AthleteID:       m.AthleteID,
	}
}
