package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/paceline/raceresults/internal/domain/raceevent"
	qb "github.com/paceline/raceresults/internal/platform/querybuilder"
)

type RaceEventRepository struct {
	db *sqlx.DB
}

func NewRaceEventRepository(db *sqlx.DB) *RaceEventRepository {
	return &RaceEventRepository{db: db}
}

func (r *RaceEventRepository) FindBySource(ctx context.Context, sourceEventID, sourceRaceID string) (*raceevent.RaceEvent, error) {
	query, args, err := qb.Select("*").From("race_events").
		Where(
			qb.Eq("source_event_id", sourceEventID),
			qb.Eq("source_race_id", sourceRaceID),
		).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build find race event query: %w", err)
	}

	var row raceEventTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find race event by source: %w", err)
	}

	event := row.toDomain()
	return &event, nil
}

func (r *RaceEventRepository) GetByID(ctx context.Context, id int64) (*raceevent.RaceEvent, error) {
	query, args, err := qb.Select("*").From("race_events").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get race event query: %w", err)
	}

	var row raceEventTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get race event by id: %w", err)
	}

	event := row.toDomain()
	return &event, nil
}

func (r *RaceEventRepository) Create(ctx context.Context, event raceevent.RaceEvent) (int64, error) {
	query, args, err := qb.InsertInto("race_events").
		Columns(
			"source", "source_event_id", "source_race_id",
			"event_name", "race_name", "event_date",
			"distance_meters", "location", "total_finishers", "imported_at",
		).
		Values(
			event.Source, event.SourceEventID, event.SourceRaceID,
			event.EventName, event.RaceName, event.EventDate,
			event.DistanceMeters, event.Location, event.TotalFinishers, event.ImportedAt,
		).
		Suffix("RETURNING id").
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build insert race event query: %w", err)
	}

	var id int64
	if err := r.db.GetContext(ctx, &id, query, args...); err != nil {
		return 0, fmt.Errorf("insert race event: %w", err)
	}
	return id, nil
}

// DeleteWithFinishers removes the event and its finishers atomically. The
// finishers table carries ON DELETE CASCADE; the transaction keeps the two
// tables consistent even if that constraint is ever relaxed.
func (r *RaceEventRepository) DeleteWithFinishers(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete race event tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	finisherQuery, finisherArgs, err := qb.DeleteFrom("finishers").
		Where(qb.Eq("race_event_id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete finishers query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, finisherQuery, finisherArgs...); err != nil {
		return fmt.Errorf("delete finishers race_event_id=%d: %w", id, err)
	}

	eventQuery, eventArgs, err := qb.DeleteFrom("race_events").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete race event query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, eventQuery, eventArgs...); err != nil {
		return fmt.Errorf("delete race event id=%d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete race event tx: %w", err)
	}
	return nil
}

func (m raceEventTableModel) toDomain() raceevent.RaceEvent {
	return raceevent.RaceEvent{
		ID:             m.ID,
		Source:         m.Source,
		SourceEventID:  m.SourceEventID,
		SourceRaceID:   m.SourceRaceID,
		EventName:      m.EventName,
		RaceName:       m.RaceName,
		EventDate:      m.EventDate,
		DistanceMeters: m.DistanceMeters,
		Location:       m.Location,
		TotalFinishers: m.TotalFinishers,
		ImportedAt:     m.ImportedAt,
	}
}
