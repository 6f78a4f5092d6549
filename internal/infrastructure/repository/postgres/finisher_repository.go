package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/paceline/raceresults/internal/domain/finisher"
	qb "github.com/paceline/raceresults/internal/platform/querybuilder"
)

// insertChunkSize keeps multi-row inserts comfortably under the postgres
// parameter limit (10 columns per row).
const insertChunkSize = 50

type FinisherRepository struct {
	db *sqlx.DB
}

func NewFinisherRepository(db *sqlx.DB) *FinisherRepository {
	return &FinisherRepository{db: db}
}

var finisherInsertColumns = []string{
	"race_event_id", "bib", "name", "gender", "age_group",
	"overall_rank", "gender_rank", "age_group_rank",
	"chip_time_seconds", "country_code",
}

func (r *FinisherRepository) InsertBatch(ctx context.Context, raceEventID int64, items []finisher.Finisher) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert finishers tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for start := 0; start < len(items); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(items) {
			end = len(items)
		}

		builder := qb.InsertInto("finishers").Columns(finisherInsertColumns...)
		for _, item := range items[start:end] {
			builder.Values(
				raceEventID, item.Bib, item.Name, item.Gender, item.AgeGroup,
				item.OverallRank, item.GenderRank, item.AgeGroupRank,
				item.ChipTimeSeconds, item.CountryCode,
			)
		}

		query, args, err := builder.ToSQL()
		if err != nil {
			return fmt.Errorf("build insert finishers query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert finishers chunk [%d:%d]: %w", start, end, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert finishers tx: %w", err)
	}
	return nil
}

func (r *FinisherRepository) CountByEvent(ctx context.Context, raceEventID int64) (int, error) {
	query, args, err := qb.Select("COUNT(*)").From("finishers").
		Where(qb.Eq("race_event_id", raceEventID)).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count finishers query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count finishers: %w", err)
	}
	return count, nil
}

func (r *FinisherRepository) AgeGroupBreakdown(ctx context.Context, raceEventID int64) (map[string]int, error) {
	query, args, err := qb.Select("age_group", "COUNT(*) AS total").
		From("finishers").
		Where(qb.Eq("race_event_id", raceEventID)).
		GroupBy("age_group").
		OrderBy("age_group").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build age group breakdown query: %w", err)
	}

	var rows []struct {
		AgeGroup string `db:"age_group"`
		Total    int    `db:"total"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select age group breakdown: %w", err)
	}

	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.AgeGroup] = row.Total
	}
	return out, nil
}

func (r *FinisherRepository) ListByEvent(ctx context.Context, raceEventID int64, limit int) ([]finisher.Finisher, error) {
	builder := qb.Select("*").From("finishers").
		Where(qb.Eq("race_event_id", raceEventID)).
		OrderBy("overall_rank NULLS LAST", "id")
	if limit > 0 {
		builder = builder.Limit(limit)
	}
	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list finishers query: %w", err)
	}

	var rows []finisherTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select finishers: %w", err)
	}

	out := make([]finisher.Finisher, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *FinisherRepository) FindByBib(ctx context.Context, raceEventID int64, bib string) (*finisher.Finisher, error) {
	query, args, err := qb.Select("*").From("finishers").
		Where(
			qb.Eq("race_event_id", raceEventID),
			qb.Eq("bib", bib),
		).
		OrderBy("id").
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build find finisher query: %w", err)
	}

	var row finisherTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find finisher by bib: %w", err)
	}

	out := row.toDomain()
	return &out, nil
}

func (r *FinisherRepository) ClaimBib(ctx context.Context, raceEventID int64, bib string, athleteID int64) error {
	query, args, err := qb.Update("finishers").
		Set("athlete_id", athleteID).
		Where(
			qb.Eq("race_event_id", raceEventID),
			qb.Eq("bib", bib),
			qb.IsNull("athlete_id"),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build claim bib query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("claim bib: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim bib rows affected: %w", err)
	}
	if affected == 0 {
		return finisher.ErrBibUnavailable
	}
	return nil
}
