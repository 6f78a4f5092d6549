package usecase

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/paceline/raceresults/internal/domain/finisher"
	"github.com/paceline/raceresults/internal/domain/raceevent"
)

type EventSummary struct {
	Event             raceevent.RaceEvent
	StoredFinishers   int
	AgeGroupBreakdown map[string]int
}

type PercentileResult struct {
	Finisher       finisher.Finisher
	TotalFinishers int
	// Percentile is the share of the field the finisher placed ahead of,
	// 0..100. The winner of a 100-runner race scores 99.
	Percentile float64
}

type ResultsService struct {
	eventRepo    raceevent.Repository
	finisherRepo finisher.Repository
}

func NewResultsService(eventRepo raceevent.Repository, finisherRepo finisher.Repository) *ResultsService {
	return &ResultsService{
		eventRepo:    eventRepo,
		finisherRepo: finisherRepo,
	}
}

func (s *ResultsService) GetEventSummary(ctx context.Context, raceEventID int64) (EventSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ResultsService.GetEventSummary")
	defer span.End()

	event, err := s.getEvent(ctx, raceEventID)
	if err != nil {
		return EventSummary{}, err
	}

	count, err := s.finisherRepo.CountByEvent(ctx, raceEventID)
	if err != nil {
		return EventSummary{}, fmt.Errorf("count finishers race_event_id=%d: %w", raceEventID, err)
	}
	breakdown, err := s.finisherRepo.AgeGroupBreakdown(ctx, raceEventID)
	if err != nil {
		return EventSummary{}, fmt.Errorf("age group breakdown race_event_id=%d: %w", raceEventID, err)
	}

	return EventSummary{
		Event:             event,
		StoredFinishers:   count,
		AgeGroupBreakdown: breakdown,
	}, nil
}

func (s *ResultsService) ListFinishers(ctx context.Context, raceEventID int64, limit int) ([]finisher.Finisher, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ResultsService.ListFinishers")
	defer span.End()

	if _, err := s.getEvent(ctx, raceEventID); err != nil {
		return nil, err
	}
	items, err := s.finisherRepo.ListByEvent(ctx, raceEventID, limit)
	if err != nil {
		return nil, fmt.Errorf("list finishers race_event_id=%d: %w", raceEventID, err)
	}
	return items, nil
}

// Percentile reports how a finisher placed relative to the stored field.
// Rows without an overall rank cannot be placed and are an input error.
func (s *ResultsService) Percentile(ctx context.Context, raceEventID int64, bib string) (PercentileResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ResultsService.Percentile")
	defer span.End()

	if bib == "" {
		return PercentileResult{}, fmt.Errorf("%w: bib is required", ErrInvalidInput)
	}

	item, err := s.finisherRepo.FindByBib(ctx, raceEventID, bib)
	if err != nil {
		return PercentileResult{}, fmt.Errorf("find finisher race_event_id=%d bib=%s: %w", raceEventID, bib, err)
	}
	if item == nil {
		return PercentileResult{}, fmt.Errorf("%w: bib %s in race event %d", ErrNotFound, bib, raceEventID)
	}
	if item.OverallRank == nil {
		return PercentileResult{}, fmt.Errorf("%w: bib %s has no overall rank", ErrInvalidInput, bib)
	}

	total, err := s.finisherRepo.CountByEvent(ctx, raceEventID)
	if err != nil {
		return PercentileResult{}, fmt.Errorf("count finishers race_event_id=%d: %w", raceEventID, err)
	}
	if total == 0 {
		return PercentileResult{}, fmt.Errorf("%w: race event %d has no finishers", ErrNotFound, raceEventID)
	}

	return PercentileResult{
		Finisher:       *item,
		TotalFinishers: total,
		Percentile:     float64(total-*item.OverallRank) / float64(total) * 100,
	}, nil
}

// ClaimBib links a finisher row to an athlete identity. A bib can be claimed
// once; re-claiming is rejected rather than silently reassigned.
func (s *ResultsService) ClaimBib(ctx context.Context, raceEventID int64, bib string, athleteID int64) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.ResultsService.ClaimBib")
	defer span.End()

	if bib == "" || athleteID <= 0 {
		return fmt.Errorf("%w: bib and athlete id are required", ErrInvalidInput)
	}
	if _, err := s.getEvent(ctx, raceEventID); err != nil {
		return err
	}

	if err := s.finisherRepo.ClaimBib(ctx, raceEventID, bib, athleteID); err != nil {
		if errors.Is(err, finisher.ErrBibUnavailable) {
			return fmt.Errorf("%w: bib %s in race event %d", ErrInvalidInput, bib, raceEventID)
		}
		return fmt.Errorf("claim bib race_event_id=%d bib=%s: %w", raceEventID, bib, err)
	}
	return nil
}

func (s *ResultsService) getEvent(ctx context.Context, raceEventID int64) (raceevent.RaceEvent, error) {
	if raceEventID <= 0 {
		return raceevent.RaceEvent{}, fmt.Errorf("%w: race event id is required", ErrInvalidInput)
	}
	event, err := s.eventRepo.GetByID(ctx, raceEventID)
	if err != nil {
		return raceevent.RaceEvent{}, fmt.Errorf("get race event id=%d: %w", raceEventID, err)
	}
	if event == nil {
		return raceevent.RaceEvent{}, fmt.Errorf("%w: race event %d", ErrNotFound, raceEventID)
	}
	return *event, nil
}
