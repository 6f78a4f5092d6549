package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/paceline/raceresults/internal/domain/finisher"
)

type FinisherRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]finisher.Finisher
	// idsByEvent preserves insertion order per event.
	idsByEvent map[int64][]int64
}

func NewFinisherRepository() *FinisherRepository {
	return &FinisherRepository{
		nextID:     1,
		byID:       make(map[int64]finisher.Finisher),
		idsByEvent: make(map[int64][]int64),
	}
}

func (r *FinisherRepository) InsertBatch(_ context.Context, raceEventID int64, items []finisher.Finisher) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		item.ID = r.nextID
		item.RaceEventID = raceEventID
		r.nextID++
		r.byID[item.ID] = item
		r.idsByEvent[raceEventID] = append(r.idsByEvent[raceEventID], item.ID)
	}
	return nil
}

func (r *FinisherRepository) CountByEvent(_ context.Context, raceEventID int64) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.idsByEvent[raceEventID]), nil
}

func (r *FinisherRepository) AgeGroupBreakdown(_ context.Context, raceEventID int64) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]int)
	for _, id := range r.idsByEvent[raceEventID] {
		out[r.byID[id].AgeGroup]++
	}
	return out, nil
}

func (r *FinisherRepository) ListByEvent(_ context.Context, raceEventID int64, limit int) ([]finisher.Finisher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.idsByEvent[raceEventID]
	out := make([]finisher.Finisher, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.byID[id])
	}

	// Overall rank ascending, rankless rows last, ties by insertion order.
	sort.SliceStable(out, func(i, j int) bool {
		left, right := out[i].OverallRank, out[j].OverallRank
		switch {
		case left == nil:
			return false
		case right == nil:
			return true
		default:
			return *left < *right
		}
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *FinisherRepository) FindByBib(_ context.Context, raceEventID int64, bib string) (*finisher.Finisher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.idsByEvent[raceEventID] {
		if item := r.byID[id]; item.Bib == bib {
			out := item
			return &out, nil
		}
	}
	return nil, nil
}

func (r *FinisherRepository) ClaimBib(_ context.Context, raceEventID int64, bib string, athleteID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.idsByEvent[raceEventID] {
		item := r.byID[id]
		if item.Bib != bib || item.AthleteID != nil {
			continue
		}
		item.AthleteID = &athleteID
		r.byID[id] = item
		return nil
	}
	return finisher.ErrBibUnavailable
}

func (r *FinisherRepository) deleteByEvent(raceEventID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.idsByEvent[raceEventID] {
		delete(r.byID, id)
	}
	delete(r.idsByEvent, raceEventID)
}
