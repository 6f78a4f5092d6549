package memory

import (
	"context"
	"sync"

	"github.com/paceline/raceresults/internal/domain/raceevent"
)

type RaceEventRepository struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]raceevent.RaceEvent

	// onDelete lets the finisher repository drop its rows when an event goes
	// away, mirroring the cascade the database enforces.
	onDelete func(raceEventID int64)
}

func NewRaceEventRepository() *RaceEventRepository {
	return &RaceEventRepository{
		nextID: 1,
		items:  make(map[int64]raceevent.RaceEvent),
	}
}

// CascadeTo registers the finisher repository to receive delete callbacks.
func (r *RaceEventRepository) CascadeTo(finishers *FinisherRepository) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onDelete = finishers.deleteByEvent
}

func (r *RaceEventRepository) FindBySource(_ context.Context, sourceEventID, sourceRaceID string) (*raceevent.RaceEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, event := range r.items {
		if event.SourceEventID == sourceEventID && event.SourceRaceID == sourceRaceID {
			out := event
			return &out, nil
		}
	}
	return nil, nil
}

func (r *RaceEventRepository) GetByID(_ context.Context, id int64) (*raceevent.RaceEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	out := event
	return &out, nil
}

func (r *RaceEventRepository) Create(_ context.Context, event raceevent.RaceEvent) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event.ID = r.nextID
	r.nextID++
	r.items[event.ID] = event
	return event.ID, nil
}

func (r *RaceEventRepository) DeleteWithFinishers(_ context.Context, id int64) error {
	r.mu.Lock()
	onDelete := r.onDelete
	delete(r.items, id)
	r.mu.Unlock()

	if onDelete != nil {
		onDelete(id)
	}
	return nil
}
