package memory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paceline/raceresults/internal/domain/finisher"
	"github.com/paceline/raceresults/internal/domain/raceevent"
)

func intPtr(v int) *int { return &v }

func seedEvent(t *testing.T, events *RaceEventRepository) int64 {
	t.Helper()

	id, err := events.Create(t.Context(), raceevent.RaceEvent{
		Source:        "sporthive",
		SourceEventID: "6001",
		SourceRaceID:  "474689",
		EventName:     "City Marathon",
	})
	require.NoError(t, err)
	return id
}

func TestFinisherRepository_ListByEventOrdersByRank(t *testing.T) {
	t.Parallel()

	events := NewRaceEventRepository()
	finishers := NewFinisherRepository()
	eventID := seedEvent(t, events)

	err := finishers.InsertBatch(t.Context(), eventID, []finisher.Finisher{
		{Bib: "3", Name: "No Rank"},
		{Bib: "2", Name: "Second", OverallRank: intPtr(2)},
		{Bib: "1", Name: "First", OverallRank: intPtr(1)},
	})
	require.NoError(t, err)

	listed, err := finishers.ListByEvent(t.Context(), eventID, 0)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	require.Equal(t, "1", listed[0].Bib)
	require.Equal(t, "2", listed[1].Bib)
	require.Equal(t, "3", listed[2].Bib)

	capped, err := finishers.ListByEvent(t.Context(), eventID, 2)
	require.NoError(t, err)
	require.Len(t, capped, 2)
}

func TestFinisherRepository_ClaimBib(t *testing.T) {
	t.Parallel()

	events := NewRaceEventRepository()
	finishers := NewFinisherRepository()
	eventID := seedEvent(t, events)

	err := finishers.InsertBatch(t.Context(), eventID, []finisher.Finisher{
		{Bib: "42", Name: "Ada Swift", OverallRank: intPtr(1)},
	})
	require.NoError(t, err)

	require.NoError(t, finishers.ClaimBib(t.Context(), eventID, "42", 7))

	claimed, err := finishers.FindByBib(t.Context(), eventID, "42")
	require.NoError(t, err)
	require.NotNil(t, claimed.AthleteID)
	require.Equal(t, int64(7), *claimed.AthleteID)

	err = finishers.ClaimBib(t.Context(), eventID, "42", 8)
	require.ErrorIs(t, err, finisher.ErrBibUnavailable)

	err = finishers.ClaimBib(t.Context(), eventID, "404", 8)
	require.ErrorIs(t, err, finisher.ErrBibUnavailable)
}

func TestFinisherRepository_AgeGroupBreakdown(t *testing.T) {
	t.Parallel()

	events := NewRaceEventRepository()
	finishers := NewFinisherRepository()
	eventID := seedEvent(t, events)

	err := finishers.InsertBatch(t.Context(), eventID, []finisher.Finisher{
		{Bib: "1", Name: "A", AgeGroup: "F30-34"},
		{Bib: "2", Name: "B", AgeGroup: "F30-34"},
		{Bib: "3", Name: "C", AgeGroup: "M35-39"},
	})
	require.NoError(t, err)

	breakdown, err := finishers.AgeGroupBreakdown(t.Context(), eventID)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"F30-34": 2, "M35-39": 1}, breakdown)
}

func TestRaceEventRepository_DeleteCascadesToFinishers(t *testing.T) {
	t.Parallel()

	events := NewRaceEventRepository()
	finishers := NewFinisherRepository()
	events.CascadeTo(finishers)
	eventID := seedEvent(t, events)

	err := finishers.InsertBatch(t.Context(), eventID, []finisher.Finisher{
		{Bib: "1", Name: "A", OverallRank: intPtr(1)},
		{Bib: "2", Name: "B", OverallRank: intPtr(2)},
	})
	require.NoError(t, err)

	require.NoError(t, events.DeleteWithFinishers(t.Context(), eventID))

	count, err := finishers.CountByEvent(t.Context(), eventID)
	require.NoError(t, err)
	require.Zero(t, count)

	got, err := events.GetByID(t.Context(), eventID)
	require.NoError(t, err)
	require.Nil(t, got)

	bySource, err := events.FindBySource(t.Context(), "6001", "474689")
	require.NoError(t, err)
	require.Nil(t, bySource)
}
