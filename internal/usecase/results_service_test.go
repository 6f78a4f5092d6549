package usecase

import (
	"errors"
	"math"
	"testing"

	"github.com/paceline/raceresults/internal/domain/raceevent"
)

func seedImportedEvent(t *testing.T, svc *ImportService, records []ExternalFinisher) int64 {
	t.Helper()

	result, err := svc.ImportParsedRecords(t.Context(), "test-event", "Half Marathon", records, ImportMeta{EventName: "Test Event"})
	if err != nil {
		t.Fatalf("seed import failed: %v", err)
	}
	return result.RaceEventID
}

func TestResultsService_GetEventSummary(t *testing.T) {
	eventRepo, finisherRepo := newTestRepos()
	importSvc := NewImportService(&stubSporthive{}, &stubRaceResult{}, eventRepo, finisherRepo, nil)
	svc := NewResultsService(eventRepo, finisherRepo)

	id := seedImportedEvent(t, importSvc, sampleRecords())

	summary, err := svc.GetEventSummary(t.Context(), id)
	if err != nil {
		t.Fatalf("get event summary failed: %v", err)
	}
	if summary.Event.Source != raceevent.SourcePDF {
		t.Fatalf("unexpected source: %s", summary.Event.Source)
	}
	if summary.StoredFinishers != 3 {
		t.Fatalf("unexpected stored count: %d", summary.StoredFinishers)
	}
	if summary.AgeGroupBreakdown["F30-34"] != 2 {
		t.Fatalf("unexpected breakdown: %+v", summary.AgeGroupBreakdown)
	}
}

func TestResultsService_GetEventSummary_NotFound(t *testing.T) {
	eventRepo, finisherRepo := newTestRepos()
	svc := NewResultsService(eventRepo, finisherRepo)

	_, err := svc.GetEventSummary(t.Context(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResultsService_ListFinishers_OrderAndLimit(t *testing.T) {
	eventRepo, finisherRepo := newTestRepos()
	importSvc := NewImportService(&stubSporthive{}, &stubRaceResult{}, eventRepo, finisherRepo, nil)
	svc := NewResultsService(eventRepo, finisherRepo)

	records := []ExternalFinisher{
		{Bib: "9", Name: "No Rank Runner"},
		{Bib: "2", Name: "Ben Ochieng", OverallRank: intPtr(2)},
		{Bib: "1", Name: "Ada Swift", OverallRank: intPtr(1)},
	}
	id := seedImportedEvent(t, importSvc, records)

	items, err := svc.ListFinishers(t.Context(), id, 2)
	if err != nil {
		t.Fatalf("list finishers failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("unexpected item count: %d", len(items))
	}
	if items[0].Bib != "1" || items[1].Bib != "2" {
		t.Fatalf("unexpected order: %s, %s", items[0].Bib, items[1].Bib)
	}
}

func TestResultsService_Percentile(t *testing.T) {
	eventRepo, finisherRepo := newTestRepos()
	importSvc := NewImportService(&stubSporthive{}, &stubRaceResult{}, eventRepo, finisherRepo, nil)
	svc := NewResultsService(eventRepo, finisherRepo)

	records := []ExternalFinisher{
		{Bib: "1", Name: "Ada Swift", OverallRank: intPtr(1)},
		{Bib: "2", Name: "Ben Ochieng", OverallRank: intPtr(2)},
		{Bib: "3", Name: "Cleo Tan", OverallRank: intPtr(3)},
		{Bib: "4", Name: "Dev Aroyo", OverallRank: intPtr(4)},
	}
	id := seedImportedEvent(t, importSvc, records)

	result, err := svc.Percentile(t.Context(), id, "1")
	if err != nil {
		t.Fatalf("percentile failed: %v", err)
	}
	if result.TotalFinishers != 4 {
		t.Fatalf("unexpected total: %d", result.TotalFinishers)
	}
	if math.Abs(result.Percentile-75.0) > 1e-9 {
		t.Fatalf("unexpected percentile: %f", result.Percentile)
	}

	if _, err := svc.Percentile(t.Context(), id, "404"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown bib, got %v", err)
	}
}

func TestResultsService_Percentile_NoOverallRank(t *testing.T) {
	eventRepo, finisherRepo := newTestRepos()
	importSvc := NewImportService(&stubSporthive{}, &stubRaceResult{}, eventRepo, finisherRepo, nil)
	svc := NewResultsService(eventRepo, finisherRepo)

	id := seedImportedEvent(t, importSvc, []ExternalFinisher{{Bib: "7", Name: "Unranked Runner"}})

	_, err := svc.Percentile(t.Context(), id, "7")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestResultsService_ClaimBib(t *testing.T) {
	eventRepo, finisherRepo := newTestRepos()
	importSvc := NewImportService(&stubSporthive{}, &stubRaceResult{}, eventRepo, finisherRepo, nil)
	svc := NewResultsService(eventRepo, finisherRepo)

	id := seedImportedEvent(t, importSvc, sampleRecords())

	if err := svc.ClaimBib(t.Context(), id, "2", 42); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	claimed, err := finisherRepo.FindByBib(t.Context(), id, "2")
	if err != nil || claimed == nil || claimed.AthleteID == nil || *claimed.AthleteID != 42 {
		t.Fatalf("claim not persisted: %+v err=%v", claimed, err)
	}

	if err := svc.ClaimBib(t.Context(), id, "2", 43); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected rejection of second claim, got %v", err)
	}
	if err := svc.ClaimBib(t.Context(), id, "404", 44); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected rejection of unknown bib, got %v", err)
	}
}
