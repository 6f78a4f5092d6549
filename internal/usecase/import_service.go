package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/paceline/raceresults/internal/domain/finisher"
	"github.com/paceline/raceresults/internal/domain/raceevent"
	"github.com/paceline/raceresults/internal/platform/logging"
)

const importSampleSize = 5

type ImportMeta struct {
	EventName      string
	RaceName       string
	EventDate      *time.Time
	DistanceMeters int
	Location       string
	Replace        bool
	// ListName overrides RaceResult list discovery when the event uses a
	// non-conventional list name.
	ListName string
	// RaceID pins the Sporthive race when the locator does not embed one.
	RaceID string
}

type ImportInput struct {
	Locator string
	Meta    ImportMeta
}

// ImportResult is deliberately never a bare boolean: the caller must be able
// to tell "nothing written, already present" from "written, here is a
// summary" from "pick a race first".
type ImportResult struct {
	OK                 bool
	AlreadyImported    bool
	NeedsRaceSelection bool
	Races              []ExternalRace
	RaceEventID        int64
	TotalFinishers     int
	AgeGroupBreakdown  map[string]int
	Sample             []finisher.Finisher
}

type ImportService struct {
	sporthive    SporthiveSource
	raceResult   RaceResultSource
	eventRepo    raceevent.Repository
	finisherRepo finisher.Repository
	logger       *logging.Logger
	locks        keyedMutex
	now          func() time.Time
}

func NewImportService(
	sporthive SporthiveSource,
	raceResult RaceResultSource,
	eventRepo raceevent.Repository,
	finisherRepo finisher.Repository,
	logger *logging.Logger,
) *ImportService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ImportService{
		sporthive:    sporthive,
		raceResult:   raceResult,
		eventRepo:    eventRepo,
		finisherRepo: finisherRepo,
		logger:       logger,
		now:          time.Now,
	}
}

// Import resolves the locator to one source adapter, crawls the full
// finisher list, and persists it under one race-event identity. Re-running
// the same import is a no-op unless Replace is set, in which case the prior
// import is deleted wholesale before reinserting.
func (s *ImportService) Import(ctx context.Context, input ImportInput) (ImportResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ImportService.Import")
	defer span.End()

	locator := strings.TrimSpace(input.Locator)
	if locator == "" {
		return ImportResult{}, fmt.Errorf("%w: locator is required", ErrInvalidInput)
	}

	if isRaceResultLocator(locator) {
		return s.importRaceResult(ctx, locator, input.Meta)
	}
	return s.importSporthive(ctx, locator, input.Meta)
}

func (s *ImportService) importSporthive(ctx context.Context, locator string, meta ImportMeta) (ImportResult, error) {
	eventID, raceID, err := s.sporthive.ResolveLocator(locator)
	if err != nil {
		return ImportResult{}, err
	}
	if raceID == "" {
		raceID = strings.TrimSpace(meta.RaceID)
	}

	if raceID == "" {
		races, err := s.sporthive.ListRaces(ctx, eventID)
		if err != nil {
			return ImportResult{}, fmt.Errorf("list races event=%s: %w", eventID, err)
		}
		return ImportResult{NeedsRaceSelection: true, Races: races}, nil
	}

	if existing, err := s.findExisting(ctx, eventID, raceID, meta.Replace); err != nil || existing {
		return ImportResult{AlreadyImported: existing}, err
	}

	records, err := s.sporthive.FetchFinishers(ctx, eventID, raceID)
	if err != nil {
		return ImportResult{}, err
	}

	return s.persist(ctx, raceevent.SourceSporthive, eventID, raceID, meta, records)
}

func (s *ImportService) importRaceResult(ctx context.Context, locator string, meta ImportMeta) (ImportResult, error) {
	eventID, err := s.raceResult.ResolveLocator(locator)
	if err != nil {
		return ImportResult{}, err
	}
	raceID := raceevent.RaceResultRaceID

	if existing, err := s.findExisting(ctx, eventID, raceID, meta.Replace); err != nil || existing {
		return ImportResult{AlreadyImported: existing}, err
	}

	records, err := s.raceResult.FetchFinishers(ctx, eventID, meta.ListName)
	if err != nil {
		return ImportResult{}, err
	}

	return s.persist(ctx, raceevent.SourceRaceResult, eventID, raceID, meta, records)
}

// ImportParsedRecords persists records produced by the offline PDF-text
// parser. The caller supplies a stable source event id (typically derived
// from the document name); the race label becomes the race id.
func (s *ImportService) ImportParsedRecords(ctx context.Context, sourceEventID, raceName string, records []ExternalFinisher, meta ImportMeta) (ImportResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ImportService.ImportParsedRecords")
	defer span.End()

	sourceEventID = strings.TrimSpace(sourceEventID)
	raceID := slugify(raceName)
	if sourceEventID == "" || raceID == "" {
		return ImportResult{}, fmt.Errorf("%w: source event id and race name are required", ErrInvalidInput)
	}

	if existing, err := s.findExisting(ctx, sourceEventID, raceID, meta.Replace); err != nil || existing {
		return ImportResult{AlreadyImported: existing}, err
	}

	if meta.RaceName == "" {
		meta.RaceName = strings.TrimSpace(raceName)
	}
	return s.persist(ctx, raceevent.SourcePDF, sourceEventID, raceID, meta, records)
}

// findExisting implements the cheap pre-crawl idempotency check. The
// authoritative check runs again under the event lock in persist.
func (s *ImportService) findExisting(ctx context.Context, sourceEventID, sourceRaceID string, replace bool) (bool, error) {
	if replace {
		return false, nil
	}
	existing, err := s.eventRepo.FindBySource(ctx, sourceEventID, sourceRaceID)
	if err != nil {
		return false, fmt.Errorf("find race event source=%s race=%s: %w", sourceEventID, sourceRaceID, err)
	}
	return existing != nil, nil
}

func (s *ImportService) persist(ctx context.Context, source, sourceEventID, sourceRaceID string, meta ImportMeta, records []ExternalFinisher) (ImportResult, error) {
	source = raceevent.NormalizeSource(source)
	if source == "" {
		return ImportResult{}, fmt.Errorf("%w: unknown result source", ErrInvalidInput)
	}

	rows := make([]finisher.Finisher, 0, len(records))
	for _, record := range records {
		name := strings.TrimSpace(record.Name)
		if name == "" {
			// A null name cannot stand in for identity; bib-only rows that
			// survived the adapters stop here.
			continue
		}
		rows = append(rows, finisher.Finisher{
			Bib:             strings.TrimSpace(record.Bib),
			Name:            name,
			Gender:          record.Gender,
			AgeGroup:        strings.TrimSpace(record.AgeGroup),
			OverallRank:     record.OverallRank,
			GenderRank:      record.GenderRank,
			AgeGroupRank:    record.AgeGroupRank,
			ChipTimeSeconds: record.ChipTimeSeconds,
			CountryCode:     strings.ToUpper(strings.TrimSpace(record.CountryCode)),
		})
	}

	if len(rows) == 0 {
		return ImportResult{}, fmt.Errorf("%w: source=%s event=%s race=%s", ErrNoFinishers, source, sourceEventID, sourceRaceID)
	}

	// Two concurrent replaces of the same race must not interleave their
	// delete+reinsert sequences.
	unlock := s.locks.lock(sourceEventID + "\x00" + sourceRaceID)
	defer unlock()

	existing, err := s.eventRepo.FindBySource(ctx, sourceEventID, sourceRaceID)
	if err != nil {
		return ImportResult{}, fmt.Errorf("find race event source=%s race=%s: %w", sourceEventID, sourceRaceID, err)
	}
	if existing != nil {
		if !meta.Replace {
			return ImportResult{AlreadyImported: true}, nil
		}
		if err := s.eventRepo.DeleteWithFinishers(ctx, existing.ID); err != nil {
			return ImportResult{}, fmt.Errorf("delete prior import id=%d: %w", existing.ID, err)
		}
		s.logger.InfoContext(ctx, "prior import replaced",
			"race_event_id", existing.ID, "source_event_id", sourceEventID, "source_race_id", sourceRaceID)
	}

	event := raceevent.RaceEvent{
		Source:         source,
		SourceEventID:  sourceEventID,
		SourceRaceID:   sourceRaceID,
		EventName:      strings.TrimSpace(meta.EventName),
		RaceName:       strings.TrimSpace(meta.RaceName),
		EventDate:      meta.EventDate,
		DistanceMeters: meta.DistanceMeters,
		Location:       strings.TrimSpace(meta.Location),
		TotalFinishers: len(rows),
		ImportedAt:     s.now().UTC(),
	}
	eventID, err := s.eventRepo.Create(ctx, event)
	if err != nil {
		return ImportResult{}, fmt.Errorf("create race event source=%s race=%s: %w", sourceEventID, sourceRaceID, err)
	}

	if err := s.finisherRepo.InsertBatch(ctx, eventID, rows); err != nil {
		return ImportResult{}, fmt.Errorf("insert finishers race_event_id=%d: %w", eventID, err)
	}

	breakdown := make(map[string]int)
	for _, row := range rows {
		label := row.AgeGroup
		if label == "" {
			label = "uncategorized"
		}
		breakdown[label]++
	}

	sample := make([]finisher.Finisher, 0, importSampleSize)
	for idx := 0; idx < len(rows) && idx < importSampleSize; idx++ {
		row := rows[idx]
		row.RaceEventID = eventID
		sample = append(sample, row)
	}

	s.logger.InfoContext(ctx, "import completed",
		"source", source, "race_event_id", eventID,
		"total_finishers", len(rows), "age_groups", len(breakdown))

	return ImportResult{
		OK:                true,
		RaceEventID:       eventID,
		TotalFinishers:    len(rows),
		AgeGroupBreakdown: breakdown,
		Sample:            sample,
	}, nil
}

func isRaceResultLocator(locator string) bool {
	return strings.Contains(strings.ToLower(locator), "raceresult")
}

func slugify(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '.':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

// keyedMutex serializes work per key without holding a global lock for the
// duration of the critical section.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*lockEntry)
	}
	entry, ok := k.locks[key]
	if !ok {
		entry = &lockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
