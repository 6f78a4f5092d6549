package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/panjf2000/ants/v2"

	"github.com/paceline/raceresults/internal/infrastructure/repository/postgres"
	"github.com/paceline/raceresults/internal/pdfresults"
	"github.com/paceline/raceresults/internal/platform/logging"
	"github.com/paceline/raceresults/internal/usecase"
)

const maxImportWorkers = 4

// pdfimport loads race results from a text dump of a results PDF. Extraction
// from the PDF itself happens upstream (pdftotext or similar); this tool takes
// the plain text, splits it into races and stores each one.
func main() {
	var (
		filePath  = flag.String("file", "", "path to the extracted PDF text file (required)")
		eventID   = flag.String("event", "", "source event id to store results under (required)")
		eventName = flag.String("event-name", "", "display name for the event")
		eventDate = flag.String("date", "", "event date (YYYY-MM-DD)")
		location  = flag.String("location", "", "event location")
		distance  = flag.Int("distance", 0, "distance in meters")
		replace   = flag.Bool("replace", false, "replace previously imported rows")
	)
	flag.Parse()

	if strings.TrimSpace(*filePath) == "" || strings.TrimSpace(*eventID) == "" {
		flag.Usage()
		os.Exit(2)
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	logger := logging.NewJSON(logging.LevelInfo)
	logging.SetDefault(logger)

	raw, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatalf("read input file: %v", err)
	}

	races := pdfresults.Parse(string(raw))
	if len(races) == 0 {
		log.Fatal("no race results found in input")
	}

	meta := usecase.ImportMeta{
		EventName:      strings.TrimSpace(*eventName),
		Location:       strings.TrimSpace(*location),
		DistanceMeters: *distance,
		Replace:        *replace,
	}
	if trimmed := strings.TrimSpace(*eventDate); trimmed != "" {
		parsed, err := time.Parse("2006-01-02", trimmed)
		if err != nil {
			log.Fatalf("invalid -date %q: %v", trimmed, err)
		}
		meta.EventDate = &parsed
	}

	db, err := sqlx.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	eventRepo := postgres.NewRaceEventRepository(db)
	finisherRepo := postgres.NewFinisherRepository(db)
	// The external source adapters stay nil: parsed records skip the crawl path.
	importService := usecase.NewImportService(nil, nil, eventRepo, finisherRepo, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rows, err := importRaces(ctx, importService, *eventID, races, meta)
	if err != nil {
		log.Fatal(err)
	}

	failed := 0
	for _, row := range rows {
		switch {
		case row.noFinishers:
			fmt.Printf("%s: no finishers found, skipped\n", row.raceName)
		case row.err != nil:
			failed++
			fmt.Printf("%s: FAILED: %v\n", row.raceName, row.err)
		case row.result.AlreadyImported:
			fmt.Printf("%s: already imported, skipped (re-run with -replace to overwrite)\n", row.raceName)
		default:
			fmt.Printf("%s: stored %d finishers (event %d)\n", row.raceName, row.result.TotalFinishers, row.result.RaceEventID)
			for group, count := range row.result.AgeGroupBreakdown {
				fmt.Printf("  %s: %d\n", group, count)
			}
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

type importRow struct {
	raceName    string
	result      usecase.ImportResult
	noFinishers bool
	err         error
}

// importRaces runs one import per race on a small worker pool. Races within
// one PDF are independent, so a failure in one does not roll back the others.
// A race whose section parsed without any data rows is reported as having no
// finishers and never submitted; only real import failures count as errors.
func importRaces(ctx context.Context, importService *usecase.ImportService, eventID string, races []pdfresults.RaceRecords, meta usecase.ImportMeta) ([]importRow, error) {
	pending := make([]pdfresults.RaceRecords, 0, len(races))
	skipped := make([]importRow, 0)
	for _, race := range races {
		if len(race.Records) == 0 {
			skipped = append(skipped, importRow{raceName: race.RaceName, noFinishers: true})
			continue
		}
		pending = append(pending, race)
	}
	if len(pending) == 0 {
		return skipped, nil
	}

	workerCount := len(pending)
	if workerCount > maxImportWorkers {
		workerCount = maxImportWorkers
	}

	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	results := make(chan importRow, len(pending))

	var workers sync.WaitGroup
	for _, race := range pending {
		race := race
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			result, err := importService.ImportParsedRecords(ctx, eventID, race.RaceName, race.Records, meta)
			results <- importRow{raceName: race.RaceName, result: result, err: err}
		}); err != nil {
			workers.Done()
			return nil, fmt.Errorf("submit import to worker pool: %w", err)
		}
	}

	workers.Wait()
	close(results)

	rows := make([]importRow, 0, len(races))
	rows = append(rows, skipped...)
	for row := range results {
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].raceName < rows[j].raceName })

	return rows, nil
}
