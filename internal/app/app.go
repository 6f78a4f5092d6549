package app

import (
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/paceline/raceresults/external/raceresult"
	"github.com/paceline/raceresults/external/sporthive"
	"github.com/paceline/raceresults/internal/config"
	"github.com/paceline/raceresults/internal/infrastructure/repository/postgres"
	"github.com/paceline/raceresults/internal/interfaces/httpapi"
	"github.com/paceline/raceresults/internal/platform/logging"
	"github.com/paceline/raceresults/internal/usecase"
)

// App bundles the HTTP server with the resources it owns.
type App struct {
	Server *http.Server

	db     *sqlx.DB
	logger *logging.Logger
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	eventRepo := postgres.NewRaceEventRepository(db)
	finisherRepo := postgres.NewFinisherRepository(db)

	sporthiveClient := sporthive.NewClient(sporthive.ClientConfig{
		BaseURL:    cfg.SporthiveBaseURL,
		Timeout:    cfg.SporthiveTimeout,
		MaxRetries: cfg.SporthiveMaxRetries,
		PageDelay:  cfg.SporthivePageDelay,
		Logger:     logger,
	})
	raceResultClient := raceresult.NewClient(raceresult.ClientConfig{
		BaseURL:    cfg.RaceResultBaseURL,
		Timeout:    cfg.RaceResultTimeout,
		MaxRetries: cfg.RaceResultMaxRetries,
		PageDelay:  cfg.RaceResultPageDelay,
		Logger:     logger,
	})

	importService := usecase.NewImportService(sporthiveClient, raceResultClient, eventRepo, finisherRepo, logger)
	resultsService := usecase.NewResultsService(eventRepo, finisherRepo)

	handler := httpapi.NewHandler(importService, resultsService, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		closeErr := db.Close()
		if closeErr != nil {
			logger.Warn("close database", "error", closeErr)
		}
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return &App{Server: server, db: db, logger: logger}, nil
}

// Close releases resources owned by the app. The HTTP server is shut down
// separately by the caller so in-flight requests can drain first.
func (a *App) Close() error {
	return a.db.Close()
}

func openDatabase(cfg config.Config) (*sqlx.DB, error) {
	dsn := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinaryResult)

	db, err := otelsqlx.Open("postgres", dsn,
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
		otelsql.WithDBName(dbNameFromURL(dsn)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	return db, nil
}
