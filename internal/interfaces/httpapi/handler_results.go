package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/paceline/raceresults/internal/usecase"
)

type eventSummaryDTO struct {
	ID                int64          `json:"id"`
	Source            string         `json:"source"`
	SourceEventID     string         `json:"sourceEventId"`
	SourceRaceID      string         `json:"sourceRaceId"`
	EventName         string         `json:"eventName,omitempty"`
	RaceName          string         `json:"raceName,omitempty"`
	EventDate         string         `json:"eventDate,omitempty"`
	DistanceMeters    int            `json:"distanceMeters,omitempty"`
	Location          string         `json:"location,omitempty"`
	TotalFinishers    int            `json:"totalFinishers"`
	StoredFinishers   int            `json:"storedFinishers"`
	AgeGroupBreakdown map[string]int `json:"ageGroupBreakdown"`
	ImportedAt        string         `json:"importedAt"`
}

type percentileDTO struct {
	Finisher       finisherDTO `json:"finisher"`
	TotalFinishers int         `json:"totalFinishers"`
	Percentile     float64     `json:"percentile"`
}

type claimBibRequest struct {
	AthleteID int64 `json:"athlete_id" validate:"required,gt=0"`
}

func (h *Handler) GetEventSummary(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetEventSummary")
	defer span.End()

	eventID, ok := pathInt64(r, "eventID")
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: invalid event id", usecase.ErrInvalidInput))
		return
	}

	summary, err := h.resultsService.GetEventSummary(ctx, eventID)
	if err != nil {
		h.logger.WarnContext(ctx, "get event summary failed", "race_event_id", eventID, "error", err)
		writeError(ctx, w, err)
		return
	}

	dto := eventSummaryDTO{
		ID:                summary.Event.ID,
		Source:            summary.Event.Source,
		SourceEventID:     summary.Event.SourceEventID,
		SourceRaceID:      summary.Event.SourceRaceID,
		EventName:         summary.Event.EventName,
		RaceName:          summary.Event.RaceName,
		DistanceMeters:    summary.Event.DistanceMeters,
		Location:          summary.Event.Location,
		TotalFinishers:    summary.Event.TotalFinishers,
		StoredFinishers:   summary.StoredFinishers,
		AgeGroupBreakdown: summary.AgeGroupBreakdown,
		ImportedAt:        summary.Event.ImportedAt.Format(time.RFC3339),
	}
	if summary.Event.EventDate != nil {
		dto.EventDate = summary.Event.EventDate.Format("2006-01-02")
	}

	writeSuccess(ctx, w, http.StatusOK, dto)
}

func (h *Handler) ListEventFinishers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListEventFinishers")
	defer span.End()

	eventID, ok := pathInt64(r, "eventID")
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: invalid event id", usecase.ErrInvalidInput))
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(ctx, w, fmt.Errorf("%w: invalid limit", usecase.ErrInvalidInput))
			return
		}
		limit = parsed
	}

	items, err := h.resultsService.ListFinishers(ctx, eventID, limit)
	if err != nil {
		h.logger.WarnContext(ctx, "list finishers failed", "race_event_id", eventID, "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]finisherDTO, 0, len(items))
	for _, item := range items {
		out = append(out, finisherToDTO(item))
	}
	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) GetFinisherPercentile(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetFinisherPercentile")
	defer span.End()

	eventID, ok := pathInt64(r, "eventID")
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: invalid event id", usecase.ErrInvalidInput))
		return
	}
	bib := strings.TrimSpace(r.PathValue("bib"))

	result, err := h.resultsService.Percentile(ctx, eventID, bib)
	if err != nil {
		h.logger.WarnContext(ctx, "percentile failed", "race_event_id", eventID, "bib", bib, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, percentileDTO{
		Finisher:       finisherToDTO(result.Finisher),
		TotalFinishers: result.TotalFinishers,
		Percentile:     result.Percentile,
	})
}

func (h *Handler) ClaimBib(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ClaimBib")
	defer span.End()

	eventID, ok := pathInt64(r, "eventID")
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: invalid event id", usecase.ErrInvalidInput))
		return
	}
	bib := strings.TrimSpace(r.PathValue("bib"))

	var req claimBibRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.resultsService.ClaimBib(ctx, eventID, bib, req.AthleteID); err != nil {
		h.logger.WarnContext(ctx, "claim bib failed", "race_event_id", eventID, "bib", bib, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]bool{"claimed": true})
}
