package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/paceline/raceresults/internal/domain/finisher"
	"github.com/paceline/raceresults/internal/usecase"
)

type importRequest struct {
	Locator        string `json:"locator" validate:"required,max=2048"`
	EventName      string `json:"event_name" validate:"omitempty,max=200"`
	RaceName       string `json:"race_name" validate:"omitempty,max=200"`
	EventDate      string `json:"event_date" validate:"omitempty,datetime=2006-01-02"`
	DistanceMeters int    `json:"distance_meters" validate:"omitempty,gt=0"`
	Location       string `json:"location" validate:"omitempty,max=200"`
	Replace        bool   `json:"replace"`
	ListName       string `json:"list_name" validate:"omitempty,max=200"`
	RaceID         string `json:"race_id" validate:"omitempty,max=64"`
}

type importResultDTO struct {
	OK                 bool               `json:"ok"`
	AlreadyImported    bool               `json:"alreadyImported,omitempty"`
	NeedsRaceSelection bool               `json:"needsRaceSelection,omitempty"`
	Races              []raceOptionDTO    `json:"races,omitempty"`
	RaceEventID        int64              `json:"raceEventId,omitempty"`
	TotalFinishers     int                `json:"totalFinishers,omitempty"`
	AgeGroupBreakdown  map[string]int     `json:"ageGroupBreakdown,omitempty"`
	Sample             []finisherDTO      `json:"sample,omitempty"`
}

type raceOptionDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Distance int    `json:"distance,omitempty"`
	Date     string `json:"date,omitempty"`
}

type finisherDTO struct {
	Bib             string `json:"bib"`
	Name            string `json:"name"`
	Gender          int    `json:"gender"`
	AgeGroup        string `json:"ageGroup,omitempty"`
	OverallRank     *int   `json:"overallRank,omitempty"`
	GenderRank      *int   `json:"genderRank,omitempty"`
	AgeGroupRank    *int   `json:"ageGroupRank,omitempty"`
	ChipTimeSeconds *int   `json:"chipTimeSeconds,omitempty"`
	CountryCode     string `json:"countryCode,omitempty"`
	AthleteID       *int64 `json:"athleteId,omitempty"`
}

func (h *Handler) RunImport(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunImport")
	defer span.End()

	var req importRequest
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

	meta := usecase.ImportMeta{
		EventName:      req.EventName,
		RaceName:       req.RaceName,
		DistanceMeters: req.DistanceMeters,
		Location:       req.Location,
		Replace:        req.Replace,
		ListName:       req.ListName,
		RaceID:         req.RaceID,
	}
	if req.EventDate != "" {
		date, err := time.Parse("2006-01-02", req.EventDate)
		if err != nil {
			writeError(ctx, w, fmt.Errorf("%w: parse event_date: %v", usecase.ErrInvalidInput, err))
			return
		}
		meta.EventDate = &date
	}

	result, err := h.importService.Import(ctx, usecase.ImportInput{
		Locator: req.Locator,
		Meta:    meta,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "import failed", "locator", req.Locator, "error", err)
		writeError(ctx, w, err)
		return
	}

	status := http.StatusCreated
	if result.AlreadyImported || result.NeedsRaceSelection {
		status = http.StatusOK
	}
	writeSuccess(ctx, w, status, importResultToDTO(result))
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

func importResultToDTO(result usecase.ImportResult) importResultDTO {
	races := make([]raceOptionDTO, 0, len(result.Races))
	for _, race := range result.Races {
		races = append(races, raceOptionDTO{
			ID:       race.ID,
			Name:     race.Name,
			Distance: race.Distance,
			Date:     race.Date,
		})
	}

	sample := make([]finisherDTO, 0, len(result.Sample))
	for _, item := range result.Sample {
		sample = append(sample, finisherToDTO(item))
	}

	return importResultDTO{
		OK:                 result.OK,
		AlreadyImported:    result.AlreadyImported,
		NeedsRaceSelection: result.NeedsRaceSelection,
		Races:              races,
		RaceEventID:        result.RaceEventID,
		TotalFinishers:     result.TotalFinishers,
		AgeGroupBreakdown:  result.AgeGroupBreakdown,
		Sample:             sample,
	}
}

func finisherToDTO(item finisher.Finisher) finisherDTO {
	return finisherDTO{
		Bib:             item.Bib,
		Name:            item.Name,
		Gender:          item.Gender,
		AgeGroup:        item.AgeGroup,
		OverallRank:     item.OverallRank,
		GenderRank:      item.GenderRank,
		AgeGroupRank:    item.AgeGroupRank,
		ChipTimeSeconds: item.ChipTimeSeconds,
		CountryCode:     item.CountryCode,
		AthleteID:       item.AthleteID,
	}
}
