package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/paceline/raceresults/internal/platform/logging"
	"github.com/paceline/raceresults/internal/usecase"
)

type Handler struct {
	importService  *usecase.ImportService
	resultsService *usecase.ResultsService
	logger         *logging.Logger
	validator      *validator.Validate
}

func NewHandler(
	importService *usecase.ImportService,
	resultsService *usecase.ResultsService,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		importService:  importService,
		resultsService: resultsService,
		logger:         logger,
		validator:      validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeSuccess(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

func pathInt64(r *http.Request, key string) (int64, bool) {
	value, err := strconv.ParseInt(r.PathValue(key), 10, 64)
	if err != nil || value <= 0 {
		return 0, false
	}
	return value, true
}
