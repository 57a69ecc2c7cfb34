package handlers

import (
	"net/http"
	"strconv"

	"github.com/username/cashflow/src/logger"
	"github.com/username/cashflow/src/services"
	"github.com/username/cashflow/src/utils"
)

// MaxHorizonDays bounds the horizonDays query parameter.
const MaxHorizonDays = 3660

type ProjectionHandler struct {
	projector      services.ProjectionService
	defaultHorizon int
}

func NewProjectionHandler(projector services.ProjectionService, defaultHorizon int) *ProjectionHandler {
	return &ProjectionHandler{projector: projector, defaultHorizon: defaultHorizon}
}

// HandleProject runs the projector. A run with failed templates still answers
// 200 with the failures listed in the report.
func (h *ProjectionHandler) HandleProject(w http.ResponseWriter, r *http.Request) {
	horizon := h.defaultHorizon
	if raw := r.URL.Query().Get("horizonDays"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > MaxHorizonDays {
			utils.SendJSONError(w, "horizonDays must be an integer between 0 and "+strconv.Itoa(MaxHorizonDays), http.StatusBadRequest)
			return
		}
		horizon = n
	}

	log := logger.FromContext(r.Context())
	report, err := h.projector.Project(r.Context(), horizon)
	if report == nil {
		log.Error("Projection failed", "horizonDays", horizon, "error", err)
		utils.SendJSONError(w, "projection failed", http.StatusInternalServerError)
		return
	}
	if err != nil {
		log.Warn("Projection finished with template errors", "horizonDays", horizon, "errors", len(report.Errors))
	}
	utils.SendJSON(w, report, http.StatusOK)
}
