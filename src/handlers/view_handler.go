package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/username/cashflow/src/logger"
	"github.com/username/cashflow/src/models"
	"github.com/username/cashflow/src/services"
	"github.com/username/cashflow/src/utils"
)

// ViewRefresher loads a view and makes it owner's current one.
type ViewRefresher interface {
	Refresh(ctx context.Context, owner string, params models.ViewParams) (*models.View, error)
}

type ViewHandler struct {
	refresher ViewRefresher
}

func NewViewHandler(refresher ViewRefresher) *ViewHandler {
	return &ViewHandler{refresher: refresher}
}

type viewResponse struct {
	Mode          models.ViewMode      `json:"mode"`
	Range         string               `json:"range,omitempty"`
	Frequency     models.Frequency     `json:"frequency"`
	Today         string               `json:"today"`
	Start         string               `json:"start,omitempty"`
	Transactions  []models.Transaction `json:"transactions"`
	TotalIncome   decimal.Decimal      `json:"totalIncome"`
	TotalExpenses decimal.Decimal      `json:"totalExpenses"`
	Balance       decimal.Decimal      `json:"balance"`
	Count         int                  `json:"count"`
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return n, nil
}

func parseViewParams(r *http.Request) (models.ViewParams, error) {
	q := r.URL.Query()
	mode, err := models.ParseViewMode(q.Get("mode"))
	if err != nil {
		return models.ViewParams{}, err
	}
	freq, err := models.ParseFrequencyFilter(q.Get("frequency"))
	if err != nil {
		return models.ViewParams{}, err
	}
	return models.ViewParams{Mode: mode, RangeLabel: q.Get("range"), Frequency: freq}, nil
}

// HandleGetView serves the filtered view. Aggregates cover the whole filtered
// set; limit and offset page only the transaction list.
func (h *ViewHandler) HandleGetView(w http.ResponseWriter, r *http.Request) {
	params, err := parseViewParams(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	owner, _ := SubjectFromContext(r.Context())
	view, err := h.refresher.Refresh(r.Context(), owner, params)
	if err != nil && !errors.Is(err, services.ErrSuperseded) {
		logger.FromContext(r.Context()).Error("Failed to load view", "mode", params.Mode, "range", params.RangeLabel, "error", err)
		utils.SendJSONError(w, "failed to load view", http.StatusInternalServerError)
		return
	}

	txs := view.Transactions
	start := utils.MinInt(offset, len(txs))
	end := len(txs)
	if limit > 0 {
		end = utils.MinInt(start+limit, len(txs))
	}

	response := viewResponse{
		Mode:          view.Params.Mode,
		Range:         view.Params.RangeLabel,
		Frequency:     view.Params.Frequency,
		Today:         view.Today,
		Start:         view.Start,
		Transactions:  txs[start:end],
		TotalIncome:   view.TotalIncome,
		TotalExpenses: view.TotalExpenses,
		Balance:       view.Balance,
		Count:         len(txs),
	}

	etag, err := utils.GenerateETag(response)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to generate ETag for view", "error", err)
	} else {
		w.Header().Set("ETag", `"`+etag+`"`)
		if r.Header.Get("If-None-Match") == `"`+etag+`"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	utils.SendJSON(w, response, http.StatusOK)
}

type frequencyOption struct {
	Value models.Frequency `json:"value"`
	Label string           `json:"label"`
}

type rangesResponse struct {
	Ranges       []string          `json:"ranges"`
	DefaultRange string            `json:"defaultRange"`
	Frequencies  []frequencyOption `json:"frequencies"`
	Modes        []models.ViewMode `json:"modes"`
}

// HandleGetRanges lists the selectable range labels, frequency filters and view modes.
func HandleGetRanges(w http.ResponseWriter, r *http.Request) {
	freqs := []models.Frequency{
		models.FrequencyAll,
		models.FrequencyOnce,
		models.FrequencyDaily,
		models.FrequencyWeekly,
		models.FrequencyBiweekly,
		models.FrequencyMonthly,
	}
	options := make([]frequencyOption, 0, len(freqs))
	for _, f := range freqs {
		options = append(options, frequencyOption{Value: f, Label: f.DisplayName()})
	}
	utils.SendJSON(w, rangesResponse{
		Ranges:       models.RangeLabels,
		DefaultRange: models.RangeLast2Weeks,
		Frequencies:  options,
		Modes:        []models.ViewMode{models.ViewPastRange, models.ViewFuture},
	}, http.StatusOK)
}
