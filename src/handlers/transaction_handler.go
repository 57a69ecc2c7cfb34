package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/username/cashflow/src/logger"
	"github.com/username/cashflow/src/models"
	"github.com/username/cashflow/src/security/validation"
	"github.com/username/cashflow/src/services"
	"github.com/username/cashflow/src/utils"
)

const maxBodyBytes = 1 << 20

type TransactionHandler struct {
	transactions services.TransactionService
}

func NewTransactionHandler(transactions services.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactions: transactions}
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid transaction id")
	}
	return id, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// sendServiceError maps service and validation errors to HTTP statuses.
func sendServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, validation.ErrValidationFailed):
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrNotFound):
		utils.SendJSONError(w, "transaction not found", http.StatusNotFound)
	case errors.Is(err, services.ErrDuplicateOccurrence):
		utils.SendJSONError(w, "an occurrence with this title, frequency and date already exists", http.StatusConflict)
	default:
		logger.FromContext(r.Context()).Error("Transaction request failed", "path", r.URL.Path, "error", err)
		utils.SendJSONError(w, "internal server error", http.StatusInternalServerError)
	}
}

func (h *TransactionHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var in validation.TransactionInput
	if err := decodeBody(w, r, &in); err != nil {
		utils.SendJSONError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	tx, err := validation.ValidateTransactionInput(in)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}

	added, err := h.transactions.Add(r.Context(), tx)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/transactions/"+strconv.FormatInt(added.ID, 10))
	utils.SendJSON(w, added, http.StatusCreated)
}

func (h *TransactionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	tx, err := h.transactions.Get(r.Context(), id)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, tx, http.StatusOK)
}

// HandleUpdate applies a partial update: fields absent from the body keep their stored value.
func (h *TransactionHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var patch validation.TransactionPatch
	if err := decodeBody(w, r, &patch); err != nil {
		utils.SendJSONError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	current, err := h.transactions.Get(r.Context(), id)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	next, err := validation.ApplyTransactionPatch(*current, patch)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}

	updated, err := h.transactions.Update(r.Context(), next)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, updated, http.StatusOK)
}

type deleteResponse struct {
	Transaction *models.Transaction `json:"transaction"`
	SoftDeleted bool                `json:"softDeleted"`
}

func (h *TransactionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	tx, err := h.transactions.Delete(r.Context(), id)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, deleteResponse{Transaction: tx, SoftDeleted: tx.IsGenerated}, http.StatusOK)
}
