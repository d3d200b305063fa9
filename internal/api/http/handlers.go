package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/louisbranch/packworks/internal/engine/opening"
	"github.com/louisbranch/packworks/internal/engine/payment"
	"github.com/louisbranch/packworks/internal/engine/security"
	apperrors "github.com/louisbranch/packworks/internal/platform/errors"
	"github.com/louisbranch/packworks/internal/storage"
	"github.com/louisbranch/packworks/internal/telemetry"
)

// Handler holds the HTTP handlers for the pack opening API.
type Handler struct {
	orch    *opening.Orchestrator
	guard   *payment.Guard
	control *security.Control
	store   storage.Store
	events  *telemetry.Emitter
}

// NewHandler constructs a Handler.
func NewHandler(orch *opening.Orchestrator, guard *payment.Guard, control *security.Control, store storage.Store, events *telemetry.Emitter) *Handler {
	return &Handler{orch: orch, guard: guard, control: control, store: store, events: events}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.Wrap(apperrors.CodeRequestBodyInvalid, "invalid request body", err)
	}
	return nil
}

// handleError maps storage misses to the not-found code before the generic
// domain error response.
func handleError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		apperrors.HandleError(w, apperrors.New(apperrors.CodeNotFound, "record not found"))
		return
	}
	apperrors.HandleError(w, err)
}

type openPackRequest struct {
	Packs int   `json:"packs"`
	Value int64 `json:"value"`
}

type openDeckRequest struct {
	Value int64 `json:"value"`
}

type receiptResponse struct {
	RequestID      string `json:"request_id"`
	Price          int64  `json:"price"`
	Change         int64  `json:"change"`
	ChangeCredited bool   `json:"change_credited,omitempty"`
}

// OpenPack handles POST /v1/packs/open.
func (h *Handler) OpenPack(w http.ResponseWriter, r *http.Request) {
	var req openPackRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	receipt, err := h.orch.OpenPack(r.Context(), CallerFromContext(r.Context()), req.Value, req.Packs)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, receiptResponse{
		RequestID:      receipt.RequestID,
		Price:          receipt.Price,
		Change:         receipt.Change,
		ChangeCredited: receipt.ChangeCredited,
	})
}

// OpenDeck handles POST /v1/decks/{name}/open.
func (h *Handler) OpenDeck(w http.ResponseWriter, r *http.Request) {
	var req openDeckRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	receipt, err := h.orch.OpenDeck(r.Context(), CallerFromContext(r.Context()), req.Value, chi.URLParam(r, "name"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, receiptResponse{
		RequestID:      receipt.RequestID,
		Price:          receipt.Price,
		Change:         receipt.Change,
		ChangeCredited: receipt.ChangeCredited,
	})
}

type reclaimResponse struct {
	Amount   int64 `json:"amount"`
	Credited bool  `json:"credited,omitempty"`
}

// Reclaim handles POST /v1/requests/{id}/reclaim.
func (h *Handler) Reclaim(w http.ResponseWriter, r *http.Request) {
	result, err := h.orch.Reclaim(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reclaimResponse{Amount: result.Amount, Credited: result.Credited})
}

type withdrawResponse struct {
	Amount int64 `json:"amount"`
}

// Withdraw handles POST /v1/withdraw.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	amount, err := h.guard.Withdraw(r.Context(), CallerFromContext(r.Context()))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, withdrawResponse{Amount: amount})
}

type creditsResponse struct {
	Credit int64 `json:"credit"`
}

// Credits handles GET /v1/credits.
func (h *Handler) Credits(w http.ResponseWriter, r *http.Request) {
	credit, err := h.guard.Credit(r.Context(), CallerFromContext(r.Context()))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, creditsResponse{Credit: credit})
}

type fulfillRequest struct {
	RequestID string   `json:"request_id"`
	Words     []uint64 `json:"words"`
}

type fulfillResponse struct {
	RequestID string           `json:"request_id"`
	Minted    []mintedResponse `json:"minted"`
}

type mintedResponse struct {
	DesignID    uint64   `json:"design_id"`
	InstanceIDs []uint64 `json:"instance_ids"`
}

// Fulfill handles POST /v1/oracle/fulfill.
func (h *Handler) Fulfill(w http.ResponseWriter, r *http.Request) {
	var req fulfillRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	outcome, err := h.orch.Fulfill(r.Context(), req.RequestID, req.Words)
	if err != nil {
		handleError(w, err)
		return
	}

	minted := make([]mintedResponse, 0, len(outcome.Minted))
	for _, card := range outcome.Minted {
		minted = append(minted, mintedResponse{DesignID: card.DesignID, InstanceIDs: card.InstanceIDs})
	}
	writeJSON(w, http.StatusOK, fulfillResponse{RequestID: outcome.Request.ID, Minted: minted})
}
