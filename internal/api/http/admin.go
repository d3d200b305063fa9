package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/zstd"

	"github.com/louisbranch/packworks/internal/engine/catalog"
	apperrors "github.com/louisbranch/packworks/internal/platform/errors"
	"github.com/louisbranch/packworks/internal/storage/cursor"
	"github.com/louisbranch/packworks/internal/telemetry"
)

// Pause handles POST /v1/admin/pause.
func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	if err := h.control.Pause(r.Context()); err != nil {
		handleError(w, err)
		return
	}
	_ = h.events.Emit(r.Context(), telemetry.KindEmergencyPause, CallerFromContext(r.Context()), nil)
	w.WriteHeader(http.StatusNoContent)
}

// Unpause handles POST /v1/admin/unpause.
func (h *Handler) Unpause(w http.ResponseWriter, r *http.Request) {
	if err := h.control.Unpause(r.Context()); err != nil {
		handleError(w, err)
		return
	}
	_ = h.events.Emit(r.Context(), telemetry.KindEmergencyUnpause, CallerFromContext(r.Context()), nil)
	w.WriteHeader(http.StatusNoContent)
}

// LockMinting handles POST /v1/admin/lock-minting.
func (h *Handler) LockMinting(w http.ResponseWriter, r *http.Request) {
	if err := h.control.LockMinting(r.Context()); err != nil {
		handleError(w, err)
		return
	}
	_ = h.events.Emit(r.Context(), telemetry.KindMintingLocked, CallerFromContext(r.Context()), nil)
	w.WriteHeader(http.StatusNoContent)
}

// LockPrices handles POST /v1/admin/lock-prices.
func (h *Handler) LockPrices(w http.ResponseWriter, r *http.Request) {
	if err := h.control.LockPriceChanges(r.Context()); err != nil {
		handleError(w, err)
		return
	}
	_ = h.events.Emit(r.Context(), telemetry.KindPriceChangesLocked, CallerFromContext(r.Context()), nil)
	w.WriteHeader(http.StatusNoContent)
}

// LockCatalog handles POST /v1/admin/catalog/lock. The lock is one-way.
func (h *Handler) LockCatalog(w http.ResponseWriter, r *http.Request) {
	if err := h.control.LockCatalog(r.Context()); err != nil {
		handleError(w, err)
		return
	}
	_ = h.events.Emit(r.Context(), telemetry.KindCatalogLocked, CallerFromContext(r.Context()), nil)
	w.WriteHeader(http.StatusNoContent)
}

type setPriceRequest struct {
	Price int64 `json:"price"`
}

// SetPackPrice handles PUT /v1/admin/pack-price.
func (h *Handler) SetPackPrice(w http.ResponseWriter, r *http.Request) {
	var req setPriceRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}
	if req.Price <= 0 {
		handleError(w, apperrors.New(apperrors.CodePriceInvalid, "price must be positive"))
		return
	}
	if err := h.control.CheckPriceChangesAllowed(r.Context()); err != nil {
		handleError(w, err)
		return
	}
	if err := h.store.SetPackPrice(r.Context(), req.Price); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetDeckPrice handles PUT /v1/admin/decks/{name}/price.
func (h *Handler) SetDeckPrice(w http.ResponseWriter, r *http.Request) {
	var req setPriceRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}
	if req.Price <= 0 {
		handleError(w, apperrors.New(apperrors.CodePriceInvalid, "price must be positive"))
		return
	}
	if err := h.control.CheckPriceChangesAllowed(r.Context()); err != nil {
		handleError(w, err)
		return
	}
	if err := h.store.SetDeckPrice(r.Context(), chi.URLParam(r, "name"), req.Price); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addCardRequest struct {
	DesignID  uint64 `json:"design_id"`
	Name      string `json:"name"`
	Owner     string `json:"owner"`
	Tier      string `json:"tier"`
	Weight    uint64 `json:"weight,omitempty"`
	MaxSupply uint64 `json:"max_supply,omitempty"`
	URI       string `json:"uri,omitempty"`
}

// AddCard handles POST /v1/admin/cards. New designs are rejected once the
// catalog is locked, and design ids are never reused.
func (h *Handler) AddCard(w http.ResponseWriter, r *http.Request) {
	var req addCardRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}
	if err := h.control.CheckCatalogUnlocked(r.Context()); err != nil {
		handleError(w, err)
		return
	}

	tier, ok := catalog.ParseTier(req.Tier)
	if !ok {
		handleError(w, apperrors.New(apperrors.CodeCardTierInvalid, "unknown rarity tier"))
		return
	}
	entry := catalog.Entry{
		DesignID:  req.DesignID,
		Name:      req.Name,
		Owner:     req.Owner,
		Tier:      tier,
		Weight:    req.Weight,
		MaxSupply: req.MaxSupply,
		URI:       req.URI,
	}
	if err := entry.Validate(); err != nil {
		handleError(w, err)
		return
	}

	if _, err := h.store.CatalogEntry(r.Context(), entry.DesignID); err == nil {
		handleError(w, apperrors.New(apperrors.CodeCardExists, "design id already registered"))
		return
	}
	if err := h.store.PutCatalogEntry(r.Context(), entry); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

type addDeckRequest struct {
	Name  string            `json:"name"`
	Price int64             `json:"price"`
	Slots []addDeckSlotItem `json:"slots"`
}

type addDeckSlotItem struct {
	DesignID uint64 `json:"design_id"`
	Quantity int    `json:"quantity"`
}

// AddDeck handles POST /v1/admin/decks. Every slot must reference a
// registered design.
func (h *Handler) AddDeck(w http.ResponseWriter, r *http.Request) {
	var req addDeckRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}
	if err := h.control.CheckCatalogUnlocked(r.Context()); err != nil {
		handleError(w, err)
		return
	}

	deck := catalog.Deck{Name: req.Name, Price: req.Price}
	for _, slot := range req.Slots {
		deck.Slots = append(deck.Slots, catalog.Slot{DesignID: slot.DesignID, Quantity: slot.Quantity})
	}
	if err := deck.Validate(); err != nil {
		handleError(w, err)
		return
	}
	for _, slot := range deck.Slots {
		if _, err := h.store.CatalogEntry(r.Context(), slot.DesignID); err != nil {
			handleError(w, apperrors.New(apperrors.CodeDesignUnknown, "deck references unknown design"))
			return
		}
	}

	if _, err := h.store.Deck(r.Context(), deck.Name); err == nil {
		handleError(w, apperrors.New(apperrors.CodeDeckExists, "deck name already registered"))
		return
	}
	if err := h.store.PutDeck(r.Context(), deck); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

type eventsPageResponse struct {
	Events     []streamEvent `json:"events"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// ListEvents handles GET /v1/admin/events. Pages forward through the
// journal using an opaque cursor token.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	var afterSeq int64
	if token := r.URL.Query().Get("cursor"); token != "" {
		c, err := cursor.Decode(token)
		if err != nil {
			handleError(w, apperrors.Wrap(apperrors.CodeRequestBodyInvalid, "invalid cursor", err))
			return
		}
		afterSeq = c.Seq
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 1000 {
			handleError(w, apperrors.New(apperrors.CodeRequestBodyInvalid, "limit must be between 1 and 1000"))
			return
		}
		limit = parsed
	}

	events, err := h.store.SecurityEvents(r.Context(), afterSeq, limit)
	if err != nil {
		handleError(w, err)
		return
	}

	page := eventsPageResponse{Events: make([]streamEvent, 0, len(events))}
	for _, evt := range events {
		page.Events = append(page.Events, streamEvent{
			Seq:       evt.ID,
			Kind:      string(evt.Kind),
			Actor:     evt.Actor,
			Timestamp: evt.Timestamp,
			Metadata:  evt.Metadata,
		})
	}
	if len(events) == limit {
		token, err := cursor.Encode(cursor.Cursor{Seq: events[len(events)-1].ID})
		if err != nil {
			handleError(w, err)
			return
		}
		page.NextCursor = token
	}
	writeJSON(w, http.StatusOK, page)
}

// ExportEvents handles GET /v1/admin/events/export. The full security event
// journal streams out as zstd-compressed NDJSON.
func (h *Handler) ExportEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/zstd")
	w.Header().Set("Content-Disposition", `attachment; filename="security-events.ndjson.zst"`)

	encoder, err := zstd.NewWriter(w)
	if err != nil {
		handleError(w, err)
		return
	}
	defer encoder.Close()

	out := json.NewEncoder(encoder)
	var afterSeq int64
	for {
		events, err := h.store.SecurityEvents(r.Context(), afterSeq, 500)
		if err != nil {
			return
		}
		if len(events) == 0 {
			return
		}
		for _, evt := range events {
			wire := streamEvent{
				Seq:       evt.ID,
				Kind:      string(evt.Kind),
				Actor:     evt.Actor,
				Timestamp: evt.Timestamp,
				Metadata:  evt.Metadata,
			}
			if err := out.Encode(wire); err != nil {
				return
			}
			afterSeq = evt.ID
		}
	}
}
