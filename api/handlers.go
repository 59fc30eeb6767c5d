/*
handlers.go - HTTP request handlers

PURPOSE:
  Implements the HTTP handlers for the reward engine API. Handlers stay
  thin: decode, delegate to the planner or store, encode. All reward
  math lives in the engine package.

ENDPOINTS:
  Cards:
    GET    /api/cards                  - List all cards
    POST   /api/cards                  - Create/update a card
    GET    /api/cards/{id}             - Get one card
    DELETE /api/cards/{id}             - Delete a card
    GET    /api/cards/{id}/programs    - Program lifecycle summary (?as_of=)
    GET    /api/cards/{id}/overlaps    - Program overlap diagnostics
    GET    /api/cards/{id}/progress    - Cap usage bars for active program
    POST   /api/cards/{id}/recalculate - Replay stored purchases in order

  Transactions:
    GET    /api/transactions           - List purchases (?card_id= required)
    POST   /api/transactions           - Record a purchase with its snapshot
    GET    /api/transactions/{id}      - Get one purchase
    DELETE /api/transactions/{id}     - Delete a purchase

  Planning:
    POST   /api/simulate               - Evaluate a draft against one card
    POST   /api/rank                   - Evaluate a draft against every card

SEE ALSO:
  - dto.go: Request/response types
  - wallet/planner.go: Orchestration logic
*/
package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cardwise/reward-engine/engine"
	"github.com/cardwise/reward-engine/factory"
	"github.com/cardwise/reward-engine/wallet"
)

// Handler holds the dependencies for all HTTP handlers.
type Handler struct {
	store   wallet.Store
	planner *wallet.Planner
}

func NewHandler(store wallet.Store) *Handler {
	return &Handler{
		store:   store,
		planner: wallet.NewPlanner(store),
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func storeError(w http.ResponseWriter, err error) {
	if wallet.IsNotFound(err) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// parseMode maps the request mode, defaulting to daily when omitted.
func parseMode(s string) (engine.Mode, error) {
	if s == "" {
		return engine.ModeDaily, nil
	}
	return engine.ParseMode(s)
}

// =============================================================================
// CARD HANDLERS
// =============================================================================

func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.store.ListCards(r.Context())
	if err != nil {
		storeError(w, err)
		return
	}
	dtos := make([]CardDTO, 0, len(cards))
	for _, card := range cards {
		dtos = append(dtos, CardDTO{
			ID:     card.ID,
			Name:   card.Name,
			Config: factory.ToJSON(card),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveCard upserts: 201 when the card is new, 200 when an existing one
// is overwritten.
func (h *Handler) SaveCard(w http.ResponseWriter, r *http.Request) {
	var cj factory.CardJSON
	if err := json.NewDecoder(r.Body).Decode(&cj); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	card, err := factory.FromJSON(cj)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	status := http.StatusCreated
	if card.ID != "" {
		if _, err := h.store.GetCard(r.Context(), card.ID); err == nil {
			status = http.StatusOK
		}
	}
	if err := h.store.SaveCard(r.Context(), card); err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, status, CardDTO{ID: card.ID, Name: card.Name, Config: factory.ToJSON(card)})
}

func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	card, err := h.store.GetCard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CardDTO{ID: card.ID, Name: card.Name, Config: factory.ToJSON(card)})
}

func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteCard(r.Context(), chi.URLParam(r, "id")); err != nil {
		storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CardOverlaps(w http.ResponseWriter, r *http.Request) {
	card, err := h.store.GetCard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, err)
		return
	}
	diags := engine.ValidatePrograms(card)
	dtos := make([]OverlapDTO, 0, len(diags))
	for _, d := range diags {
		dtos = append(dtos, OverlapDTO{ProgramA: d.ProgramA, ProgramB: d.ProgramB})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CardPrograms lists every program on the card with its lifecycle status
// relative to ?as_of= (today when omitted). Active programs come first, in
// the order the engine would prefer them.
func (h *Handler) CardPrograms(w http.ResponseWriter, r *http.Request) {
	asOf := engine.Today()
	if s := r.URL.Query().Get("as_of"); s != "" {
		var err error
		asOf, err = engine.ParseDate(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	card, err := h.store.GetCard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, err)
		return
	}

	dtos := make([]ProgramStatusDTO, 0, len(card.Programs))
	seen := map[string]bool{}
	add := func(p *engine.Program, status string) {
		dtos = append(dtos, ProgramStatusDTO{
			ID:            p.ID,
			Name:          p.Name,
			StartDate:     p.StartDate.String(),
			EndDate:       p.EndDate.String(),
			Status:        status,
			RemainingDays: engine.RemainingDays(p, asOf),
		})
		seen[p.ID] = true
	}
	for _, p := range engine.ActivePrograms(card, asOf) {
		add(p, "active")
	}
	for i := range card.Programs {
		p := &card.Programs[i]
		if seen[p.ID] {
			continue
		}
		if engine.IsExpired(p, asOf) {
			add(p, "expired")
		} else {
			add(p, "upcoming")
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CardProgress(w http.ResponseWriter, r *http.Request) {
	asOf := engine.Today()
	if s := r.URL.Query().Get("as_of"); s != "" {
		var err error
		asOf, err = engine.ParseDate(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	items, err := h.planner.Progress(r.Context(), chi.URLParam(r, "id"), asOf)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProgressDTOs(items))
}

func (h *Handler) RecalculateCard(w http.ResponseWriter, r *http.Request) {
	mode, err := parseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	txs, err := h.planner.Recalculate(r.Context(), chi.URLParam(r, "id"), mode)
	if err != nil {
		storeError(w, err)
		return
	}
	dtos := make([]TransactionDTO, 0, len(txs))
	for i := range txs {
		dtos = append(dtos, toTransactionDTO(&txs[i]))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	cardID := r.URL.Query().Get("card_id")
	if cardID == "" {
		writeError(w, http.StatusBadRequest, "card_id query parameter is required")
		return
	}
	txs, err := h.store.ListTransactions(r.Context(), cardID)
	if err != nil {
		storeError(w, err)
		return
	}
	dtos := make([]TransactionDTO, 0, len(txs))
	for i := range txs {
		dtos = append(dtos, toTransactionDTO(&txs[i]))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req RecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	mode, err := parseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	draft, err := factory.TransactionFromJSON(req.Transaction)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tx, res, err := h.planner.Record(r.Context(), *draft, mode)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Transaction TransactionDTO       `json:"transaction"`
		Result      CalculationResultDTO `json:"result"`
	}{toTransactionDTO(tx), toResultDTO(res)})
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.store.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteTransaction(r.Context(), chi.URLParam(r, "id")); err != nil {
		storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PLANNING HANDLERS
// =============================================================================

func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.CardID == "" {
		writeError(w, http.StatusBadRequest, "card_id is required")
		return
	}
	mode, err := parseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	draft, err := factory.TransactionFromJSON(req.Transaction)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.planner.Simulate(r.Context(), req.CardID, *draft, mode)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResultDTO(res))
}

func (h *Handler) Rank(w http.ResponseWriter, r *http.Request) {
	var req RankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	mode, err := parseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	draft, err := factory.TransactionFromJSON(req.Transaction)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ranked, err := h.planner.Rank(r.Context(), *draft, mode)
	if err != nil {
		storeError(w, err)
		return
	}
	dtos := make([]RankedCardDTO, 0, len(ranked))
	for _, rc := range ranked {
		dtos = append(dtos, RankedCardDTO{
			CardID:   rc.Card.ID,
			CardName: rc.Card.Name,
			Result:   toResultDTO(&rc.Result),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
