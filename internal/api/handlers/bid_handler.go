package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"auction-house/internal/clock"
	"auction-house/internal/domain"
	"auction-house/internal/services"
	"auction-house/pkg/logger"

	"github.com/gorilla/mux"
)

const (
	defaultHistoryCount = 10
	maxHistoryCount     = 100
)

// BidHandler serves the bidding-service HTTP API.
type BidHandler struct {
	bids  *services.BidService
	items *services.ItemService
	clock clock.Clock
	log   logger.Logger
}

type PlaceBidRequest struct {
	UserID string  `json:"user_id"`
	Amount float64 `json:"amount"`
}

type PlaceBidResponse struct {
	ItemID      string    `json:"item_id"`
	UserID      string    `json:"user_id"`
	Amount      float64   `json:"amount"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type BidHistoryResponse struct {
	ItemID string       `json:"item_id"`
	Bids   []domain.Bid `json:"bids"`
}

type userRequest struct {
	UserID string `json:"user_id"`
}

func NewBidHandler(bids *services.BidService, items *services.ItemService, clk clock.Clock, log logger.Logger) *BidHandler {
	return &BidHandler{
		bids:  bids,
		items: items,
		clock: clk,
		log:   log,
	}
}

func (h *BidHandler) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/items/{id}/bids", h.PlaceBid).Methods(http.MethodPost)
	api.HandleFunc("/items/{id}/bids", h.GetBidHistory).Methods(http.MethodGet)
	api.HandleFunc("/items/{id}/views", h.RecordView).Methods(http.MethodPost)
	api.HandleFunc("/items/{id}/likes", h.Like).Methods(http.MethodPut)
	api.HandleFunc("/items/{id}/likes", h.Unlike).Methods(http.MethodDelete)
}

func (h *BidHandler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["id"]

	var req PlaceBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.log, fmt.Errorf("%w: body must be JSON", domain.ErrInvalidRequest))
		return
	}

	submittedAt := h.clock.Now()
	if err := h.bids.PlaceBid(r.Context(), itemID, req.UserID, req.Amount, submittedAt); err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, PlaceBidResponse{
		ItemID:      itemID,
		UserID:      req.UserID,
		Amount:      req.Amount,
		SubmittedAt: submittedAt,
	})
}

func (h *BidHandler) GetBidHistory(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["id"]

	offset, err := queryInt(r.URL.Query().Get("offset"), 0)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	count, err := queryInt(r.URL.Query().Get("count"), defaultHistoryCount)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if count > maxHistoryCount {
		count = maxHistoryCount
	}

	history, err := h.bids.GetBidHistory(r.Context(), itemID, offset, count)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, BidHistoryResponse{ItemID: itemID, Bids: history})
}

func (h *BidHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.decodeUser(w, r)
	if !ok {
		return
	}
	if _, err := h.items.RecordView(r.Context(), mux.Vars(r)["id"], userID); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BidHandler) Like(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.decodeUser(w, r)
	if !ok {
		return
	}
	if err := h.items.Like(r.Context(), mux.Vars(r)["id"], userID); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BidHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.decodeUser(w, r)
	if !ok {
		return
	}
	if err := h.items.Unlike(r.Context(), mux.Vars(r)["id"], userID); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BidHandler) decodeUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.log, fmt.Errorf("%w: body must be JSON", domain.ErrInvalidRequest))
		return "", false
	}
	return req.UserID, true
}

func queryInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", domain.ErrInvalidRequest, raw)
	}
	return v, nil
}
