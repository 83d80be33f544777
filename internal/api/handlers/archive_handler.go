package handlers

import (
	"net/http"

	"auction-house/internal/domain"
	"auction-house/internal/services"
	"auction-house/pkg/logger"

	"github.com/labstack/echo/v4"
)

const (
	defaultArchiveLimit = 50
	maxArchiveLimit     = 500
)

// ArchiveHandler serves the analytics-service read API over archived bids.
type ArchiveHandler struct {
	archiver *services.Archiver
	log      logger.Logger
}

type ArchivedBidsResponse struct {
	ItemID string             `json:"item_id"`
	Events []*domain.BidEvent `json:"events"`
}

func NewArchiveHandler(archiver *services.Archiver, log logger.Logger) *ArchiveHandler {
	return &ArchiveHandler{
		archiver: archiver,
		log:      log,
	}
}

func (h *ArchiveHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/v1/items/:id/archive", h.ListArchivedBids)
}

// ListArchivedBids serves GET /api/v1/items/:id/archive?limit=.
func (h *ArchiveHandler) ListArchivedBids(c echo.Context) error {
	itemID := c.Param("id")
	limit, err := queryInt(c.QueryParam("limit"), defaultArchiveLimit)
	if err != nil {
		return echoError(c, h.log, err)
	}
	if limit > maxArchiveLimit {
		limit = maxArchiveLimit
	}

	events, err := h.archiver.RecentBids(c.Request().Context(), itemID, limit)
	if err != nil {
		return echoError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, ArchivedBidsResponse{ItemID: itemID, Events: events})
}
