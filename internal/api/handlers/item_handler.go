package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"auction-house/internal/domain"
	"auction-house/internal/services"
	"auction-house/pkg/logger"

	"github.com/labstack/echo/v4"
)

const (
	defaultRankingLimit = 10
	maxRankingLimit     = 100
)

// ItemHandler serves the auction-service HTTP API.
type ItemHandler struct {
	items *services.ItemService
	log   logger.Logger
}

type CreateItemRequest struct {
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	ImageURL      string    `json:"image_url"`
	OwnerID       string    `json:"owner_id"`
	StartingPrice float64   `json:"starting_price"`
	EndingAt      time.Time `json:"ending_at"`
}

type likedResponse struct {
	ItemID string `json:"item_id"`
	UserID string `json:"user_id"`
	Liked  bool   `json:"liked"`
}

func NewItemHandler(items *services.ItemService, log logger.Logger) *ItemHandler {
	return &ItemHandler{
		items: items,
		log:   log,
	}
}

func (h *ItemHandler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api/v1")
	api.POST("/items", h.CreateItem)
	api.GET("/items", h.GetItems)
	api.GET("/items/:id", h.GetItem)
	api.GET("/rankings/price", h.TopByPrice)
	api.GET("/rankings/views", h.TopByViews)
	api.GET("/rankings/ending-soon", h.EndingSoon)
	api.GET("/users/:id/likes", h.LikedItems)
	api.GET("/users/:id/likes/common/:otherId", h.CommonLikedItems)
	api.GET("/users/:id/likes/:itemId", h.UserLikesItem)
}

func (h *ItemHandler) CreateItem(c echo.Context) error {
	var req CreateItemRequest
	if err := c.Bind(&req); err != nil {
		return echoError(c, h.log, fmt.Errorf("%w: invalid request body", domain.ErrInvalidRequest))
	}

	item, err := h.items.CreateItem(c.Request().Context(), domain.NewItem{
		Name:          req.Name,
		Description:   req.Description,
		ImageURL:      req.ImageURL,
		OwnerID:       req.OwnerID,
		StartingPrice: req.StartingPrice,
		EndingAt:      req.EndingAt,
	})
	if err != nil {
		return echoError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *ItemHandler) GetItem(c echo.Context) error {
	item, err := h.items.GetItem(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echoError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, item)
}

// GetItems serves ?ids=a,b,c; unknown ids are left out.
func (h *ItemHandler) GetItems(c echo.Context) error {
	var ids []string
	for _, id := range strings.Split(c.QueryParam("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return echoError(c, h.log, fmt.Errorf("%w: ids is required", domain.ErrInvalidRequest))
	}

	items, err := h.items.GetItems(c.Request().Context(), ids)
	if err != nil {
		return echoError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ItemHandler) TopByPrice(c echo.Context) error {
	limit, err := h.limit(c)
	if err != nil {
		return echoError(c, h.log, err)
	}
	ranked, err := h.items.TopByPrice(c.Request().Context(), limit)
	if err != nil {
		return echoError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, ranked)
}

func (h *ItemHandler) TopByViews(c echo.Context) error {
	limit, err := h.limit(c)
	if err != nil {
		return echoError(c, h.log, err)
	}
	ranked, err := h.items.TopByViews(c.Request().Context(), limit)
	if err != nil {
		return echoError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, ranked)
}

func (h *ItemHandler) EndingSoon(c echo.Context) error {
	offset, err := queryInt(c.QueryParam("offset"), 0)
	if err != nil {
		return echoError(c, h.log, err)
	}
	count, err := queryInt(c.QueryParam("count"), defaultRankingLimit)
	if err != nil {
		return echoError(c, h.log, err)
	}
	if count > maxRankingLimit {
		count = maxRankingLimit
	}

	ranked, err := h.items.EndingSoonest(c.Request().Context(), offset, count)
	if err != nil {
		return echoError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, ranked)
}

func (h *ItemHandler) LikedItems(c echo.Context) error {
	items, err := h.items.LikedItems(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echoError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ItemHandler) UserLikesItem(c echo.Context) error {
	userID, itemID := c.Param("id"), c.Param("itemId")
	liked, err := h.items.UserLikesItem(c.Request().Context(), itemID, userID)
	if err != nil {
		return echoError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, likedResponse{ItemID: itemID, UserID: userID, Liked: liked})
}

func (h *ItemHandler) CommonLikedItems(c echo.Context) error {
	items, err := h.items.CommonLikedItems(c.Request().Context(), c.Param("id"), c.Param("otherId"))
	if err != nil {
		return echoError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ItemHandler) limit(c echo.Context) (int, error) {
	limit, err := queryInt(c.QueryParam("limit"), defaultRankingLimit)
	if err != nil {
		return 0, err
	}
	if limit > maxRankingLimit {
		limit = maxRankingLimit
	}
	return limit, nil
}
