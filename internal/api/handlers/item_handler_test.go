package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"auction-house/internal/domain"
	"auction-house/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newItemServer(f *fixture) *echo.Echo {
	e := echo.New()
	NewItemHandler(f.items, logger.NewNop()).RegisterRoutes(e)
	return e
}

func TestCreateAndGetItem(t *testing.T) {
	f := newFixture(t)
	e := newItemServer(f)

	body := `{"name":"Lamp","owner_id":"owner-1","starting_price":25,"ending_at":"` +
		testNow.Add(time.Hour).Format(time.RFC3339) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/items", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created domain.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Lamp", created.Name)
	assert.Equal(t, 25.0, created.Price)

	rec = do(t, e, http.MethodGet, "/api/v1/items/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var fetched domain.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, created.ID, fetched.ID)

	rec = do(t, e, http.MethodGet, "/api/v1/items/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "item_not_found", decodeError(t, rec).Code)
}

func TestCreateItemRejectsPastEnding(t *testing.T) {
	e := newItemServer(newFixture(t))
	body := `{"name":"Lamp","ending_at":"` + testNow.Add(-time.Hour).Format(time.RFC3339) + `"}`

	rec := do(t, e, http.MethodPost, "/api/v1/items", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeError(t, rec).Code)
}

func TestGetItemsByIDs(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, "a", 1, time.Hour)
	f.seedItem(t, "b", 1, time.Hour)
	e := newItemServer(f)

	rec := do(t, e, http.MethodGet, "/api/v1/items?ids=b,missing,a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var items []domain.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].ID)

	assert.Equal(t, http.StatusBadRequest, do(t, e, http.MethodGet, "/api/v1/items", "").Code)
}

func TestRankingEndpoints(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, "soon", 1, time.Minute)
	f.seedItem(t, "later", 1, time.Hour)
	e := newItemServer(f)

	_, err := f.items.RecordView(context.Background(), "later", "u1")
	require.NoError(t, err)

	rec := do(t, e, http.MethodGet, "/api/v1/rankings/views?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var ranked []domain.RankedItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ranked))
	require.Len(t, ranked, 1)
	assert.Equal(t, "later", ranked[0].Item.ID)

	rec = do(t, e, http.MethodGet, "/api/v1/rankings/ending-soon", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ranked))
	require.Len(t, ranked, 2)
	assert.Equal(t, "soon", ranked[0].Item.ID)

	require.NoError(t, f.bids.PlaceBid(context.Background(), "soon", "u1", 40, testNow))
	rec = do(t, e, http.MethodGet, "/api/v1/rankings/price", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ranked))
	require.NotEmpty(t, ranked)
	assert.Equal(t, "soon", ranked[0].Item.ID)
	assert.Equal(t, 40.0, ranked[0].Score)

	assert.Equal(t, http.StatusBadRequest, do(t, e, http.MethodGet, "/api/v1/rankings/price?limit=ten", "").Code)
}

func TestLikeQueryEndpoints(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, "a", 1, time.Hour)
	f.seedItem(t, "b", 1, time.Hour)
	e := newItemServer(f)
	ctx := context.Background()

	require.NoError(t, f.items.Like(ctx, "a", "u1"))
	require.NoError(t, f.items.Like(ctx, "b", "u1"))
	require.NoError(t, f.items.Like(ctx, "b", "u2"))

	rec := do(t, e, http.MethodGet, "/api/v1/users/u1/likes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var items []domain.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	assert.Len(t, items, 2)

	rec = do(t, e, http.MethodGet, "/api/v1/users/u2/likes/a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var liked likedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &liked))
	assert.False(t, liked.Liked)

	rec = do(t, e, http.MethodGet, "/api/v1/users/u1/likes/common/u2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].ID)
}
