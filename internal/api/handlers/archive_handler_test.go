package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"testing"
	"time"

	"auction-house/internal/infrastructure/mysql"
	"auction-house/internal/services"
	"auction-house/pkg/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newArchiveServer(t *testing.T) (*echo.Echo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	archiver := services.NewArchiver(mysql.NewBidArchive(db), logger.NewNop())
	e := echo.New()
	NewArchiveHandler(archiver, logger.NewNop()).RegisterRoutes(e)
	return e, mock
}

func TestListArchivedBids(t *testing.T) {
	e, mock := newArchiveServer(t)

	rows := sqlmock.NewRows([]string{"item_id", "user_id", "amount", "previous_price", "bids", "event_type", "timestamp"}).
		AddRow("item-1", "u2", 200.0, 150.0, int64(2), "bid_accepted", testNow).
		AddRow("item-1", "u1", 150.0, 100.0, int64(1), "bid_accepted", testNow.Add(-time.Minute))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT item_id, user_id, amount")).
		WithArgs("item-1", "bid_accepted", 5).
		WillReturnRows(rows)

	rec := do(t, e, http.MethodGet, "/api/v1/items/item-1/archive?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body ArchivedBidsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Events, 2)
	assert.Equal(t, "u2", body.Events[0].UserID)
	assert.Equal(t, 150.0, body.Events[0].PreviousPrice)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListArchivedBidsErrors(t *testing.T) {
	e, mock := newArchiveServer(t)

	assert.Equal(t, http.StatusBadRequest, do(t, e, http.MethodGet, "/api/v1/items/item-1/archive?limit=many", "").Code)

	mock.ExpectQuery("SELECT item_id").WillReturnError(errors.New("connection refused"))
	rec := do(t, e, http.MethodGet, "/api/v1/items/item-1/archive", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", decodeError(t, rec).Code)
}
