package handlers

import (
	"encoding/json"
	"net/http"

	"auction-house/internal/domain"
	"auction-house/pkg/logger"

	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func statusFor(code string) int {
	switch code {
	case domain.CodeItemNotFound:
		return http.StatusNotFound
	case domain.CodeBidTooLow, domain.CodeAuctionClosed:
		return http.StatusConflict
	case domain.CodeLockUnavailable, domain.CodeLockExpired:
		return http.StatusServiceUnavailable
	case domain.CodeInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err error) (int, errorResponse) {
	code := domain.ErrorCode(err)
	status := statusFor(code)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	return status, errorResponse{Error: msg, Code: code}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, log logger.Logger, err error) {
	status, body := errorBody(err)
	if status == http.StatusInternalServerError {
		log.Error("Request failed", "error", err)
	}
	if body.Code == domain.CodeLockUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, body)
}

func echoError(c echo.Context, log logger.Logger, err error) error {
	status, body := errorBody(err)
	if status == http.StatusInternalServerError {
		log.Error("Request failed", "path", c.Path(), "error", err)
	}
	if body.Code == domain.CodeLockUnavailable {
		c.Response().Header().Set("Retry-After", "1")
	}
	return c.JSON(status, body)
}
