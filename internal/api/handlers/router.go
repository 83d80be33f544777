package handlers

import (
	"net/http"

	"auction-house/internal/api/middleware"
	"auction-house/pkg/logger"

	"github.com/gorilla/mux"
)

// NewBiddingRouter builds the bidding-service handler. CORS wraps the router
// itself; mux middleware only runs for matched routes and a preflight OPTIONS
// matches none of the method-restricted ones.
func NewBiddingRouter(bids *BidHandler, ws http.HandlerFunc, log logger.Logger) http.Handler {
	router := mux.NewRouter()
	router.Use(middleware.Recover(log))

	bids.RegisterRoutes(router)
	router.HandleFunc("/ws/items/{itemID}", ws)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	return middleware.CORSWithLogging(log)(router)
}
