package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/quantfolio/portfolio-service/internal/metrics"
)

// SetupRoutes configures all API routes. The websocket endpoint is
// injected so this package stays independent of the hub; it is mounted
// outside the instrumented subrouter because the upgrade needs the raw
// ResponseWriter.
func SetupRoutes(handler *Handler, ws http.HandlerFunc) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")
	if ws != nil {
		r.HandleFunc("/ws/portfolio", ws)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(metrics.Middleware)

	// Trade log
	api.HandleFunc("/trades", handler.RecordTrade).Methods("POST")
	api.HandleFunc("/trades", handler.ListTrades).Methods("GET")
	api.HandleFunc("/trades/{id:[0-9]+}", handler.DeleteTrade).Methods("DELETE")

	// Positions
	api.HandleFunc("/positions", handler.GetPositions).Methods("GET")
	api.HandleFunc("/positions/{symbol}", handler.GetPosition).Methods("GET")
	api.HandleFunc("/positions/{symbol}/trades", handler.GetPositionTrades).Methods("GET")

	// Portfolio views
	api.HandleFunc("/portfolio/summary", handler.GetPortfolioSummary).Methods("GET")
	api.HandleFunc("/portfolio/history", handler.GetPortfolioHistory).Methods("GET")

	// Accounting settings
	api.HandleFunc("/settings/method", handler.GetMethodSettings).Methods("GET")
	api.HandleFunc("/settings/method", handler.UpdateMethodSettings).Methods("PUT")
	api.HandleFunc("/settings/method/{symbol}", handler.ClearMethodOverride).Methods("DELETE")

	// Options analytics
	api.HandleFunc("/options/price", handler.PriceOption).Methods("GET")
	api.HandleFunc("/options/strategy/analyze", handler.AnalyzeStrategy).Methods("POST")
	api.HandleFunc("/options/strategy/presets", handler.ListStrategyPresets).Methods("GET")
	api.HandleFunc("/options/strategy/presets/{name}", handler.AnalyzeStrategyPreset).Methods("POST")
	api.HandleFunc("/options/chain/{symbol}", handler.GetOptionChain).Methods("GET")

	return r
}
