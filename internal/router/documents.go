package router

import (
	"net/http"

	"github.com/BerylCAtieno/finreport/internal/config"
	"github.com/BerylCAtieno/finreport/internal/handlers"
	"github.com/BerylCAtieno/finreport/internal/middleware"
	"github.com/BerylCAtieno/finreport/internal/services"
	"github.com/BerylCAtieno/finreport/internal/utils"

	"github.com/gorilla/mux"
)

func NewRouter(svc services.ReportService, cfg *config.Config, logger *utils.Logger) http.Handler {
	r := mux.NewRouter()

	// Middlewares
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS())
	r.Use(middleware.Recovery(logger))

	h := handlers.NewReportHandler(svc, cfg, logger)

	r.HandleFunc("/", h.Home).Methods(http.MethodGet)
	// Legacy path kept for existing upload forms.
	r.HandleFunc("/extract", h.Extract).Methods(http.MethodPost, http.MethodOptions)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	api.HandleFunc("/extract", h.Extract).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/runs", h.ListRuns).Methods(http.MethodGet)

	return r
}
