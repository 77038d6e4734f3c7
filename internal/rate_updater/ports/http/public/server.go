package public

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/langowen/ratepresence/deploy/config"
	"github.com/langowen/ratepresence/internal/entities"
	mwLogger "github.com/langowen/ratepresence/internal/rate_updater/ports/http/public/middleware/logger"
	"github.com/langowen/ratepresence/internal/rate_updater/updater"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	Server  *http.Server
	service Service
}

type RateResponse struct {
	Rate       string    `json:"rate"`
	Trend      string    `json:"trend"`
	Difference string    `json:"difference"`
	Label      string    `json:"label"`
	Published  bool      `json:"published"`
	Outcome    string    `json:"outcome"`
	UpdatedAt  time.Time `json:"updated_at"`
	State      string    `json:"state"`
}

type StatusResponse struct {
	Status string `json:"status"`
	State  string `json:"state"`
}

func NewServer(server *http.Server, service Service) *Server {
	return &Server{
		Server:  server,
		service: service,
	}
}

func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mwLogger.New())
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", s.Health)
	r.Get("/rate", s.GetRate)

	return r
}

func StartServer(ctx context.Context, service Service, cfg config.HTTPServer) <-chan struct{} {
	serverConfig := &http.Server{
		Addr:         ":" + cfg.Port,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	server := NewServer(serverConfig, service)
	serverConfig.Handler = NewRouter(server)

	doneChan := make(chan struct{})

	go func() {
		if err := server.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to stop server", "error", err)
		}

		close(doneChan)
	}()

	return doneChan
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, StatusResponse{
		Status: "ok",
		State:  s.service.State().String(),
	})
}

func (s *Server) GetRate(w http.ResponseWriter, r *http.Request) {
	res := s.service.LastResult()
	if res == nil {
		RespondWithError(w, http.StatusNotFound, entities.ErrNotFound.Error(), "no rate has been recorded yet")
		return
	}

	RespondWithJSON(w, http.StatusOK, RateResponse{
		Rate:       res.Rate.StringFixed(entities.RatePlaces),
		Trend:      res.Trend.Indicator.String(),
		Difference: res.Trend.Difference.String(),
		Label:      res.Label,
		Published:  res.Outcome == updater.OutcomePublished,
		Outcome:    string(res.Outcome),
		UpdatedAt:  res.At,
		State:      s.service.State().String(),
	})
}

func RespondWithJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func RespondWithError(w http.ResponseWriter, code int, message string, details ...string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)

	errorText := message
	if len(details) > 0 {
		errorText += "\nDetails: " + details[0]
	}

	if _, err := w.Write([]byte(errorText)); err != nil {
		slog.Error("Failed to write error response", "error", err)
	}
}
