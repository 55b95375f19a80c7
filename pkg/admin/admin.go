// Package admin serves the gateway's HTTP admin surface.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/go-mclib/gateway/pkg/gateway"
	"github.com/go-mclib/gateway/pkg/metrics"
)

// Gateway is what the admin API needs from the server.
type Gateway interface {
	Sessions() []gateway.SessionInfo
	Kick(username, reason string) bool
	Addr() string
}

type API struct {
	gw      Gateway
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func New(gw Gateway, m *metrics.Metrics, logger *zap.Logger) *API {
	return &API{gw: gw, metrics: m, logger: logger}
}

// RegisterRoutes adds the admin routes to router.
func (api *API) RegisterRoutes(router *mux.Router) {
	router.Handle("/metrics", api.metrics.Handler()).Methods("GET")
	router.HandleFunc("/healthz", api.handleHealth).Methods("GET")
	router.HandleFunc("/sessions", api.handleSessions).Methods("GET")
	router.HandleFunc("/sessions/{username}", api.handleKick).Methods("DELETE")
}

func (api *API) Router() *mux.Router {
	router := mux.NewRouter()
	api.RegisterRoutes(router)
	return router
}

func (api *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if api.gw.Addr() == "" {
		api.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not listening"})
		return
	}
	api.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "addr": api.gw.Addr()})
}

func (api *API) handleSessions(w http.ResponseWriter, r *http.Request) {
	api.writeJSON(w, http.StatusOK, api.gw.Sessions())
}

func (api *API) handleKick(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	reason := r.URL.Query().Get("reason")
	if reason == "" {
		reason = "Kicked by an operator."
	}
	if !api.gw.Kick(username, reason) {
		api.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no session for " + username})
		return
	}
	api.logger.Info("kicked via admin api", zap.String("username", username))
	w.WriteHeader(http.StatusNoContent)
}

func (api *API) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		api.logger.Debug("write response", zap.Error(err))
	}
}

// Serve runs the admin API on addr until ctx is done.
func (api *API) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	api.logger.Info("admin api listening", zap.String("addr", addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
