package app

import (
	"context"
	"encoding/json"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
	"time"
)

const shutdownTimeout = time.Second * 10

// Router exposes the pass trigger, a liveness probe and metrics.
func (a *App) Router() *mux.Router {
	router := mux.NewRouter()
	router.Methods(http.MethodGet).Path("/healthz").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	router.Methods(http.MethodPost).Path("/pass").HandlerFunc(a.handlePass)
	router.Methods(http.MethodGet).Path("/metrics").Handler(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	return router
}

func (a *App) handlePass(w http.ResponseWriter, r *http.Request) {
	summary, err := a.RunPass(r.Context())
	if err != nil && errors.Is(err, ErrPassRunning) {
		a.log.Info("pass rejected", "err", err)
		w.WriteHeader(http.StatusConflict)
		return
	}
	if err != nil {
		a.log.Error("pass failed", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(summary)
	if err != nil {
		a.log.Error("cannot write pass summary", "err", err)
	}
}

// Serve blocks until ctx is cancelled or the listener fails.
func (a *App) Serve(ctx context.Context) error {
	server := &http.Server{Addr: a.cfg.HTTPAddress, Handler: a.Router()}
	errs := make(chan error, 1)
	go func() {
		errs <- server.ListenAndServe()
	}()
	a.log.Info("listening", "address", a.cfg.HTTPAddress)
	select {
	case err := <-errs:
		return errors.Wrap(err, "http server stopped")
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
