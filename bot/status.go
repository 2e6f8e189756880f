package bot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"modlog-bot/scanner"
	"modlog-bot/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type sweepStatus struct {
	Rule     string    `json:"rule"`
	Started  time.Time `json:"started"`
	TookMS   int64     `json:"took_ms"`
	Scanned  int       `json:"scanned"`
	Expired  int       `json:"expired"`
	Reversed int       `json:"reversed"`
	Failed   int       `json:"failed"`
}

type healthResponse struct {
	Status     string        `json:"status"`
	LastSweeps []sweepStatus `json:"last_sweeps"`
}

// NewStatusRouter serves Prometheus metrics and a health check that
// reports the most recent expiry sweep.
func NewStatusRouter(gatherer prometheus.Gatherer, lastRun func() []scanner.SweepStats) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		resp := healthResponse{Status: "ok", LastSweeps: []sweepStatus{}}
		for _, st := range lastRun() {
			resp.LastSweeps = append(resp.LastSweeps, sweepStatus{
				Rule:     st.Rule,
				Started:  st.Started,
				TookMS:   st.Took.Milliseconds(),
				Scanned:  st.Scanned,
				Expired:  st.Expired,
				Reversed: st.Reversed,
				Failed:   st.Failed,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
	return r
}

// StatusServer runs the status router on its own listener.
type StatusServer struct {
	srv *http.Server
}

func NewStatusServer(addr string, handler http.Handler) *StatusServer {
	return &StatusServer{srv: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

func (s *StatusServer) Start() {
	go func() {
		utils.Log.WithField("addr", s.srv.Addr).Info("Status server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Log.WithError(err).Error("Status server stopped")
		}
	}()
}

func (s *StatusServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
