package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// ReadinessFunc reports whether the service can take traffic.
type ReadinessFunc func() error

// probeStatus is the body of /healthz and /readyz.
type probeStatus struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Server serves metrics and probes on a port separate from the API.
type Server struct {
	server *http.Server
}

// NewServer creates the observability server. A nil ready func always
// reports ready.
func NewServer(addr string, ready ReadinessFunc) *Server {
	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           Handler(ready),
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Handler returns the observability mux: /metrics, /healthz and /readyz.
func Handler(ready ReadinessFunc) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeProbe(w, http.StatusOK, probeStatus{Status: "ok"})
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			if err := ready(); err != nil {
				writeProbe(w, http.StatusServiceUnavailable, probeStatus{Status: "not_ready", Reason: err.Error()})
				return
			}
		}
		writeProbe(w, http.StatusOK, probeStatus{Status: "ready"})
	})
	return mux
}

func writeProbe(w http.ResponseWriter, code int, body probeStatus) {
	data, err := sonic.Marshal(body)
	if err != nil {
		http.Error(w, body.Status, code)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}

// Start serves in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Info().Str("addr", s.server.Addr).Msg("Observability server started")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Observability server failed")
		}
	}()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
