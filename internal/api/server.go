// Package api provides the HTTP surface spec §6 and SPEC_FULL's
// domain-stack expansion name for a running cluster: liveness, current
// membership, a graceful-leave trigger, and Prometheus metrics. Grounded on the teacher's
// internal/api/server.go chi-router style — middleware stack, a small
// writeJSON helper, and a metrics-enabled toggle — rebuilt around a
// single reactor.Cluster instead of an inference engine pool.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tutu-network/swimcluster/internal/reactor"
)

// Server is the swimnode HTTP API server.
type Server struct {
	cluster        *reactor.Cluster
	metricsEnabled bool
}

// NewServer creates a Server reporting on cluster.
func NewServer(cluster *reactor.Cluster) *Server {
	return &Server{cluster: cluster}
}

// EnableMetrics mounts the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/members", s.handleMembers)
	r.Post("/leave", s.handleLeave)

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

type memberView struct {
	HostKey     string `json:"host_key"`
	Address     string `json:"address,omitempty"`
	Incarnation uint64 `json:"incarnation"`
	State       string `json:"state"`
}

func (s *Server) handleMembers(w http.ResponseWriter, req *http.Request) {
	members := s.cluster.Members()
	views := make([]memberView, len(members))
	for i, m := range members {
		addr := ""
		if m.Address != nil {
			addr = m.Address.String()
		}
		views[i] = memberView{
			HostKey:     m.HostKey.String(),
			Address:     addr,
			Incarnation: m.Incarnation,
			State:       m.State.String(),
		}
	}
	writeJSON(w, http.StatusOK, views)
}

// handleLeave triggers a graceful Leave (spec §6's cluster.leave): self
// transitions to Left and is gossiped, but the process keeps running
// until its operator stops it.
func (s *Server) handleLeave(w http.ResponseWriter, req *http.Request) {
	s.cluster.Leave()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "leaving"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
