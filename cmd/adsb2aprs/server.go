package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/einsteine77/ADSBtoAPRS/pkg/config"
	"github.com/einsteine77/ADSBtoAPRS/pkg/metadata"
	"github.com/einsteine77/ADSBtoAPRS/pkg/tracker"
)

// statusState tracks connection flags updated from the client callbacks.
type statusState struct {
	started time.Time
	sbsUp   atomic.Bool
	aprsUp  atomic.Bool
}

func newStatusState() *statusState {
	return &statusState{started: time.Now()}
}

func (s *statusState) setSBS(up bool)  { s.sbsUp.Store(up) }
func (s *statusState) setAPRS(up bool) { s.aprsUp.Store(up) }

// statusServer serves the read-only status API consumed by
// bridge-monitor and anything else on the LAN that wants a look.
type statusServer struct {
	cfg       *config.Config
	reg       *tracker.Tracker
	throttler *tracker.Throttler
	poller    *metadata.Poller
	state     *statusState
	router    *chi.Mux
}

// statusResponse is the GET /api/status payload.
type statusResponse struct {
	UptimeSeconds  int64  `json:"uptime_seconds"`
	Tracked        int    `json:"tracked"`
	SBSConnected   bool   `json:"sbs_connected"`
	APRSConnected  bool   `json:"aprs_connected"`
	MetadataOK     bool   `json:"metadata_ok"`
	MetadataCount  int    `json:"metadata_count"`
	PacketsSent    uint64 `json:"packets_sent"`
	PacketsDropped uint64 `json:"packets_dropped"`
	QueueDepth     int    `json:"queue_depth"`
	Created        uint64 `json:"created"`
	Updated        uint64 `json:"updated"`
	Deleted        uint64 `json:"deleted"`
	Renamed        uint64 `json:"renamed"`
}

func newStatusServer(cfg *config.Config, reg *tracker.Tracker, throttler *tracker.Throttler,
	poller *metadata.Poller, state *statusState) *statusServer {

	s := &statusServer{
		cfg:       cfg,
		reg:       reg,
		throttler: throttler,
		poller:    poller,
		state:     state,
		router:    chi.NewRouter(),
	}

	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}))

	s.router.Get("/api/status", s.handleStatus)
	s.router.Get("/api/aircraft", s.handleAircraft)

	return s
}

// run serves until the context ends.
func (s *statusServer) run(ctx context.Context) {
	srv := &http.Server{
		Addr:              s.cfg.Status.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("[API] Status API listening on %s", s.cfg.Status.Listen)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("[API] Server error: %v", err)
	}
}

func (s *statusServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	queued, sent, dropped := s.throttler.Stats()
	created, updated, deleted, renamed := s.reg.Stats()
	health := s.poller.Health()

	writeJSON(w, statusResponse{
		UptimeSeconds:  int64(time.Since(s.state.started).Seconds()),
		Tracked:        s.reg.Count(),
		SBSConnected:   s.state.sbsUp.Load(),
		APRSConnected:  s.state.aprsUp.Load(),
		MetadataOK:     health.OK,
		MetadataCount:  health.Aircraft,
		PacketsSent:    sent,
		PacketsDropped: dropped,
		QueueDepth:     queued,
		Created:        created,
		Updated:        updated,
		Deleted:        deleted,
		Renamed:        renamed,
	})
}

func (s *statusServer) handleAircraft(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.reg.Snapshot())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] Encode error: %v", err)
	}
}
