package dashboard

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	breaker "github.com/xraph/breaker"
	"github.com/xraph/breaker/logger"
)

// Server streams every registered breaker's snapshots as the dashboard
// feed convention's server-sent events: "data: <json>\n\n" per event.
type Server struct {
	registry *breaker.Registry
	log      logger.Logger
}

// NewServer builds a dashboard Server reading from reg.
func NewServer(reg *breaker.Registry, log logger.Logger) *Server {
	if log == nil {
		log = logger.Noop()
	}
	return &Server{registry: reg, log: log.Named("dashboard")}
}

// Routes mounts the dashboard's HTTP surface onto a chi router: a
// streaming feed and a point-in-time snapshot listing.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/hystrix.stream", s.handleStream)
	r.Get("/instances", s.handleInstances)
	return r
}

// handleStream is the long-lived SSE endpoint dashboards poll.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, `{"error":"streaming unsupported"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := make(chan Envelope, 16)
	unsub := s.registry.OnSnapshot(func(snap breaker.Snapshot) {
		select {
		case events <- Map(snap):
		default:
			// slow consumer: drop rather than block the publishing breaker
		}
	})
	defer unsub()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-events:
			payload, err := json.Marshal(env)
			if err != nil {
				s.log.Error("marshal envelope failed", logger.Error(err))
				continue
			}
			if _, err := w.Write([]byte("data: ")); err != nil {
				return
			}
			if _, err := w.Write(payload); err != nil {
				return
			}
			if _, err := w.Write([]byte("\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// handleInstances returns the current registered-breaker count plus a
// one-shot envelope per breaker, for dashboards that poll instead of
// streaming.
func (s *Server) handleInstances(w http.ResponseWriter, r *http.Request) {
	breakers := s.registry.Breakers()
	envs := make([]Envelope, 0, len(breakers))
	for _, b := range breakers {
		envs = append(envs, Map(b.LatestSnapshot()))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Count     int        `json:"count"`
		Instances []Envelope `json:"instances"`
	}{Count: len(breakers), Instances: envs})
}
