package api

import (
	"Go2AdversaryLab/internal/engine/inspector"
	"Go2AdversaryLab/internal/metrics"
	"Go2AdversaryLab/internal/model"
	"Go2AdversaryLab/internal/notify"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// Server exposes the lab over HTTP.
type Server struct {
	inspector   *inspector.Inspector
	store       model.Store
	broadcaster *notify.Broadcaster
	metrics     *metrics.Metrics
	defaults    model.ProcessingConfig
	logger      *logrus.Logger
	upgrader    websocket.Upgrader
}

// NewServer creates the HTTP front of an inspector. defaults is used for
// analyze requests that come without a body.
func NewServer(insp *inspector.Inspector, store model.Store, broadcaster *notify.Broadcaster,
	m *metrics.Metrics, defaults model.ProcessingConfig, logger *logrus.Logger) *Server {
	return &Server{
		inspector:   insp,
		store:       store,
		broadcaster: broadcaster,
		metrics:     m,
		defaults:    defaults,
		logger:      logger,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/analyze", s.analyze).Methods("POST")
	api.HandleFunc("/stats", s.stats).Methods("GET")
	api.HandleFunc("/results/{mode}", s.results).Methods("GET")

	router.HandleFunc("/ws", s.events).Methods("GET")
	router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	router.HandleFunc("/health", s.health).Methods("GET")

	return router
}

type analyzeResponse struct {
	RunID string `json:"run_id"`
	Mode  string `json:"mode"`
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	cfg := s.defaults
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			writeError(w, http.StatusBadRequest, "invalid processing config: "+err.Error())
			return
		}
	}
	if cfg.ModelGroupName == "" {
		writeError(w, http.StatusBadRequest, "model_group_name must not be empty")
		return
	}

	run := s.inspector.AnalyzeConnections(r.Context(), cfg)
	if errors.Is(run.Err(), inspector.ErrStopped) {
		writeError(w, http.StatusServiceUnavailable, run.Err().Error())
		return
	}
	s.logger.WithFields(logrus.Fields{"run": run.ID, "mode": cfg.Mode()}).Info("Analysis queued.")
	writeJSON(w, http.StatusAccepted, analyzeResponse{RunID: run.ID, Mode: cfg.Mode()})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.inspector.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// results returns the raw result fields of the last training or test phase.
func (s *Server) results(w http.ResponseWriter, r *http.Request) {
	var key string
	switch mux.Vars(r)["mode"] {
	case model.ModeTraining:
		key = model.TrainingResultsKey
	case model.ModeTest:
		key = model.TestResultsKey
	default:
		writeError(w, http.StatusNotFound, "unknown mode")
		return
	}

	fields, err := s.store.Fields(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make(map[string]string, len(fields))
	for field, value := range fields {
		out[field] = string(value)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// events streams every notification to a websocket client until it goes away.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	// Subscribed before the upgrade completes so no event posted after the
	// handshake is missed.
	events, cancel := s.broadcaster.Subscribe()
	defer cancel()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()
	s.logger.Debugf("WebSocket connection established from %s", r.RemoteAddr)

	// Reads only detect the close; clients do not send anything.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(event); err != nil {
				s.logger.Debugf("WebSocket write failed: %v", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
