package viewer

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"keepsake/internal/logging"
	"keepsake/internal/playback"
)

// Options configures the viewer server.
type Options struct {
	Bind  string
	Token string
}

// Server exposes one playback engine over HTTP.
type Server struct {
	engine   *playback.Engine
	opts     Options
	logger   *slog.Logger
	metrics  *Metrics
	registry *prometheus.Registry
	router   *mux.Router
	upgrader websocket.Upgrader

	listener net.Listener
}

// New builds the server around an engine the caller retains ownership of.
func New(engine *playback.Engine, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	registry := prometheus.NewRegistry()
	s := &Server{
		engine:   engine,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "viewer"),
		metrics:  NewMetrics(registry),
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler, exported for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := router.PathPrefix("/playback").Subrouter()
	api.Use(s.authMiddleware)
	api.HandleFunc("", s.handleSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/commands", s.handleCommand).Methods(http.MethodPost)
	api.HandleFunc("/stream", s.handleStream).Methods(http.MethodGet)
	return router
}

// authMiddleware enforces the bearer token when one is configured.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Token == "" {
			next.ServeHTTP(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header || subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.Token)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

type commandRequest struct {
	Command string   `json:"command"`
	Volume  *float64 `json:"volume,omitempty"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid command body")
		return
	}

	var err error
	switch req.Command {
	case "set-volume":
		if req.Volume == nil {
			writeError(w, http.StatusBadRequest, "set-volume requires a volume")
			s.metrics.recordCommand(req.Command, "rejected")
			return
		}
		s.engine.SetVolume(*req.Volume)
	case "toggle-audio":
		s.engine.ToggleAudio()
	default:
		err = s.engine.Apply(req.Command)
	}

	if err != nil {
		s.metrics.recordCommand(req.Command, "rejected")
		status := http.StatusConflict
		if errors.Is(err, playback.ErrUnknownCommand) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	s.metrics.recordCommand(req.Command, "applied")
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

// handleStream upgrades to a websocket and pushes every snapshot change. The
// subscription is cancelled when the client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	snapshots, cancel := s.engine.Subscribe()
	defer cancel()

	s.metrics.streamClients.Inc()
	defer s.metrics.streamClients.Dec()

	// Reader goroutine: detects client disconnect, ignores client frames.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
			s.metrics.snapshotsSent.Inc()
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.opts.Bind)
	if err != nil {
		return err
	}
	s.listener = listener

	server := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()
	s.logger.Info("viewer listening", logging.String("addr", listener.Addr().String()))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Addr returns the bound address once Run has started listening.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
