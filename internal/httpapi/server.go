package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"NoiseGate/internal/domain"
	"NoiseGate/internal/infrastructure/storage"
	"NoiseGate/internal/logging"
	"NoiseGate/internal/usecase"
)

const maxRequestBody = 64 << 10

// Previewer parses a feed on demand.
type Previewer interface {
	Preview(ctx context.Context, req usecase.PreviewRequest) usecase.PreviewResponse
}

// Processor runs one classification pass.
type Processor interface {
	Run(ctx context.Context, cfg usecase.RunConfig) domain.ProcessResult
}

// Ingestor runs one ingestion pass.
type Ingestor interface {
	Run(ctx context.Context) usecase.IngestResult
}

// StatsSource reports store counters.
type StatsSource interface {
	Stats(ctx context.Context) (storage.Stats, error)
}

// Deps groups the use cases exposed over HTTP. Nil entries disable their routes.
type Deps struct {
	Previewer Previewer
	Processor Processor
	Ingestor  Ingestor
	Stats     StatsSource
	Run       usecase.RunConfig
	Logger    *slog.Logger
}

// Server exposes preview, on-demand runs and health over JSON.
type Server struct {
	deps   Deps
	logger *slog.Logger
}

// NewServer builds the HTTP handler.
func NewServer(deps Deps) *Server {
	return &Server{deps: deps, logger: logging.Component(deps.Logger, "http")}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/healthz" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	case r.URL.Path == "/preview" && (r.Method == http.MethodPost || r.Method == http.MethodGet):
		s.handlePreview(w, r)
	case r.URL.Path == "/classify" && r.Method == http.MethodPost:
		s.handleClassify(w, r)
	case r.URL.Path == "/ingest" && r.Method == http.MethodPost:
		s.handleIngest(w, r)
	case r.URL.Path == "/stats" && r.Method == http.MethodGet:
		s.handleStats(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if s.deps.Previewer == nil {
		http.NotFound(w, r)
		return
	}

	var req usecase.PreviewRequest
	if r.Method == http.MethodGet {
		req.FeedURL = r.URL.Query().Get("feedUrl")
		req.URL = r.URL.Query().Get("url")
	} else if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, usecase.PreviewResponse{Items: []domain.CandidateItem{}, Error: "invalid request body"})
		return
	}

	resp := s.deps.Previewer.Preview(r.Context(), req)
	status := http.StatusOK
	switch {
	case resp.Success:
	case resp.Error == usecase.ErrMissingFeedURL.Error():
		status = http.StatusBadRequest
	default:
		status = http.StatusBadGateway
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	if s.deps.Processor == nil {
		http.NotFound(w, r)
		return
	}

	var body struct {
		Trigger json.RawMessage `json:"trigger"`
	}
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	run := s.deps.Run
	run.Trigger = map[string]any{"source": "http", "remote": r.RemoteAddr, "payload": string(body.Trigger)}
	result := s.deps.Processor.Run(r.Context(), run)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ingestor == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Ingestor.Run(r.Context()))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Stats == nil {
		http.NotFound(w, r)
		return
	}
	stats, err := s.deps.Stats.Stats(r.Context())
	if err != nil {
		s.logger.Error("stats failed", "error", err)
		http.Error(w, "stats unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// decodeBody tolerates an empty body.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
