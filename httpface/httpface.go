// Package httpface implements the SSE façade spec.md §6 describes as
// "outside the core but consumes it": POST /analyze, GET
// /sessions/{id}/stream, and GET /sessions/{id}/status. Grounded on
// testforge-hq-testforge's internal/api/router.go for the chi middleware
// stack and route layout, adapted to this module's stack (slog instead of
// zap, no Postgres/Temporal) and to a single background orchestrator run
// per upload instead of a durable workflow engine.
package httpface

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/goreliks/pdf-hunter-go/domainmodel"
	"github.com/goreliks/pdf-hunter-go/health"
	"github.com/goreliks/pdf-hunter-go/orchestrator"
	"github.com/goreliks/pdf-hunter-go/session"
	"github.com/goreliks/pdf-hunter-go/types"
)

// RunStatus mirrors the four states spec.md §6's status endpoint reports.
type RunStatus string

const (
	StatusPending  RunStatus = "PENDING"
	StatusRunning  RunStatus = "RUNNING"
	StatusComplete RunStatus = "COMPLETE"
	StatusFailed   RunStatus = "FAILED"
)

// Config configures a Server.
type Config struct {
	// UploadDir receives uploaded PDFs before a session directory exists
	// for them. Defaults to os.TempDir() when empty.
	UploadDir string

	// OutputDirectory is passed through to every RunInput unless the
	// caller's multipart form overrides it.
	OutputDirectory string

	// Redis, when set, backs the SSE broadcaster with pub/sub so a
	// session's stream can be served from a different replica than the
	// one running its orchestration, per testforge-hq-testforge's
	// redis/cache.go connectivity pattern.
	Redis *redis.Client

	EnableCORS bool
	Logger     *slog.Logger
}

// runRecord tracks one upload's lifecycle from PENDING through
// COMPLETE/FAILED. uploadID is assigned immediately; sessionID is filled
// in once setup_session derives it, implementing spec.md §6's "session ID
// redirect": the status endpoint returns both ids once both are known.
type runRecord struct {
	mu        sync.RWMutex
	uploadID  string
	sessionID string
	status    RunStatus
	errMsg    string
}

func (r *runRecord) snapshot() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[string]any{"upload_id": r.uploadID, "status": r.status}
	if r.sessionID != "" {
		out["session_id"] = r.sessionID
	}
	if r.errMsg != "" {
		out["error"] = r.errMsg
	}
	return out
}

// Server wires chi routing, the orchestrator, and the SSE broadcaster
// together. It owns one in-memory registry of in-flight and completed
// runs; a restart loses status for runs it didn't persist to disk,
// matching this module's single-process deployment scope.
type Server struct {
	chi.Router

	cfg         Config
	deps        orchestrator.Deps
	broadcaster *Broadcaster
	logger      *slog.Logger

	mu   sync.RWMutex
	runs map[string]*runRecord
}

// NewServer builds the chi router and registers the three façade routes.
func NewServer(cfg Config, deps orchestrator.Deps) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = os.TempDir()
	}

	s := &Server{
		cfg:         cfg,
		deps:        deps,
		broadcaster: NewBroadcaster(cfg.Redis),
		logger:      cfg.Logger,
		runs:        make(map[string]*runRecord),
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(5 * time.Minute))

	if cfg.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/health", s.handleHealth)
	r.Post("/analyze", s.handleAnalyze)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/stream", s.handleStream)
		r.Get("/status", s.handleStatus)
	})

	s.Router = r
	return s
}

// handleHealth reports whether the external scanners Agent B shells out to
// are actually on PATH and the upload directory is writable, using the
// same health.BinaryCheck/FileCheck/Combine building blocks the teacher
// ships for verifying tool dependencies before a mission runs.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := []types.HealthStatus{health.FileCheck(s.cfg.UploadDir)}
	for _, binary := range s.scannerBinaries() {
		checks = append(checks, health.BinaryCheck(binary))
	}

	overall := health.Combine(checks...)

	status := http.StatusOK
	if overall.Status == types.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, overall)
}

func (s *Server) scannerBinaries() []string {
	var binaries []string
	scanners := s.deps.FileAnalysis.Scanners
	if scanners.PDFID != nil {
		binaries = append(binaries, scanners.PDFID.Binary)
	}
	if scanners.PDFParser != nil {
		binaries = append(binaries, scanners.PDFParser.Binary)
	}
	if scanners.PeePDF != nil {
		binaries = append(binaries, scanners.PeePDF.Binary)
	}
	return binaries
}

// handleAnalyze implements POST /analyze: accepts a multipart PDF upload
// plus pages_to_process (required) and additional_context/session_id/
// output_directory (optional), starts a background orchestrator.Run, and
// immediately returns an upload_id.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	pages, err := strconv.Atoi(r.FormValue("pages_to_process"))
	if err != nil || pages < 1 {
		http.Error(w, "pages_to_process must be a positive integer", http.StatusBadRequest)
		return
	}

	dst, err := os.CreateTemp(s.cfg.UploadDir, "pdfhunter-upload-*.pdf")
	if err != nil {
		http.Error(w, "failed to stage upload", http.StatusInternalServerError)
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		http.Error(w, "failed to stage upload", http.StatusInternalServerError)
		return
	}
	dst.Close()

	outputDir := r.FormValue("output_directory")
	if outputDir == "" {
		outputDir = s.cfg.OutputDirectory
	}

	input := domainmodel.RunInput{
		FilePath:          dst.Name(),
		PagesToProcess:    pages,
		AdditionalContext: r.FormValue("additional_context"),
		SessionID:         r.FormValue("session_id"),
		OutputDirectory:   outputDir,
	}

	uploadID := uuid.NewString()
	rec := &runRecord{uploadID: uploadID, status: StatusPending}

	s.mu.Lock()
	s.runs[uploadID] = rec
	s.mu.Unlock()

	go s.run(context.Background(), rec, input)

	writeJSON(w, http.StatusAccepted, map[string]string{"upload_id": uploadID})
}

// run drives one orchestrator.Run to completion, tailing its session log
// into the broadcaster as it's written and updating rec's terminal status.
func (s *Server) run(ctx context.Context, rec *runRecord, input domainmodel.RunInput) {
	rec.mu.Lock()
	rec.status = StatusRunning
	rec.mu.Unlock()

	tailCtx, stopTail := context.WithCancel(ctx)
	defer stopTail()

	deps := s.deps
	deps.OnSessionReady = func(sess domainmodel.Session) {
		rec.mu.Lock()
		rec.sessionID = sess.SessionID
		rec.mu.Unlock()

		s.mu.Lock()
		s.runs[sess.SessionID] = rec
		s.mu.Unlock()

		go s.tail(tailCtx, session.LogPath(sess), rec)
	}

	state, err := orchestrator.Run(ctx, deps, input)

	rec.mu.Lock()
	if state != nil {
		rec.sessionID = state.SessionID
	}
	if err != nil {
		rec.status = StatusFailed
		rec.errMsg = err.Error()
	} else {
		rec.status = StatusComplete
	}
	rec.mu.Unlock()
}

// tail polls logPath for newly appended lines and publishes each one
// under both the upload id and the canonical session id, so a client that
// subscribed before the session id was known keeps receiving events.
func (s *Server) tail(ctx context.Context, logPath string, rec *runRecord) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	var offset int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f, err := os.Open(logPath)
			if err != nil {
				continue
			}
			if _, err := f.Seek(offset, io.SeekStart); err != nil {
				f.Close()
				continue
			}
			scanner := bufio.NewScanner(f)
			scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
			for scanner.Scan() {
				line := append([]byte(nil), scanner.Bytes()...)
				rec.mu.RLock()
				uploadID, sessionID := rec.uploadID, rec.sessionID
				rec.mu.RUnlock()
				s.broadcaster.Publish(ctx, uploadID, line)
				if sessionID != "" && sessionID != uploadID {
					s.broadcaster.Publish(ctx, sessionID, line)
				}
			}
			if pos, err := f.Seek(0, io.SeekCurrent); err == nil {
				offset = pos
			}
			f.Close()
		}
	}
}

// handleStream implements GET /sessions/{id}/stream: text/event-stream
// with a ~30s keepalive comment between real events, per spec.md §6.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch, unsubscribe := s.broadcaster.Subscribe(r.Context(), id)
	defer unsubscribe()

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case data, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write([]byte("data: ")); err != nil {
				return
			}
			if _, err := w.Write(data); err != nil {
				return
			}
			if _, err := w.Write([]byte("\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case <-keepalive.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// handleStatus implements GET /sessions/{id}/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.RLock()
	rec, ok := s.runs[id]
	s.mu.RUnlock()
	if !ok {
		http.Error(w, "unknown session or upload id", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, rec.snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
