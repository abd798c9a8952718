package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"dops/internal/cache"
	"dops/internal/core"
	"dops/internal/services"
	"dops/internal/storage"
)

// TaskService is the task surface the handlers need; satisfied by
// *services.TaskService.
type TaskService interface {
	CreateTask(ctx context.Context, t core.Task) (core.Task, error)
	UpdateTask(ctx context.Context, t core.Task) (core.Task, error)
	GetTask(ctx context.Context, id int64) (core.Task, error)
	ListTasks(ctx context.Context, f storage.TaskFilter) ([]core.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	SettleTasks(ctx context.Context, ids []int64, status core.SettleStatus) (int64, error)
	SummarizeTasks(ctx context.Context, f storage.TaskFilter, key core.SummaryKey) ([]core.Bucket, error)
}

// LedgerService is the ledger surface the handlers need; satisfied by
// *services.LedgerService.
type LedgerService interface {
	CreateEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error)
	CreateDutchPay(ctx context.Context, in services.DutchPayInput) (core.LedgerEntry, error)
	UpdateEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error)
	DeleteEntry(ctx context.Context, id int64) error
	GetEntry(ctx context.Context, id int64) (core.LedgerEntry, error)
	ListEntries(ctx context.Context, f storage.LedgerFilter) ([]core.LedgerEntry, error)
	SummarizeLedger(ctx context.Context, f storage.LedgerFilter, key core.LedgerKey) ([]core.LedgerBucket, error)
}

// Store covers the straight CRUD surfaces that go directly to storage:
// clients, settings, recurring templates and birthday settings.
type Store interface {
	CreateClient(ctx context.Context, c core.Client) (core.Client, error)
	GetClient(ctx context.Context, id int64) (core.Client, error)
	ListClients(ctx context.Context) ([]core.Client, error)
	UpdateClient(ctx context.Context, c core.Client) error
	DeleteClient(ctx context.Context, id int64) error

	GetSettings(ctx context.Context) (core.Settings, error)
	UpdateSettings(ctx context.Context, s core.Settings) error

	CreateTemplate(ctx context.Context, rt core.RecurringTemplate) (core.RecurringTemplate, error)
	GetTemplate(ctx context.Context, id int64) (core.RecurringTemplate, error)
	ListTemplates(ctx context.Context, activeOnly bool) ([]core.RecurringTemplate, error)
	UpdateTemplate(ctx context.Context, rt core.RecurringTemplate) error
	SetTemplateActive(ctx context.Context, id int64, active bool) error

	UpsertBirthday(ctx context.Context, b core.BirthdaySetting) (core.BirthdaySetting, error)
	ListBirthdays(ctx context.Context) ([]storage.BirthdayRow, error)
	DeleteBirthday(ctx context.Context, id int64) error

	Ping(ctx context.Context) error
}

type Server struct {
	http.Server
	tasks  TaskService
	ledger LedgerService
	store  Store

	rateLimiter *rateLimiter

	// Read-through caches for the two hot lookups: the client list
	// (rendered on every task row) and the default rates.
	clientsCache  *cache.LRU[[]core.Client]
	settingsCache *cache.LRU[core.Settings]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

const clientsCacheKey = "clients"
const settingsCacheKey = "settings"

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, tasks TaskService, ledger LedgerService, store Store) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		tasks:            tasks,
		ledger:           ledger,
		store:            store,
		rateLimiter:      newRateLimiter(),
		clientsCache:     cache.NewLRU[[]core.Client](4, 5*time.Minute),
		settingsCache:    cache.NewLRU[core.Settings](2, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /tasks", s.with(s.handleCreateTask))
	mux.HandleFunc("GET /tasks", s.with(s.handleListTasks))
	mux.HandleFunc("GET /tasks/{id}", s.with(s.handleGetTask))
	mux.HandleFunc("PUT /tasks/{id}", s.with(s.handleUpdateTask))
	mux.HandleFunc("DELETE /tasks/{id}", s.with(s.handleDeleteTask))
	mux.HandleFunc("POST /tasks/settle", s.with(s.handleSettleTasks))

	mux.HandleFunc("POST /clients", s.with(s.handleCreateClient))
	mux.HandleFunc("GET /clients", s.with(s.handleListClients))
	mux.HandleFunc("GET /clients/{id}", s.with(s.handleGetClient))
	mux.HandleFunc("PUT /clients/{id}", s.with(s.handleUpdateClient))
	mux.HandleFunc("DELETE /clients/{id}", s.with(s.handleDeleteClient))

	mux.HandleFunc("POST /ledger", s.with(s.handleCreateEntry))
	mux.HandleFunc("POST /ledger/dutch-pay", s.with(s.handleDutchPay))
	mux.HandleFunc("GET /ledger", s.with(s.handleListEntries))
	mux.HandleFunc("GET /ledger/{id}", s.with(s.handleGetEntry))
	mux.HandleFunc("PUT /ledger/{id}", s.with(s.handleUpdateEntry))
	mux.HandleFunc("DELETE /ledger/{id}", s.with(s.handleDeleteEntry))

	mux.HandleFunc("POST /recurring", s.with(s.handleCreateTemplate))
	mux.HandleFunc("GET /recurring", s.with(s.handleListTemplates))
	mux.HandleFunc("GET /recurring/{id}", s.with(s.handleGetTemplate))
	mux.HandleFunc("PUT /recurring/{id}", s.with(s.handleUpdateTemplate))
	mux.HandleFunc("DELETE /recurring/{id}", s.with(s.handleDeactivateTemplate))

	mux.HandleFunc("PUT /birthdays", s.with(s.handleUpsertBirthday))
	mux.HandleFunc("GET /birthdays", s.with(s.handleListBirthdays))
	mux.HandleFunc("DELETE /birthdays/{id}", s.with(s.handleDeleteBirthday))

	mux.HandleFunc("GET /settings", s.with(s.handleGetSettings))
	mux.HandleFunc("PUT /settings", s.with(s.handleUpdateSettings))

	mux.HandleFunc("GET /summary/tasks", s.with(s.handleTaskSummary))
	mux.HandleFunc("GET /summary/ledger", s.with(s.handleLedgerSummary))

	return s
}

// with adds security headers, request-id logging and rate limiting on
// mutating methods.
func (s *Server) with(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if mutating(r.Method) && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

type ctxKey string

const requestIDKey ctxKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "database not reachable")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleaned := s.clientsCache.CleanExpired() + s.settingsCache.CleanExpired()
			if cleaned > 0 {
				slog.Debug("Cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown stops the background goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
