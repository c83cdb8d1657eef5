// Package server exposes registered filters over HTTP.
//
// Routes:
//
//	GET /filters                   registered filters and their fingerprints
//	GET /filters/{name}/params     wire parameters of one filter
//	GET /filters/{name}/rows?...   rows matching the query parameters
//
// Rejected requests answer 422 with the aggregated validation report.
// Any other failure is a server fault and answers 500.
package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/roach88/sift/internal/filter"
	"github.com/roach88/sift/internal/querysql"
	"github.com/roach88/sift/internal/schema"
	"github.com/roach88/sift/internal/store"
	"github.com/roach88/sift/internal/transport"
)

// RequestIDHeader carries the request id on every response.
const RequestIDHeader = "X-Request-Id"

// Lister runs a compiled select. *store.Store implements it.
type Lister interface {
	Dialect() querysql.Dialect
	List(ctx context.Context, sel querysql.Select) ([]store.Row, error)
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithIDGenerator overrides the request id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Server) { s.ids = g }
}

// WithIgnoreUnknown drops undeclared query parameters instead of
// rejecting the request.
func WithIgnoreUnknown(ignore bool) Option {
	return func(s *Server) { s.ignoreUnknown = ignore }
}

// WithMaxRows caps the rows returned per request. Zero means no cap.
func WithMaxRows(n int) Option {
	return func(s *Server) { s.maxRows = n }
}

// Server serves the filters of a registry against a store.
type Server struct {
	registry      *schema.Registry
	store         Lister
	logger        *slog.Logger
	ids           IDGenerator
	ignoreUnknown bool
	maxRows       int
}

// New creates a Server. The registry must not change afterwards.
func New(reg *schema.Registry, st Lister, opts ...Option) *Server {
	s := &Server{
		registry: reg,
		store:    st,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		ids:      UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler with request logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /filters", s.handleFilters)
	mux.HandleFunc("GET /filters/{name}/params", s.handleParams)
	mux.HandleFunc("GET /filters/{name}/rows", s.handleRows)
	return s.withRequestLog(mux)
}

// FilterSummary describes one registered filter.
type FilterSummary struct {
	Name        string `json:"name"`
	Entity      string `json:"entity"`
	Fingerprint string `json:"fingerprint"`
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	names := s.registry.Names()
	out := make([]FilterSummary, 0, len(names))
	for _, name := range names {
		def, _ := s.registry.Get(name)
		out = append(out, FilterSummary{Name: name, Entity: def.Entity().Name, Fingerprint: def.Fingerprint()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"filters": out})
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	def, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"filter": def.Name(),
		"params": transport.ShadowOf(def).Params(),
	})
}

// RowsResponse is the body of a successful rows request.
type RowsResponse struct {
	Filter    string      `json:"filter"`
	Count     int         `json:"count"`
	Rows      []store.Row `json:"rows"`
	RequestID string      `json:"request_id"`
}

func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	def, ok := s.lookup(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	reqID := requestID(ctx)

	var bindOpts []transport.Option
	if s.ignoreUnknown {
		bindOpts = append(bindOpts, transport.IgnoreUnknown())
	}
	req, err := transport.ShadowOf(def).Bind(r.URL.Query(), bindOpts...)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	sel := querysql.NewSelect(s.store.Dialect(), querysql.SourceOf(def.Entity()))
	if s.maxRows > 0 {
		sel = sel.Limit(s.maxRows)
	}
	q, err := req.Apply(sel)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	rows, err := s.store.List(ctx, q.(querysql.Select))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.DebugContext(ctx, "rows listed", "request_id", reqID, "filter", def.Name(), "rows", len(rows))
	writeJSON(w, http.StatusOK, RowsResponse{Filter: def.Name(), Count: len(rows), Rows: rows, RequestID: reqID})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*schema.Definition, bool) {
	name := r.PathValue("name")
	def, ok := s.registry.Get(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error:     "unknown filter " + name,
			RequestID: requestID(r.Context()),
		})
		return nil, false
	}
	return def, true
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string                  `json:"error"`
	Report    *filter.ValidationError `json:"report,omitempty"`
	RequestID string                  `json:"request_id"`
}

// fail answers 422 for client-caused errors and 500 for everything else.
// Server faults are logged; their details stay out of the response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	reqID := requestID(r.Context())
	if re, ok := transport.AsRequestError(err); ok {
		writeJSON(w, re.StatusCode(), ErrorResponse{Error: "invalid request", Report: re.Report, RequestID: reqID})
		return
	}
	s.logger.ErrorContext(r.Context(), "request failed", "request_id", reqID, "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error", RequestID: reqID})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type ctxKey struct{}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withRequestLog assigns a request id and logs one line per request.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := s.ids.Generate()
		w.Header().Set(RequestIDHeader, id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))

		s.logger.InfoContext(r.Context(), "request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
