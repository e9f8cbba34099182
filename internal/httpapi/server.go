// Package httpapi serves a Generator over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paraglidehq/snowflake"
)

// DefaultMaxCount bounds the count parameter of /next.
const DefaultMaxCount = 1000

// Config holds Server dependencies. Gatherer may be nil, in which case
// /metrics is not registered.
type Config struct {
	Generator *snowflake.Generator
	Format    snowflake.Format
	MaxCount  int
	Gatherer  prometheus.Gatherer
	Logger    *slog.Logger
}

type Server struct {
	gen      *snowflake.Generator
	format   snowflake.Format
	maxCount int
	logger   *slog.Logger
	mux      *http.ServeMux
	srv      *http.Server
}

func New(cfg Config) *Server {
	s := &Server{
		gen:      cfg.Generator,
		format:   cfg.Format,
		maxCount: cfg.MaxCount,
		logger:   cfg.Logger,
		mux:      http.NewServeMux(),
	}
	if s.format == "" {
		s.format = snowflake.DefaultFormat
	}
	if s.maxCount <= 0 {
		s.maxCount = DefaultMaxCount
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "httpapi")

	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /next", s.handleNext)
	s.mux.HandleFunc("GET /decode/{id...}", s.handleDecode)
	if cfg.Gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	s.srv = &http.Server{Handler: s.mux, ReadHeaderTimeout: 10 * time.Second}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}

func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.logger.Info("listening", "addr", l.Addr().String())
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := s.srv.Shutdown(cctx)
		<-errCh
		return err
	case err := <-errCh:
		return err
	}
}

type healthResp struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
	Node    int64  `json:"node"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResp{
		Status:  "ok",
		Backend: s.gen.Backend(),
		Node:    s.gen.Node(),
	})
}

type nextResp struct {
	IDs []string `json:"ids"`
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := s.formatParam(q.Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	count := 1
	if v := q.Get("count"); v != "" {
		count, err = strconv.Atoi(v)
		if err != nil || count < 1 || count > s.maxCount {
			writeError(w, http.StatusBadRequest, "count must be between 1 and "+strconv.Itoa(s.maxCount))
			return
		}
	}

	resp := nextResp{IDs: make([]string, 0, count)}
	for range count {
		id, err := s.gen.Create()
		if err != nil {
			s.writeMintError(w, err)
			return
		}
		resp.IDs = append(resp.IDs, id.Format(format))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeMintError(w http.ResponseWriter, err error) {
	var regression *snowflake.ClockRegressionError
	switch {
	case errors.As(err, &regression):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, snowflake.ErrLockUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error("mint failed", "err", err)
		writeError(w, http.StatusInternalServerError, "mint failed")
	}
}

type decodeResp struct {
	ID        string    `json:"id"`
	Decimal   string    `json:"decimal"`
	Layout    string    `json:"layout"`
	Timestamp time.Time `json:"timestamp"`
	Millis    int64     `json:"millis"`
	Node      int64     `json:"node"`
	Sequence  int64     `json:"sequence"`
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	format, err := s.formatParam(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	layout, err := snowflake.ParseLayout(r.URL.Query().Get("layout"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	raw := r.PathValue("id")
	id, err := snowflake.ParseFormatted(raw, format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, decodeResp{
		ID:        raw,
		Decimal:   strconv.FormatInt(id.Int64(), 10),
		Layout:    layout.String(),
		Timestamp: layout.Timestamp(id).UTC(),
		Millis:    layout.Millis(id),
		Node:      layout.Node(id),
		Sequence:  layout.Sequence(id),
	})
}

func (s *Server) formatParam(v string) (snowflake.Format, error) {
	if v == "" {
		return s.format, nil
	}
	return snowflake.ParseFormat(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
