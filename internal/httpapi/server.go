package httpapi

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/input"
	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/service"
	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/types"
)

const (
	DefaultInputRate  = rate.Limit(20)
	DefaultInputBurst = 10
)

type Dependencies struct {
	Logger logrus.FieldLogger
	Addr   string

	// Status reports the kiosk loop's published view.
	Status func() service.Status

	// Input receives virtual key presses and card presentations. Nil
	// disables the input routes.
	Input             *input.Queue
	CredentialLengths []int

	InputRate  rate.Limit
	InputBurst int
}

type Server struct {
	httpServer *http.Server
	logger     logrus.FieldLogger
	router     chi.Router
	status     func() service.Status
	input      *input.Queue
	lengths    []int
	limiter    *rate.Limiter
}

func NewServer(d Dependencies) *Server {
	logger := d.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	lengths := d.CredentialLengths
	if len(lengths) == 0 {
		lengths = types.DefaultCredentialLengths
	}
	limit, burst := d.InputRate, d.InputBurst
	if limit <= 0 {
		limit = DefaultInputRate
	}
	if burst <= 0 {
		burst = DefaultInputBurst
	}

	r := chi.NewRouter()
	s := &Server{
		logger:  logger,
		router:  r,
		status:  d.Status,
		input:   d.Input,
		lengths: lengths,
		limiter: rate.NewLimiter(limit, burst),
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(loggingMiddleware(logger))

	r.Get("/v1/status", s.handleStatus)
	r.Route("/v1/input", func(r chi.Router) {
		r.Use(s.requireInput)
		r.Use(s.rateLimit)
		r.Post("/symbol", s.handleSymbol)
		r.Post("/credential", s.handleCredential)
	})

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		writeError(w, r, http.StatusServiceUnavailable, "not_ready", "kiosk not running")
		return
	}
	st := s.status()
	writeBody(w, r, http.StatusOK, map[string]any{
		"state":          st.State,
		"active_records": st.ActiveRecords,
		"capacity":       st.Capacity,
		"steps":          st.Steps,
		"last_outcome":   st.LastOutcome,
		"updated_at":     st.UpdatedAt.UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) handleSymbol(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_body", "invalid request body")
		return
	}

	raw, _ := body["symbol"].(string)
	if len(raw) != 1 {
		writeError(w, r, http.StatusBadRequest, "invalid_symbol", "symbol must be a single keypad character")
		return
	}
	sym, ok := types.ParseSymbol(raw[0])
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid_symbol", "symbol is not on the keypad")
		return
	}

	if err := s.input.PushKey(byte(sym)); err != nil {
		s.queueError(w, r, err)
		return
	}
	writeBody(w, r, http.StatusAccepted, map[string]any{"accepted": true, "symbol": sym.String()})
}

func (s *Server) handleCredential(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_body", "invalid request body")
		return
	}

	raw, _ := body["uid"].(string)
	id, err := types.ParseCredentialID(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_uid", err.Error())
		return
	}
	if !slices.Contains(s.lengths, len(id)) {
		writeError(w, r, http.StatusBadRequest, "invalid_uid", "uid length not accepted by this reader")
		return
	}

	if err := s.input.PushCard(id); err != nil {
		s.queueError(w, r, err)
		return
	}
	writeBody(w, r, http.StatusAccepted, map[string]any{"accepted": true, "uid": id.String()})
}

func (s *Server) queueError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, input.ErrQueueFull) {
		writeError(w, r, http.StatusTooManyRequests, "queue_full", err.Error())
		return
	}
	s.logger.WithError(err).Error("virtual input rejected")
	writeError(w, r, http.StatusInternalServerError, "internal_error", "unexpected server error")
}
