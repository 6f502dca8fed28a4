// Package httpapi exposes the dispatcher and ledger reads over JSON.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/arbr39/kaizen/internal/bot"
	"github.com/arbr39/kaizen/internal/dialog"
	"github.com/arbr39/kaizen/internal/domain"
	"github.com/arbr39/kaizen/internal/service"
)

const (
	maxBodyBytes      = 64 << 10
	defaultStatsDays  = 7
	defaultHistoryLen = 20
	maxHistoryLen     = 200
)

// Handler processes chat events. *bot.Dispatcher implements it.
type Handler interface {
	Handle(ctx context.Context, ev bot.Event) (bot.Response, error)
}

type Server struct {
	handler Handler
	ledger  service.LedgerService
	metrics http.Handler
	now     func() time.Time
	loc     *time.Location
	logger  *slog.Logger
}

type Option func(*Server)

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithLocation sets the timezone that decides where "today" starts in
// stats. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(s *Server) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func NewServer(handler Handler, ledger service.LedgerService, opts ...Option) *Server {
	s := &Server{
		handler: handler,
		ledger:  ledger,
		now:     time.Now,
		loc:     time.UTC,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/v1/accounts/{accountID}", func(r chi.Router) {
		r.Post("/events", s.handleEvent)
		r.Get("/balance", s.handleBalance)
		r.Get("/stats", s.handleStats)
		r.Get("/history", s.handleHistory)
	})
	return r
}

// ListenAndServe runs until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http_listening", "addr", addr)
		errCh <- srv.ListenAndServe()
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
		return srv.Shutdown(shutdownCtx)
	}
}

// eventRequest is either free text, parsed like a chat message, or an
// explicit command with an argument. Session and step, copied from the
// reply being answered, make the answer apply to that question only.
type eventRequest struct {
	DisplayName string `json:"display_name"`
	Text        string `json:"text"`
	Command     string `json:"command"`
	Arg         string `json:"arg"`
	Session     string `json:"session"`
	Step        string `json:"step"`
}

type eventResponse struct {
	Text  string        `json:"text,omitempty"`
	Reply *dialog.Reply `json:"reply,omitempty"`
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	var req eventRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var ev bot.Event
	switch {
	case req.Command != "":
		ev = bot.Event{AccountID: accountID, DisplayName: req.DisplayName, Command: req.Command, Arg: req.Arg}
	case req.Text != "":
		ev = bot.ParseText(accountID, req.DisplayName, req.Text)
	default:
		writeError(w, http.StatusBadRequest, "text or command is required")
		return
	}
	ev.At = dialog.Expect{Session: req.Session, Step: req.Step}

	resp, err := s.handler.Handle(r.Context(), ev)
	if err != nil {
		s.logger.Error("http_event_failed", "account", accountID, "command", ev.Command, "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, eventResponse{Text: resp.Text, Reply: resp.Reply})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	balance, err := s.ledger.Balance(r.Context(), accountID)
	if err != nil {
		s.writeLedgerError(w, accountID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account_id": accountID, "balance": balance})
}

type statsResponse struct {
	Balance       int64 `json:"balance"`
	TotalEarned   int64 `json:"total_earned"`
	TotalSpent    int64 `json:"total_spent"`
	EarnedToday   int64 `json:"earned_today"`
	EarnedWindow  int64 `json:"earned_window"`
	WindowDays    int   `json:"window_days"`
	EveningStreak int   `json:"evening_streak"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	days, ok := queryInt(r, "days", defaultStatsDays, 1, 366)
	if !ok {
		writeError(w, http.StatusBadRequest, "days must be between 1 and 366")
		return
	}
	st, err := s.ledger.Stats(r.Context(), accountID, s.now().In(s.loc), days)
	if err != nil {
		s.writeLedgerError(w, accountID, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Balance:       st.Balance,
		TotalEarned:   st.TotalEarned,
		TotalSpent:    st.TotalSpent,
		EarnedToday:   st.EarnedToday,
		EarnedWindow:  st.EarnedWindow,
		WindowDays:    st.WindowDays,
		EveningStreak: st.EveningStreak,
	})
}

type transactionJSON struct {
	ID          string    `json:"id"`
	Amount      int64     `json:"amount"`
	Trigger     string    `json:"trigger"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	limit, ok := queryInt(r, "limit", defaultHistoryLen, 1, maxHistoryLen)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and 200")
		return
	}
	txs, err := s.ledger.History(r.Context(), accountID, limit)
	if err != nil {
		s.writeLedgerError(w, accountID, err)
		return
	}
	out := make([]transactionJSON, 0, len(txs))
	for _, tx := range txs {
		out = append(out, transactionJSON{
			ID:          tx.ID,
			Amount:      tx.Amount,
			Trigger:     string(tx.Trigger),
			Description: tx.Description,
			CreatedAt:   tx.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

func (s *Server) writeLedgerError(w http.ResponseWriter, accountID string, err error) {
	if errors.Is(err, domain.ErrAccountNotFound) {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}
	s.logger.Error("http_ledger_failed", "account", accountID, "error", err.Error())
	writeError(w, http.StatusInternalServerError, "internal error")
}

func queryInt(r *http.Request, key string, def, min, max int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min || n > max {
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
