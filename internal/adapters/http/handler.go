package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/whitman-labs/parley/internal/app/chat"
	"github.com/whitman-labs/parley/internal/app/history"
	"github.com/whitman-labs/parley/internal/domain"
)

// Server exposes the controller operations and the history projection to
// the browser front-end. Each caller gets its own controller and
// projection, keyed by identity.
type Server struct {
	registry *chat.Registry
	store    domain.ChatStore

	mu          sync.Mutex
	projections map[domain.UserID]*history.Projection
}

func NewServer(registry *chat.Registry, store domain.ChatStore) http.Handler {
	s := &Server{
		registry:    registry,
		store:       store,
		projections: make(map[domain.UserID]*history.Projection),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(withCORS)
	r.Use(withObservability)
	r.Use(withIdentity)

	r.Route("/api", func(api chi.Router) {
		api.Get("/healthz", s.handleHealthz)

		api.Get("/chats", s.handleListChats)
		api.Get("/chats/{id}", s.handleGetChat)
		api.Delete("/chats/{id}", s.handleDeleteChat)

		api.Post("/chat/submit", s.handleSubmit)
		api.Post("/chat/select", s.handleSelect)
		api.Get("/chat/state", s.handleState)
	})

	return r
}

func (s *Server) projectionFor(user domain.UserID) *history.Projection {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.projections[user]; ok {
		return p
	}
	p := history.NewProjection(s.store, user)
	s.projections[user] = p
	return p
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type messageResponse struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type summaryResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Preview   string    `json:"preview"`
	UpdatedAt time.Time `json:"updated_at"`
}

type stateResponse struct {
	ActiveID string            `json:"active_id"`
	Pending  bool              `json:"pending"`
	Messages []messageResponse `json:"messages"`
}

type sessionResponse struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Preview   string            `json:"preview"`
	Messages  []messageResponse `json:"messages"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type submitRequest struct {
	Text string `json:"text"`
}

type submitResponse struct {
	Reply  messageResponse `json:"reply"`
	Saved  bool            `json:"saved"`
	Notice string          `json:"notice,omitempty"`
}

type selectRequest struct {
	ID string `json:"id"`
}

// ─────────────────────────────────────────────
// Handlers
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	reply, err := s.registry.For(user).Submit(r.Context(), req.Text)
	if err == nil {
		writeJSON(w, http.StatusOK, submitResponse{Reply: toMessageResponse(reply), Saved: true})
		return
	}

	switch domain.KindOf(err) {
	case domain.KindStoreUnavailable, domain.KindNotFound:
		// Best-effort policy: the exchange is kept locally even though the
		// save failed. Non-blocking notice, not a failure.
		writeJSON(w, http.StatusOK, submitResponse{
			Reply:  toMessageResponse(reply),
			Saved:  false,
			Notice: "conversation was not saved, you may continue",
		})
	case domain.KindUpstream:
		writeError(w, http.StatusBadGateway, "message was not sent")
	default:
		s.writeFailure(w, err)
	}
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	ctrl := s.registry.For(user)
	if err := ctrl.SelectSession(r.Context(), domain.SessionID(req.ID)); err != nil {
		s.writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toStateResponse(ctrl.State()))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	writeJSON(w, http.StatusOK, toStateResponse(s.registry.For(user).State()))
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	p := s.projectionFor(user)
	if err := p.Refresh(r.Context()); err != nil {
		s.writeFailure(w, err)
		return
	}

	entries := p.Entries()
	out := make([]summaryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, summaryResponse{
			ID:        string(e.ID),
			Title:     e.Title,
			Preview:   e.Preview,
			UpdatedAt: e.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	id := domain.SessionID(chi.URLParam(r, "id"))
	sess, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	// Ownership is also enforced store-side; this keeps one user's record
	// out of another user's hands even with a guessed id.
	if sess.OwnerID != user {
		writeError(w, http.StatusNotFound, "session no longer exists")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		ID:        string(sess.ID),
		Title:     sess.Title,
		Preview:   sess.LastMessagePreview,
		Messages:  toMessagesResponse(sess.Messages),
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
	})
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	id := domain.SessionID(chi.URLParam(r, "id"))

	// Same ownership rule as the read path. A record that is already gone
	// keeps the delete idempotent; someone else's record looks like a miss.
	sess, err := s.store.Get(r.Context(), id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.projectionFor(user).Forget(id)
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		s.writeFailure(w, err)
		return
	case sess.OwnerID != user:
		writeError(w, http.StatusNotFound, "session no longer exists")
		return
	}

	if err := s.registry.For(user).DeleteSession(r.Context(), id); err != nil {
		s.writeFailure(w, err)
		return
	}

	s.projectionFor(user).Forget(id)
	w.WriteHeader(http.StatusNoContent)
}

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

func toMessageResponse(m domain.Message) messageResponse {
	return messageResponse{Role: string(m.Role), Content: m.Content}
}

func toMessagesResponse(msgs []domain.Message) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m))
	}
	return out
}

func toStateResponse(st chat.State) stateResponse {
	activeID := string(domain.SentinelNewSession)
	if st.ActiveID != "" {
		activeID = string(st.ActiveID)
	}
	return stateResponse{
		ActiveID: activeID,
		Pending:  st.Pending,
		Messages: toMessagesResponse(st.Transcript),
	}
}

// writeFailure converts classified errors to HTTP statuses. Nothing from
// the store or network escapes as an unhandled fault.
func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		status := http.StatusBadRequest
		if errors.Is(err, domain.ErrBusy) {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
	case domain.KindNotFound:
		writeError(w, http.StatusNotFound, "session no longer exists")
	case domain.KindStoreUnavailable:
		writeError(w, http.StatusServiceUnavailable, "conversation store unavailable")
	case domain.KindUpstream:
		writeError(w, http.StatusBadGateway, "completion upstream failed")
	case domain.KindStale:
		writeError(w, http.StatusConflict, "active session changed")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, msg)
}

func unauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "authentication required")
}
