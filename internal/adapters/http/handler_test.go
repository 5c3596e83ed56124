package httpadapter_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	httpadapter "github.com/whitman-labs/parley/internal/adapters/http"
	"github.com/whitman-labs/parley/internal/adapters/llm"
	"github.com/whitman-labs/parley/internal/adapters/storage/memory"
	"github.com/whitman-labs/parley/internal/app/chat"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	store := memory.NewStore()
	registry := chat.NewRegistry(store, llm.NewMockClient())
	return httpadapter.NewServer(registry, store)
}

func doJSON(t *testing.T, srv http.Handler, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

type stateBody struct {
	ActiveID string `json:"active_id"`
	Pending  bool   `json:"pending"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/healthz", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRequiresIdentity(t *testing.T) {
	srv := newTestServer(t)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/chat/submit"},
		{http.MethodGet, "/api/chat/state"},
		{http.MethodGet, "/api/chats"},
	}
	for _, rt := range routes {
		w := doJSON(t, srv, rt.method, rt.path, "", map[string]string{"text": "hi"})
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", rt.method, rt.path, w.Code)
		}
	}
}

func TestSubmitStateAndHistoryFlow(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/chat/submit", "alice", map[string]string{"text": "Hello parley"})
	if w.Code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d, body=%s", w.Code, w.Body.String())
	}

	var submitted struct {
		Reply struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"reply"`
		Saved bool `json:"saved"`
	}
	if err := json.NewDecoder(w.Body).Decode(&submitted); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}
	if submitted.Reply.Role != "assistant" || submitted.Reply.Content == "" {
		t.Fatalf("unexpected reply %+v", submitted.Reply)
	}
	if !submitted.Saved {
		t.Fatal("expected the exchange to be saved")
	}

	w = doJSON(t, srv, http.MethodGet, "/api/chat/state", "alice", nil)
	var state stateBody
	if err := json.NewDecoder(w.Body).Decode(&state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.ActiveID == "new" || state.ActiveID == "" {
		t.Fatalf("expected a persisted session id, got %q", state.ActiveID)
	}
	if len(state.Messages) != 2 || state.Pending {
		t.Fatalf("unexpected state %+v", state)
	}

	w = doJSON(t, srv, http.MethodGet, "/api/chats", "alice", nil)
	var list []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].Title != "Hello parley" {
		t.Fatalf("unexpected history %+v", list)
	}

	// Sessions never cross owner boundaries.
	w = doJSON(t, srv, http.MethodGet, "/api/chats", "mallory", nil)
	var other []json.RawMessage
	if err := json.NewDecoder(w.Body).Decode(&other); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("history leaked across owners: %v", other)
	}
	w = doJSON(t, srv, http.MethodGet, "/api/chats/"+list[0].ID, "mallory", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign session, got %d", w.Code)
	}

	w = doJSON(t, srv, http.MethodGet, "/api/chats/"+list[0].ID, "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get chat: expected 200, got %d", w.Code)
	}
	var full struct {
		ID       string `json:"id"`
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(w.Body).Decode(&full); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if full.ID != list[0].ID || len(full.Messages) != 2 {
		t.Fatalf("unexpected session %+v", full)
	}

	w = doJSON(t, srv, http.MethodDelete, "/api/chats/"+list[0].ID, "alice", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", w.Code)
	}

	w = doJSON(t, srv, http.MethodGet, "/api/chat/state", "alice", nil)
	if err := json.NewDecoder(w.Body).Decode(&state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.ActiveID != "new" || len(state.Messages) != 0 {
		t.Fatalf("expected reset state after delete, got %+v", state)
	}
}

func TestDeleteEnforcesOwnership(t *testing.T) {
	srv := newTestServer(t)

	if w := doJSON(t, srv, http.MethodPost, "/api/chat/submit", "alice", map[string]string{"text": "mine"}); w.Code != http.StatusOK {
		t.Fatalf("submit failed: %d", w.Code)
	}

	w := doJSON(t, srv, http.MethodGet, "/api/chats", "alice", nil)
	var list []struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 session, got %d", len(list))
	}
	id := list[0].ID

	// A guessed id must not let another caller delete the record.
	w = doJSON(t, srv, http.MethodDelete, "/api/chats/"+id, "mallory", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("foreign delete: expected 404, got %d", w.Code)
	}

	w = doJSON(t, srv, http.MethodGet, "/api/chats/"+id, "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("record must survive a foreign delete, got %d", w.Code)
	}

	// The owner still can, and a repeat delete stays a no-op.
	w = doJSON(t, srv, http.MethodDelete, "/api/chats/"+id, "alice", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("owner delete: expected 204, got %d", w.Code)
	}
	w = doJSON(t, srv, http.MethodDelete, "/api/chats/"+id, "alice", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("repeat delete: expected 204, got %d", w.Code)
	}
}

func TestSubmitBlankText(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/chat/submit", "alice", map[string]string{"text": "   "})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank text, got %d", w.Code)
	}
}

func TestSelectResumeAndReset(t *testing.T) {
	srv := newTestServer(t)

	if w := doJSON(t, srv, http.MethodPost, "/api/chat/submit", "alice", map[string]string{"text": "first"}); w.Code != http.StatusOK {
		t.Fatalf("submit failed: %d", w.Code)
	}

	w := doJSON(t, srv, http.MethodGet, "/api/chat/state", "alice", nil)
	var state stateBody
	if err := json.NewDecoder(w.Body).Decode(&state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	savedID := state.ActiveID

	// Reset to a fresh draft.
	w = doJSON(t, srv, http.MethodPost, "/api/chat/select", "alice", map[string]string{"id": "new"})
	if w.Code != http.StatusOK {
		t.Fatalf("select new: expected 200, got %d", w.Code)
	}
	if err := json.NewDecoder(w.Body).Decode(&state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.ActiveID != "new" || len(state.Messages) != 0 {
		t.Fatalf("expected fresh state, got %+v", state)
	}

	// Resume the saved session.
	w = doJSON(t, srv, http.MethodPost, "/api/chat/select", "alice", map[string]string{"id": savedID})
	if w.Code != http.StatusOK {
		t.Fatalf("select saved: expected 200, got %d", w.Code)
	}
	if err := json.NewDecoder(w.Body).Decode(&state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.ActiveID != savedID || len(state.Messages) != 2 {
		t.Fatalf("expected resumed session, got %+v", state)
	}
}

func TestSelectMissingSession(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/chat/select", "alice", map[string]string{"id": "does-not-exist"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
