package http

import (
	"net/http"
	"testing"

	"chatline/internal/domain"
)

type chatResponse struct {
	Chat domain.ChatSession `json:"chat"`
}

func TestChatHandler_CreateAndList(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/chats", "u1", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[chatResponse](t, rec)
	if created.Chat.ID == "" || created.Chat.OwnerID != "u1" {
		t.Fatalf("unexpected chat: %+v", created.Chat)
	}

	ts.do(t, http.MethodPost, "/chats", "u2", nil)

	rec = ts.do(t, http.MethodGet, "/chats", "u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	list := decode[struct {
		Chats []domain.ChatSession `json:"chats"`
	}](t, rec)
	if len(list.Chats) != 1 || list.Chats[0].ID != created.Chat.ID {
		t.Fatalf("expected only u1 chat, got %+v", list.Chats)
	}
}

func TestChatHandler_RequiresAuth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/chats", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestChatHandler_ListFailureIsInternalError(t *testing.T) {
	ts := newTestServer(t)
	ts.chats.failList = true
	rec := ts.do(t, http.MethodGet, "/chats", "u1", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestChatHandler_ForeignChatIsNotFound(t *testing.T) {
	ts := newTestServer(t)
	created := decode[chatResponse](t, ts.do(t, http.MethodPost, "/chats", "u1", nil))
	path := "/chats/" + created.Chat.ID

	cases := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"get", http.MethodGet, path, nil},
		{"rename", http.MethodPatch, path, map[string]string{"name": "x"}},
		{"delete", http.MethodDelete, path, nil},
		{"messages", http.MethodGet, path + "/messages", nil},
		{"add message", http.MethodPost, path + "/messages", map[string]string{"content": "hi", "role": "user"}},
		{"count", http.MethodPut, path + "/count", map[string]int{"number_of_messages": 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := ts.do(t, tc.method, tc.path, "u2", tc.body)
			if rec.Code != http.StatusNotFound {
				t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestChatHandler_MessagesRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	created := decode[chatResponse](t, ts.do(t, http.MethodPost, "/chats", "u1", nil))
	path := "/chats/" + created.Chat.ID

	rec := ts.do(t, http.MethodPost, path+"/messages", "u1", map[string]string{"content": "hola", "role": "user"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	msg := decode[struct {
		Message domain.Message `json:"message"`
	}](t, rec)
	if msg.Message.Content != "hola" || msg.Message.Role != domain.RoleUser {
		t.Fatalf("unexpected message: %+v", msg.Message)
	}

	rec = ts.do(t, http.MethodGet, path+"/messages", "u1", nil)
	list := decode[struct {
		Messages []domain.Message `json:"messages"`
	}](t, rec)
	if len(list.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(list.Messages))
	}
}

func TestChatHandler_AddMessageRejectsInvalidRole(t *testing.T) {
	ts := newTestServer(t)
	created := decode[chatResponse](t, ts.do(t, http.MethodPost, "/chats", "u1", nil))

	rec := ts.do(t, http.MethodPost, "/chats/"+created.Chat.ID+"/messages", "u1", map[string]string{"content": "hi", "role": "system"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/chats/"+created.Chat.ID+"/messages", "u1", map[string]string{"role": "user"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing content, got %d", rec.Code)
	}
}

func TestChatHandler_RenameAndCount(t *testing.T) {
	ts := newTestServer(t)
	created := decode[chatResponse](t, ts.do(t, http.MethodPost, "/chats", "u1", nil))
	path := "/chats/" + created.Chat.ID

	rec := ts.do(t, http.MethodPatch, path, "u1", map[string]string{"name": "Trip"})
	if rec.Code != http.StatusOK {
		t.Fatalf("rename: expected 200, got %d", rec.Code)
	}
	if got := decode[chatResponse](t, rec).Chat.Name; got != "Trip" {
		t.Fatalf("expected name Trip, got %q", got)
	}

	rec = ts.do(t, http.MethodPut, path+"/count", "u1", map[string]int{"number_of_messages": 0})
	if rec.Code != http.StatusOK {
		t.Fatalf("count zero: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodPut, path+"/count", "u1", map[string]int{"number_of_messages": 4})
	if got := decode[chatResponse](t, rec).Chat.MessageCount; got != 4 {
		t.Fatalf("expected count 4, got %d", got)
	}

	rec = ts.do(t, http.MethodPut, path+"/count", "u1", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing count: expected 400, got %d", rec.Code)
	}
}

func TestChatHandler_DeleteThenGet(t *testing.T) {
	ts := newTestServer(t)
	created := decode[chatResponse](t, ts.do(t, http.MethodPost, "/chats", "u1", nil))
	path := "/chats/" + created.Chat.ID

	if rec := ts.do(t, http.MethodDelete, path, "u1", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, path, "u1", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodDelete, path, "u1", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
