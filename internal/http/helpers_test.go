package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chatline/internal/domain"
	"chatline/internal/llm"
	"chatline/internal/realtime"
	"chatline/internal/service"
)

const testSecret = "secret"

// memoryChats implementa la persistencia en memoria para los handlers.
type memoryChats struct {
	mu       sync.Mutex
	sessions map[string]domain.ChatSession
	messages map[string][]domain.Message
	seq      int
	failList bool
}

func newMemoryChats() *memoryChats {
	return &memoryChats{
		sessions: make(map[string]domain.ChatSession),
		messages: make(map[string][]domain.Message),
	}
}

func (m *memoryChats) CreateSession(_ context.Context, ownerID string) (domain.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	s := domain.ChatSession{ID: "chat-" + string(rune('a'+m.seq-1)), OwnerID: ownerID, CreatedAt: time.Now().UTC()}
	m.sessions[s.ID] = s
	return s, nil
}

func (m *memoryChats) GetSession(_ context.Context, id, ownerID string) (domain.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.OwnerID != ownerID {
		return domain.ChatSession{}, service.ErrChatNotFound
	}
	return s, nil
}

func (m *memoryChats) ListSessions(_ context.Context, ownerID string) ([]domain.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList {
		return nil, context.DeadlineExceeded
	}
	out := make([]domain.ChatSession, 0)
	for _, s := range m.sessions {
		if s.OwnerID == ownerID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memoryChats) ListMessages(_ context.Context, sessionID string) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Message{}, m.messages[sessionID]...), nil
}

func (m *memoryChats) AddMessage(_ context.Context, sessionID, content, role string) (domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !domain.ValidRole(role) {
		return domain.Message{}, service.ErrChatInvalidInput
	}
	m.seq++
	msg := domain.Message{ID: "msg", SessionID: sessionID, Content: content, Role: role, CreatedAt: time.Now().UTC()}
	m.messages[sessionID] = append(m.messages[sessionID], msg)
	return msg, nil
}

func (m *memoryChats) UpdateMessageCount(_ context.Context, sessionID string, count int) (domain.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if count < 0 {
		return domain.ChatSession{}, service.ErrChatInvalidInput
	}
	s := m.sessions[sessionID]
	s.MessageCount = count
	m.sessions[sessionID] = s
	return s, nil
}

func (m *memoryChats) RenameSession(_ context.Context, sessionID, name string) (domain.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessions[sessionID]
	s.Name = name
	m.sessions[sessionID] = s
	return s, nil
}

func (m *memoryChats) DeleteSession(_ context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.OwnerID != ownerID {
		return service.ErrChatNotFound
	}
	delete(m.sessions, id)
	delete(m.messages, id)
	return nil
}

type testServer struct {
	router  *gin.Engine
	chats   *memoryChats
	broker  *realtime.Broker
	llm     *llm.MockClient
	limiter service.GenerationLimiter
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithLimiter(t, service.NewGenerationLimiter(time.Minute, 100))
}

func newTestServerWithLimiter(t *testing.T, limiter service.GenerationLimiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	ts := &testServer{
		chats:   newMemoryChats(),
		broker:  realtime.NewBroker(logger),
		llm:     &llm.MockClient{Response: "Hello there friend"},
		limiter: limiter,
	}
	t.Cleanup(func() { _ = ts.broker.Close() })

	titles := service.NewTitleService(&llm.MockClient{Response: `"Weekend Trip"`}, "", logger)
	ts.router = NewRouter(
		logger,
		service.NewJWTService(testSecret, 15*time.Minute),
		NewChatHandler(logger, ts.chats),
		NewEventsHandler(logger, ts.broker),
		NewAIHandler(logger, ts.llm, titles, ts.chats, service.NewHistoryService(20), ts.limiter),
		nil,
	)
	return ts
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := service.NewJWTService(testSecret, 15*time.Minute).GenerateAccessToken(domain.User{ID: userID})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return tok
}

func (ts *testServer) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, user))
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}
