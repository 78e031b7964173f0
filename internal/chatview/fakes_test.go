package chatview

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chatline/internal/domain"
	"chatline/internal/realtime"
)

// fakeStore es una persistencia en memoria que publica cambios de sesion
// en el broker, si hay uno.
type fakeStore struct {
	mu       sync.Mutex
	sessions map[string]domain.ChatSession
	messages map[string][]domain.Message
	seq      int
	broker   *realtime.Broker

	listErr   error
	getErr    error
	createErr error
	deleteErr error
	// addErrs se consume en orden; nil deja pasar la llamada.
	addErrs []error

	renamed []string
	counts  []int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: make(map[string]domain.ChatSession),
		messages: make(map[string][]domain.Message),
	}
}

func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeStore) publish(t domain.ChangeType, s domain.ChatSession) {
	if f.broker != nil {
		_ = f.broker.Publish(context.Background(), domain.ChangeEvent{Type: t, OwnerID: s.OwnerID, Session: s})
	}
}

func (f *fakeStore) seedSession(id, owner string, createdAt time.Time) domain.ChatSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := domain.ChatSession{ID: id, OwnerID: owner, CreatedAt: createdAt}
	f.sessions[id] = s
	return s
}

func (f *fakeStore) CreateSession(_ context.Context, ownerID string) (domain.ChatSession, error) {
	f.mu.Lock()
	if f.createErr != nil {
		f.mu.Unlock()
		return domain.ChatSession{}, f.createErr
	}
	s := domain.ChatSession{ID: f.nextID("chat"), OwnerID: ownerID, CreatedAt: time.Now().UTC()}
	f.sessions[s.ID] = s
	f.mu.Unlock()
	f.publish(domain.ChangeInsert, s)
	return s, nil
}

func (f *fakeStore) GetSession(_ context.Context, id, ownerID string) (domain.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return domain.ChatSession{}, f.getErr
	}
	s, ok := f.sessions[id]
	if !ok || s.OwnerID != ownerID {
		return domain.ChatSession{}, errNotFound
	}
	return s, nil
}

func (f *fakeStore) ListSessions(_ context.Context, ownerID string) ([]domain.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.ChatSession, 0)
	for _, s := range f.sessions {
		if s.OwnerID == ownerID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) ListMessages(_ context.Context, sessionID string) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Message(nil), f.messages[sessionID]...), nil
}

func (f *fakeStore) AddMessage(_ context.Context, sessionID, content, role string) (domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.addErrs) > 0 {
		err := f.addErrs[0]
		f.addErrs = f.addErrs[1:]
		if err != nil {
			return domain.Message{}, err
		}
	}
	m := domain.Message{ID: f.nextID("msg"), SessionID: sessionID, Content: content, Role: role, CreatedAt: time.Now().UTC()}
	f.messages[sessionID] = append(f.messages[sessionID], m)
	return m, nil
}

func (f *fakeStore) UpdateMessageCount(_ context.Context, sessionID string, count int) (domain.ChatSession, error) {
	f.mu.Lock()
	s := f.sessions[sessionID]
	s.MessageCount = count
	f.sessions[sessionID] = s
	f.counts = append(f.counts, count)
	f.mu.Unlock()
	f.publish(domain.ChangeUpdate, s)
	return s, nil
}

func (f *fakeStore) RenameSession(_ context.Context, sessionID, name string) (domain.ChatSession, error) {
	f.mu.Lock()
	s := f.sessions[sessionID]
	s.Name = name
	f.sessions[sessionID] = s
	f.renamed = append(f.renamed, name)
	f.mu.Unlock()
	f.publish(domain.ChangeUpdate, s)
	return s, nil
}

func (f *fakeStore) DeleteSession(_ context.Context, id, ownerID string) error {
	f.mu.Lock()
	if f.deleteErr != nil {
		f.mu.Unlock()
		return f.deleteErr
	}
	s, ok := f.sessions[id]
	if !ok || s.OwnerID != ownerID {
		f.mu.Unlock()
		return errNotFound
	}
	delete(f.sessions, id)
	delete(f.messages, id)
	f.mu.Unlock()
	f.publish(domain.ChangeDelete, s)
	return nil
}

var errNotFound = fmt.Errorf("chat %w", domain.ErrNotFound)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingNotifier) Error(message string) {
	r.mu.Lock()
	r.messages = append(r.messages, message)
	r.mu.Unlock()
}

func (r *recordingNotifier) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

type staticTitler struct {
	title string
	calls int
}

func (s *staticTitler) GenerateTitle(_ context.Context, _ string) string {
	s.calls++
	return s.title
}
