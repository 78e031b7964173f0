package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"chatline/internal/domain"
)

var ErrListClosed = errors.New("reconcile: chat list closed")

type ListStatus string

const (
	StatusCreating ListStatus = "creating"
	StatusPresent  ListStatus = "present"
	StatusDeleting ListStatus = "deleting"
)

// SessionEntry es una sesion visible en la lista de chats.
type SessionEntry struct {
	Session domain.ChatSession
	Status  ListStatus
}

// SessionStore es la parte de persistencia que la lista necesita.
type SessionStore interface {
	CreateSession(ctx context.Context, ownerID string) (domain.ChatSession, error)
	DeleteSession(ctx context.Context, id, ownerID string) error
}

// ChatList combina la carga inicial, creaciones y borrados locales y los
// eventos push en una lista sin duplicados, ordenada por CreatedAt descendente.
// Todos los eventos se aplican por id y son idempotentes.
type ChatList struct {
	mu      sync.Mutex
	entries []SessionEntry
	store   SessionStore
	ownerID string
	logger  *zap.Logger
	closed  bool
}

func NewChatList(store SessionStore, ownerID string, logger *zap.Logger) *ChatList {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatList{store: store, ownerID: ownerID, logger: logger}
}

// Load reemplaza la lista completa con el resultado del fetch inicial.
func (l *ChatList) Load(sessions []domain.ChatSession) {
	entries := make([]SessionEntry, 0, len(sessions))
	seen := make(map[string]struct{}, len(sessions))
	for _, s := range sessions {
		if _, dup := seen[s.ID]; dup {
			continue
		}
		seen[s.ID] = struct{}{}
		entries = append(entries, SessionEntry{Session: s, Status: StatusPresent})
	}
	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()
}

func (l *ChatList) ApplyPushedInsert(session domain.ChatSession) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.indexOf(session.ID) >= 0 {
		return
	}
	l.insertSorted(SessionEntry{Session: session, Status: StatusPresent})
}

func (l *ChatList) ApplyPushedUpdate(session domain.ChatSession) {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := l.indexOf(session.ID)
	if idx < 0 {
		return
	}
	l.entries[idx].Session = session
}

func (l *ChatList) ApplyPushedDelete(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.removeAt(l.indexOf(id))
}

// Apply despacha un evento push segun su tipo. Eventos de otro owner se ignoran.
func (l *ChatList) Apply(event domain.ChangeEvent) {
	if event.OwnerID != "" && event.OwnerID != l.ownerID {
		return
	}
	switch event.Type {
	case domain.ChangeInsert:
		l.ApplyPushedInsert(event.Session)
	case domain.ChangeUpdate:
		l.ApplyPushedUpdate(event.Session)
	case domain.ChangeDelete:
		l.ApplyPushedDelete(event.Session.ID)
	default:
		l.logger.Debug("chat list: unknown event type", zap.String("type", string(event.Type)))
	}
}

// Run aplica eventos hasta que el stream se cierre o ctx termine.
func (l *ChatList) Run(ctx context.Context, events <-chan domain.ChangeEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if l.isClosed() {
				return
			}
			l.Apply(event)
		}
	}
}

// CreateLocal inserta una entrada "creating" al principio, crea la sesion en
// el servidor y reemplaza la entrada por el registro real. Si el insert push
// ya llego se descarta la entrada local. Si falla, la entrada se revierte.
func (l *ChatList) CreateLocal(ctx context.Context) (domain.ChatSession, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return domain.ChatSession{}, ErrListClosed
	}
	transientID := NewTransientID()
	placeholder := SessionEntry{
		Session: domain.ChatSession{ID: transientID, OwnerID: l.ownerID, CreatedAt: time.Now().UTC()},
		Status:  StatusCreating,
	}
	l.entries = append([]SessionEntry{placeholder}, l.entries...)
	l.mu.Unlock()

	session, err := l.store.CreateSession(ctx, l.ownerID)

	l.mu.Lock()
	defer l.mu.Unlock()

	tmpIdx := l.indexOf(transientID)
	if err != nil {
		l.removeAt(tmpIdx)
		return domain.ChatSession{}, err
	}
	if l.closed {
		l.removeAt(tmpIdx)
		l.logger.Debug("chat list closed, dropping create result", zap.String("chat_id", session.ID))
		return session, nil
	}

	switch {
	case l.indexOf(session.ID) >= 0:
		l.removeAt(tmpIdx)
	case tmpIdx >= 0:
		l.entries[tmpIdx] = SessionEntry{Session: session, Status: StatusPresent}
	default:
		l.insertSorted(SessionEntry{Session: session, Status: StatusPresent})
	}
	return session, nil
}

// RemoveLocal marca la entrada como "deleting" y la quita cuando el servidor
// confirma. Si el push delete llega antes, el resultado es un no-op. Un
// domain.ErrNotFound del servidor cuenta como confirmacion. Otro error
// devuelve la entrada a "present".
func (l *ChatList) RemoveLocal(ctx context.Context, id string) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrListClosed
	}
	idx := l.indexOf(id)
	if idx < 0 || l.entries[idx].Status != StatusPresent {
		l.mu.Unlock()
		return nil
	}
	l.entries[idx].Status = StatusDeleting
	l.mu.Unlock()

	err := l.store.DeleteSession(ctx, id, l.ownerID)

	l.mu.Lock()
	defer l.mu.Unlock()

	idx = l.indexOf(id)
	if idx < 0 {
		// El push delete ya la quito.
		return nil
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		if l.entries[idx].Status == StatusDeleting {
			l.entries[idx].Status = StatusPresent
		}
		return err
	}
	l.removeAt(idx)
	return nil
}

// Close marca la lista como desmontada; resultados tardios se descartan.
func (l *ChatList) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
}

func (l *ChatList) Sessions() []SessionEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]SessionEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *ChatList) Get(id string) (SessionEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := l.indexOf(id)
	if idx < 0 {
		return SessionEntry{}, false
	}
	return l.entries[idx], true
}

func (l *ChatList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *ChatList) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *ChatList) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, e := range l.entries {
		if e.Session.ID == id {
			return i
		}
	}
	return -1
}

func (l *ChatList) removeAt(idx int) {
	if idx < 0 || idx >= len(l.entries) {
		return
	}
	l.entries = append(l.entries[:idx], l.entries[idx+1:]...)
}

// insertSorted ubica la entrada antes de la primera sesion mas antigua.
// Sin CreatedAt se trata como la mas nueva.
func (l *ChatList) insertSorted(entry SessionEntry) {
	pos := 0
	if !entry.Session.CreatedAt.IsZero() {
		pos = len(l.entries)
		for i, e := range l.entries {
			if e.Session.CreatedAt.Before(entry.Session.CreatedAt) {
				pos = i
				break
			}
		}
	}
	l.entries = append(l.entries, SessionEntry{})
	copy(l.entries[pos+1:], l.entries[pos:])
	l.entries[pos] = entry
}
