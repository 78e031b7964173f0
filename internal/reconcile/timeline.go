package reconcile

import (
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"chatline/internal/domain"
)

// TransientPrefix marca ids locales que aun no confirmo el servidor.
const TransientPrefix = "temp-"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
)

// Entry es un mensaje visible en la linea de tiempo.
type Entry struct {
	Message domain.Message
	Status  Status
}

// NewTransientID genera un id local ordenable por tiempo.
func NewTransientID() string {
	return TransientPrefix + ulid.Make().String()
}

func IsTransient(id string) bool {
	return strings.HasPrefix(id, TransientPrefix)
}

// Timeline mantiene los mensajes de una sesion en orden de append. Los
// mensajes optimistas se reemplazan en su misma posicion al confirmarse.
type Timeline struct {
	mu      sync.Mutex
	entries []Entry
	logger  *zap.Logger
}

func NewTimeline(logger *zap.Logger) *Timeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Timeline{logger: logger}
}

// Load reemplaza el contenido con mensajes ya confirmados (orden ascendente).
func (t *Timeline) Load(messages []domain.Message) {
	entries := make([]Entry, 0, len(messages))
	for _, m := range messages {
		entries = append(entries, Entry{Message: m, Status: StatusConfirmed})
	}
	t.mu.Lock()
	t.entries = entries
	t.mu.Unlock()
}

// AppendOptimistic agrega un mensaje pendiente al final y devuelve su id transitorio.
func (t *Timeline) AppendOptimistic(content, role string) string {
	id := NewTransientID()
	entry := Entry{
		Message: domain.Message{
			ID:        id,
			Content:   content,
			Role:      role,
			CreatedAt: time.Now().UTC(),
		},
		Status: StatusPending,
	}
	t.mu.Lock()
	t.entries = append(t.entries, entry)
	t.mu.Unlock()
	return id
}

// Reconcile reemplaza en el lugar la entrada pendiente con el mensaje del
// servidor. Un id desconocido no modifica nada.
func (t *Timeline) Reconcile(transientID string, authoritative domain.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.pendingIndex(transientID)
	if idx < 0 {
		t.logger.Debug("reconcile: unknown transient id", zap.String("transient_id", transientID))
		return false
	}
	t.entries[idx] = Entry{Message: authoritative, Status: StatusConfirmed}
	return true
}

// Rollback quita solo la entrada pendiente con ese id.
func (t *Timeline) Rollback(transientID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.pendingIndex(transientID)
	if idx < 0 {
		return false
	}
	t.entries = append(t.entries[:idx], t.entries[idx+1:]...)
	return true
}

// AppendAuthoritative agrega al final un mensaje que nunca fue optimista.
func (t *Timeline) AppendAuthoritative(message domain.Message) {
	t.mu.Lock()
	t.entries = append(t.entries, Entry{Message: message, Status: StatusConfirmed})
	t.mu.Unlock()
}

func (t *Timeline) Messages() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Confirmed devuelve solo los mensajes confirmados, en orden.
func (t *Timeline) Confirmed() []domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.Message, 0, len(t.entries))
	for _, e := range t.entries {
		if e.Status == StatusConfirmed {
			out = append(out, e.Message)
		}
	}
	return out
}

func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Timeline) ConfirmedLen() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, e := range t.entries {
		if e.Status == StatusConfirmed {
			n++
		}
	}
	return n
}

func (t *Timeline) pendingIndex(id string) int {
	for i, e := range t.entries {
		if e.Status == StatusPending && e.Message.ID == id {
			return i
		}
	}
	return -1
}
