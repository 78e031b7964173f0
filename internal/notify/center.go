package notify

import (
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/patrickmn/go-cache"
)

type Kind string

const (
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindSuccess Kind = "success"
	KindInfo    Kind = "info"
)

const (
	DefaultTTL = 10 * time.Second
	MaxVisible = 3
)

// Notice es un aviso visible para el usuario.
type Notice struct {
	ID        string
	Kind      Kind
	Message   string
	CreatedAt time.Time
}

// Center guarda avisos que expiran solos. Nunca hay mas de MaxVisible: al
// llegar uno nuevo con la lista llena se descartan todos los anteriores.
type Center struct {
	mu    sync.Mutex
	cache *cache.Cache
	ttl   time.Duration
}

func NewCenter(ttl time.Duration) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Center{
		cache: cache.New(ttl, time.Minute),
		ttl:   ttl,
	}
}

func (c *Center) Add(kind Kind, message string) Notice {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.cache.Items()) >= MaxVisible {
		c.cache.Flush()
	}
	notice := Notice{
		ID:        ulid.Make().String(),
		Kind:      kind,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	c.cache.Set(notice.ID, notice, c.ttl)
	return notice
}

func (c *Center) Error(message string)   { c.Add(KindError, message) }
func (c *Center) Warning(message string) { c.Add(KindWarning, message) }
func (c *Center) Success(message string) { c.Add(KindSuccess, message) }
func (c *Center) Info(message string)    { c.Add(KindInfo, message) }

func (c *Center) Dismiss(id string) {
	c.cache.Delete(id)
}

func (c *Center) ClearAll() {
	c.cache.Flush()
}

// List devuelve los avisos vigentes, del mas viejo al mas nuevo.
func (c *Center) List() []Notice {
	items := c.cache.Items()
	out := make([]Notice, 0, len(items))
	for _, item := range items {
		if n, ok := item.Object.(Notice); ok {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}
