package chatview

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"chatline/internal/domain"
	"chatline/internal/realtime"
	"chatline/internal/reconcile"
)

// ListView es la pagina de lista de chats: carga inicial, suscripcion push
// filtrada por owner, creacion y borrado.
type ListView struct {
	ownerID  string
	store    Persistence
	push     PushChannel
	notifier Notifier
	logger   *zap.Logger
	list     *reconcile.ChatList

	creating atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	sub    *realtime.Subscription
	done   chan struct{}
}

func NewListView(ownerID string, store Persistence, push PushChannel, notifier Notifier, logger *zap.Logger) *ListView {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &ListView{
		ownerID:  ownerID,
		store:    store,
		push:     push,
		notifier: notifier,
		logger:   logger,
		list:     reconcile.NewChatList(store, ownerID, logger),
	}
}

// Mount se suscribe, carga la lista y empieza a aplicar eventos push. Si el
// fetch falla la lista queda vacia sin aviso.
func (v *ListView) Mount(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)

	var events <-chan domain.ChangeEvent
	if v.push != nil {
		sub, err := v.push.Subscribe(runCtx, v.ownerID)
		if err != nil {
			v.logger.Warn("chat list subscribe failed", zap.Error(err), zap.String("owner_id", v.ownerID))
		} else {
			events = sub.Events()
			v.mu.Lock()
			v.sub = sub
			v.mu.Unlock()
		}
	}

	sessions, err := v.store.ListSessions(ctx, v.ownerID)
	if err != nil {
		v.logger.Warn("chat list fetch failed", zap.Error(err), zap.String("owner_id", v.ownerID))
		sessions = nil
	}
	v.list.Load(sessions)

	done := make(chan struct{})
	v.mu.Lock()
	v.cancel = cancel
	v.done = done
	v.mu.Unlock()

	if events == nil {
		close(done)
		return nil
	}
	go func() {
		defer close(done)
		v.list.Run(runCtx, events)
	}()
	return nil
}

func (v *ListView) List() *reconcile.ChatList {
	return v.list
}

func (v *ListView) Sessions() []reconcile.SessionEntry {
	return v.list.Sessions()
}

// Creating indica si hay una creacion en curso.
func (v *ListView) Creating() bool {
	return v.creating.Load()
}

// StartChat crea una sesion para el prompt y devuelve el mensaje inicial
// recortado. Se ignora un prompt vacio o una creacion en curso.
func (v *ListView) StartChat(ctx context.Context, prompt string) (domain.ChatSession, string, error) {
	initial := strings.TrimSpace(prompt)
	if initial == "" {
		return domain.ChatSession{}, "", ErrEmptyInput
	}
	if !v.creating.CompareAndSwap(false, true) {
		return domain.ChatSession{}, "", ErrBusy
	}
	defer v.creating.Store(false)

	session, err := v.list.CreateLocal(ctx)
	if err != nil {
		v.logger.Warn("create chat failed", zap.Error(err), zap.String("owner_id", v.ownerID))
		v.notifier.Error(MsgCreateFailed)
		return domain.ChatSession{}, "", err
	}
	return session, initial, nil
}

func (v *ListView) Delete(ctx context.Context, id string) error {
	if _, ok := v.list.Get(id); !ok {
		v.notifier.Error(MsgChatMissing)
		return ErrNotInList
	}
	if err := v.list.RemoveLocal(ctx, id); err != nil {
		v.logger.Warn("delete chat failed", zap.Error(err), zap.String("chat_id", id))
		v.notifier.Error(MsgDeleteFailed)
		return err
	}
	return nil
}

// Unmount da de baja la suscripcion y descarta resultados tardios.
func (v *ListView) Unmount() {
	v.mu.Lock()
	cancel, sub, done := v.cancel, v.sub, v.done
	v.cancel, v.sub = nil, nil
	v.mu.Unlock()

	v.list.Close()
	if cancel != nil {
		cancel()
	}
	if sub != nil {
		sub.Close()
	}
	if done != nil {
		<-done
	}
}
