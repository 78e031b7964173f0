package chatview

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"chatline/internal/domain"
	"chatline/internal/llm"
	"chatline/internal/reconcile"
)

// ChatDeps agrupa los colaboradores de un ChatView. Store es obligatorio.
type ChatDeps struct {
	Store     Persistence
	Generator Generator
	Titler    Titler
	History   HistoryBuilder
	Notifier  Notifier
	Logger    *zap.Logger
	// OnNotFound se invoca a lo sumo una vez por vista.
	OnNotFound func()
}

// ChatView es la pagina de un chat: verifica la sesion, carga el timeline y
// envia mensajes con insercion optimista.
type ChatView struct {
	sessionID string
	ownerID   string
	deps      ChatDeps
	logger    *zap.Logger
	timeline  *reconcile.Timeline

	sending atomic.Bool

	mu            sync.Mutex
	session       domain.ChatSession
	closed        bool
	notFoundShown bool
}

func NewChatView(sessionID, ownerID string, deps ChatDeps) *ChatView {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	logger := deps.Logger.With(zap.String("chat_id", sessionID))
	return &ChatView{
		sessionID: sessionID,
		ownerID:   ownerID,
		deps:      deps,
		logger:    logger,
		timeline:  reconcile.NewTimeline(logger),
	}
}

// Open verifica que la sesion exista y sea del owner y carga sus mensajes.
// Cualquier fallo redirige a not-found. Si el chat esta vacio y hay mensaje
// inicial, se envia.
func (v *ChatView) Open(ctx context.Context, initialMessage string) error {
	session, err := v.deps.Store.GetSession(ctx, v.sessionID, v.ownerID)
	if err != nil {
		v.logger.Warn("open chat failed", zap.Error(err))
		v.redirectNotFound()
		return err
	}
	messages, err := v.deps.Store.ListMessages(ctx, v.sessionID)
	if err != nil {
		v.logger.Warn("load messages failed", zap.Error(err))
		v.redirectNotFound()
		return err
	}

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.session = session
	v.mu.Unlock()
	v.timeline.Load(messages)

	if v.timeline.Len() == 0 && strings.TrimSpace(initialMessage) != "" {
		_, err := v.Send(ctx, initialMessage)
		return err
	}
	return nil
}

// Send agrega el mensaje del usuario de forma optimista, lo persiste y pide
// la respuesta del modelo. Si la persistencia falla, revierte, avisa una vez
// y devuelve el contenido para restaurar el input.
func (v *ChatView) Send(ctx context.Context, content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyInput
	}
	if v.isClosed() {
		return "", ErrClosed
	}
	if !v.sending.CompareAndSwap(false, true) {
		return "", ErrBusy
	}
	defer v.sending.Store(false)

	firstMessage := v.timeline.ConfirmedLen() == 0
	transientID := v.timeline.AppendOptimistic(content, domain.RoleUser)

	saved, err := v.deps.Store.AddMessage(ctx, v.sessionID, content, domain.RoleUser)
	if v.isClosed() {
		return "", nil
	}
	if err != nil {
		v.timeline.Rollback(transientID)
		v.logger.Warn("send message failed", zap.Error(err))
		v.deps.Notifier.Error(MsgSendFailed)
		return content, err
	}
	v.timeline.Reconcile(transientID, saved)

	if firstMessage {
		v.nameChat(ctx, content)
	}

	if err := v.reply(ctx, content); err != nil {
		return "", err
	}
	return "", nil
}

func (v *ChatView) reply(ctx context.Context, prompt string) error {
	if v.deps.Generator == nil {
		return nil
	}

	confirmed := v.timeline.Confirmed()
	if n := len(confirmed); n > 0 {
		confirmed = confirmed[:n-1]
	}
	var history []llm.Turn
	if v.deps.History != nil {
		history = v.deps.History.Build(confirmed)
	}

	text, err := v.deps.Generator.Generate(ctx, prompt, history)
	if v.isClosed() {
		return nil
	}
	if err != nil {
		v.logger.Warn("generate reply failed", zap.Error(err))
		v.deps.Notifier.Error(MsgReplyFailed)
		return fmt.Errorf("generate reply: %w", err)
	}

	saved, err := v.deps.Store.AddMessage(ctx, v.sessionID, text, domain.RoleAssistant)
	if v.isClosed() {
		return nil
	}
	if err != nil {
		v.logger.Warn("save reply failed", zap.Error(err))
		v.deps.Notifier.Error(MsgReplyFailed)
		return fmt.Errorf("save reply: %w", err)
	}
	v.timeline.AppendAuthoritative(saved)

	session, err := v.deps.Store.UpdateMessageCount(ctx, v.sessionID, v.timeline.ConfirmedLen())
	if err != nil {
		v.logger.Warn("update message count failed", zap.Error(err))
		return nil
	}
	v.setSession(session)
	return nil
}

// nameChat genera el titulo con el primer mensaje; nunca falla.
func (v *ChatView) nameChat(ctx context.Context, firstMessage string) {
	if v.deps.Titler == nil {
		return
	}
	title := v.deps.Titler.GenerateTitle(ctx, firstMessage)
	if v.isClosed() {
		return
	}
	session, err := v.deps.Store.RenameSession(ctx, v.sessionID, title)
	if err != nil {
		v.logger.Warn("rename chat failed", zap.Error(err))
		return
	}
	v.setSession(session)
}

func (v *ChatView) Timeline() *reconcile.Timeline {
	return v.timeline
}

func (v *ChatView) Messages() []reconcile.Entry {
	return v.timeline.Messages()
}

func (v *ChatView) Session() domain.ChatSession {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.session
}

// Sending indica si hay un envio en curso.
func (v *ChatView) Sending() bool {
	return v.sending.Load()
}

// Close desmonta la vista; resultados tardios se descartan.
func (v *ChatView) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
}

func (v *ChatView) setSession(session domain.ChatSession) {
	v.mu.Lock()
	if !v.closed {
		v.session = session
	}
	v.mu.Unlock()
}

func (v *ChatView) isClosed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

func (v *ChatView) redirectNotFound() {
	v.mu.Lock()
	if v.notFoundShown || v.closed {
		v.mu.Unlock()
		return
	}
	v.notFoundShown = true
	v.mu.Unlock()
	if v.deps.OnNotFound != nil {
		v.deps.OnNotFound()
	}
}
