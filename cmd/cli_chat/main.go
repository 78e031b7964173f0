package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"chatline/internal/chatview"
	"chatline/internal/config"
	"chatline/internal/db"
	"chatline/internal/domain"
	"chatline/internal/llm"
	"chatline/internal/logging"
	"chatline/internal/notify"
	"chatline/internal/realtime"
	"chatline/internal/reconcile"
	"chatline/internal/repository"
	"chatline/internal/service"
)

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(logging.Options{Production: true, FilePath: cfg.LogFile, Quiet: true})
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()
	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Fatal(err)
	}

	broker := realtime.NewBroker(logger)
	defer broker.Close()

	chatClient, titleClient, err := llm.NewClients(ctx, llm.Options{
		Provider:        cfg.LLMProvider,
		GeminiAPIKey:    cfg.GeminiAPIKey,
		APIKey:          cfg.LLMAPIKey,
		BaseURL:         cfg.LLMBaseURL,
		Model:           cfg.LLMModel,
		TitleModel:      cfg.TitleModel,
		SystemPrompt:    cfg.SystemPrompt,
		MaxOutputTokens: cfg.MaxOutputTokens,
	}, logger)
	if err != nil {
		log.Fatalf("llm: %v", err)
	}

	chatSvc := service.NewChatService(
		repository.NewPgChatRepository(pool),
		repository.NewPgMessageRepository(pool),
		broker,
		logger,
	)
	notices := notify.NewCenter(notify.DefaultTTL)
	deps := chatview.ChatDeps{
		Store:     chatSvc,
		Generator: chatClient,
		Titler:    service.NewTitleService(titleClient, cfg.ChatNameSystemPrompt, logger),
		History:   service.NewHistoryService(cfg.ChatContextWindow),
		Notifier:  notices,
		Logger:    logger,
	}

	list := chatview.NewListView(cfg.OwnerID, chatSvc, broker, notices, logger)
	if err := list.Mount(ctx); err != nil {
		log.Fatalf("suscribir cambios: %v", err)
	}
	defer list.Unmount()

	for {
		fmt.Println("===== Chats =====")
		printSessions(list.Sessions())
		printNotices(notices)
		fmt.Println("[n] nuevo chat  [numero] abrir  [d numero] borrar  [q] salir")

		choice := prompt(reader, "> ")
		switch {
		case choice == "q":
			return
		case choice == "n":
			text := prompt(reader, "Primer mensaje: ")
			session, initial, err := list.StartChat(ctx, text)
			if err != nil {
				if errors.Is(err, chatview.ErrEmptyInput) {
					fmt.Println("El mensaje no puede estar vacio.")
				}
				continue
			}
			chatLoop(ctx, reader, session.ID, cfg.OwnerID, initial, deps, notices)
		case strings.HasPrefix(choice, "d "):
			entry, ok := pick(list.Sessions(), strings.TrimSpace(strings.TrimPrefix(choice, "d ")))
			if !ok {
				fmt.Println("Opcion invalida.")
				continue
			}
			_ = list.Delete(ctx, entry.Session.ID)
		default:
			entry, ok := pick(list.Sessions(), choice)
			if !ok {
				fmt.Println("Opcion invalida.")
				continue
			}
			chatLoop(ctx, reader, entry.Session.ID, cfg.OwnerID, "", deps, notices)
		}
	}
}

func chatLoop(ctx context.Context, reader *bufio.Reader, sessionID, ownerID, initial string, deps chatview.ChatDeps, notices *notify.Center) {
	notFound := false
	deps.OnNotFound = func() {
		notFound = true
		fmt.Println("Chat no encontrado.")
	}
	view := chatview.NewChatView(sessionID, ownerID, deps)
	defer view.Close()

	if err := view.Open(ctx, initial); err != nil {
		deps.Logger.Debug("open chat", zap.Error(err))
		printNotices(notices)
		// Un fallo del mensaje inicial deja el chat abierto para reintentar.
		if notFound || initial == "" {
			return
		}
	}
	printMessages(view)

	fmt.Println("Escribe un mensaje. /salir vuelve a la lista.")
	var draft string
	for {
		if draft != "" {
			fmt.Printf("(borrador restaurado: %s)\n", draft)
		}
		text := prompt(reader, "Tu: ")
		if text == "/salir" {
			return
		}
		restore, err := view.Send(ctx, text)
		draft = restore
		if err != nil && !errors.Is(err, chatview.ErrEmptyInput) {
			printNotices(notices)
			continue
		}
		printLast(view)
	}
}

func printSessions(entries []reconcile.SessionEntry) {
	if len(entries) == 0 {
		fmt.Println("No hay chats. Crea uno nuevo.")
		return
	}
	for i, e := range entries {
		suffix := ""
		switch e.Status {
		case reconcile.StatusCreating:
			suffix = " (creando...)"
		case reconcile.StatusDeleting:
			suffix = " (borrando...)"
		}
		fmt.Printf("%d) %s [%d mensajes]%s\n", i+1, e.Session.DisplayName(), e.Session.MessageCount, suffix)
	}
}

func printNotices(center *notify.Center) {
	for _, n := range center.List() {
		fmt.Printf("! %s: %s\n", n.Kind, n.Message)
	}
}

func printMessages(view *chatview.ChatView) {
	fmt.Printf("--- %s ---\n", view.Session().DisplayName())
	for _, e := range view.Messages() {
		printEntry(e)
	}
}

func printLast(view *chatview.ChatView) {
	entries := view.Messages()
	if n := len(entries); n > 0 {
		printEntry(entries[n-1])
	}
}

func printEntry(e reconcile.Entry) {
	who := "Tu"
	if e.Message.Role == domain.RoleAssistant {
		who = "IA"
	}
	fmt.Printf("%s: %s\n", who, e.Message.Content)
}

func pick(entries []reconcile.SessionEntry, raw string) (reconcile.SessionEntry, bool) {
	idx, err := strconv.Atoi(raw)
	if err != nil || idx < 1 || idx > len(entries) {
		return reconcile.SessionEntry{}, false
	}
	return entries[idx-1], true
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, err := reader.ReadString('\n')
	if err != nil {
		os.Exit(0)
	}
	return strings.TrimSpace(line)
}
