package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"chat-shell/internal/config"
	"chat-shell/internal/domain"
	"chat-shell/internal/format"
	"chat-shell/internal/kv"
	"chat-shell/internal/llm"
	"chat-shell/internal/local"
	"chat-shell/internal/service"
)

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	lang := local.ParseLanguage(cfg.UILanguage)

	// El CLI no abre postgres: memory, redis o pebble.
	store, closeStore, err := kv.Open(ctx, cfg, nil, logger)
	if err != nil {
		log.Fatalf("abrir storage: %v", err)
	}
	defer closeStore()

	llmClient, err := llm.NewFromConfig(cfg, local.PlaceholderReply.Text(lang), logger)
	if err != nil {
		log.Fatal(err)
	}

	chat := service.NewChatSession(service.ChatSessionDeps{
		Store:  store,
		LLM:    llmClient,
		Logger: logger,
	}, service.ChatSessionOptions{Language: lang, ReplyTimeout: cfg.ReplyTimeout})
	if err := chat.Init(ctx); err != nil {
		log.Fatalf("iniciar chat: %v", err)
	}
	defer chat.Close()

	chat.Subscribe(func(v domain.View) {
		if v.Typing {
			fmt.Println("... (escribiendo)")
		}
	})

	printHelp()
	for {
		fmt.Print("Tu > ")
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			log.Fatalf("leer input: %v", err)
		}
		line = strings.TrimSpace(line)

		switch {
		case line == "/quit":
			return
		case line == "/help":
			printHelp()
		case line == "/new":
			id, err := chat.CreateConversation()
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			fmt.Printf("Conversacion %s creada.\n", id)
		case line == "/list":
			printSidebar(chat.View())
		case strings.HasPrefix(line, "/load "):
			if err := chat.LoadConversation(strings.TrimSpace(strings.TrimPrefix(line, "/load "))); err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			printMessages(chat.View())
		case line == "/clear":
			cleared, err := chat.ClearAll(ctx, stdinConfirmer{reader: reader})
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			if cleared {
				fmt.Println("Historial borrado.")
			}
		default:
			before := len(chat.View().Messages)
			err := chat.SubmitMessage(ctx, line)
			if errors.Is(err, service.ErrReplyInFlight) {
				fmt.Println("Espera la respuesta anterior.")
				continue
			}
			if err != nil && !errors.Is(err, service.ErrReplyFailed) {
				fmt.Printf("Error: %v\n", err)
			}
			view := chat.View()
			for _, m := range view.Messages[min(before, len(view.Messages)):] {
				if !m.IsUser {
					fmt.Printf("IA > %s\n", format.Terminal(m.Content))
				}
			}
		}
	}
}

type stdinConfirmer struct {
	reader *bufio.Reader
}

func (c stdinConfirmer) Confirm(_ context.Context, prompt string) bool {
	fmt.Printf("%s [o/N]: ", prompt)
	answer, _ := c.reader.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "o", "oui", "y", "yes", "s", "si":
		return true
	default:
		return false
	}
}

func printHelp() {
	fmt.Println("==== Chat ====")
	fmt.Println("/new         nueva conversacion")
	fmt.Println("/list        listar conversaciones")
	fmt.Println("/load <id>   abrir conversacion")
	fmt.Println("/clear       borrar todo el historial")
	fmt.Println("/quit        salir")
}

func printSidebar(v domain.View) {
	if len(v.Sidebar) == 0 {
		fmt.Println("No hay conversaciones.")
		return
	}
	for _, item := range v.Sidebar {
		marker := " "
		if item.Active {
			marker = "*"
		}
		fmt.Printf("%s %s  %s\n", marker, item.ID, item.Title)
	}
}

func printMessages(v domain.View) {
	for _, m := range v.Messages {
		who := "IA"
		if m.IsUser {
			who = "Tu"
		}
		fmt.Printf("%s > %s\n", who, format.Terminal(m.Content))
	}
}
