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

	"mentor-chat/internal/config"
	"mentor-chat/internal/db"
	"mentor-chat/internal/domain"
	"mentor-chat/internal/llm"
	"mentor-chat/internal/repository"
	"mentor-chat/internal/service"
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

	var kv repository.KVStore = repository.NewMemoryKV()
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			log.Fatal(err)
		}
		defer pool.Close()
		pgKV := repository.NewPgKVStore(pool)
		if err := pgKV.Init(ctx); err != nil {
			log.Fatal(err)
		}
		kv = pgKV
	}

	sessionRepo := repository.NewKVSessionRepository(kv)
	streamClient := llm.NewHTTPClient(cfg.BackendURL, cfg.BackendAPIKey, cfg.SystemInstruction, logger)

	chatSvc, err := service.NewChatService(ctx, sessionRepo, streamClient, logger)
	if err != nil {
		log.Fatal(err)
	}

	// Revelado progresivo: se imprime cada delta del turno del modelo a
	// medida que llega, no la respuesta entera al final.
	var printed int
	chatSvc.Subscribe(func(msgs []domain.Message) {
		if len(msgs) == 0 {
			return
		}
		last := msgs[len(msgs)-1]
		if last.Role != domain.RoleModel || last.IsError {
			return
		}
		if len(last.Text) > printed {
			fmt.Print(last.Text[printed:])
			printed = len(last.Text)
		}
	})

	fmt.Println("---- Mentori (shkruaj 'exit' per te dale, '/new' bisede e re, '/list' sesionet) ----")
	for {
		fmt.Print("\nTi > ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "salir") {
			return
		}

		switch {
		case line == "/new":
			if err := chatSvc.NewChat(ctx); err != nil {
				fmt.Printf("error: %v\n", err)
			}
			continue
		case line == "/list":
			printSessions(chatSvc)
			continue
		case strings.HasPrefix(line, "/open "):
			openSession(ctx, chatSvc, strings.TrimPrefix(line, "/open "))
			continue
		}

		printed = 0
		fmt.Print("Mentori > ")
		if err := chatSvc.Send(ctx, line, nil); err != nil {
			if errors.Is(err, service.ErrBusy) {
				fmt.Println("(ka një dërgim në progres)")
				continue
			}
			// El turno de error ya quedó impreso/persistido; se muestra el
			// texto final del transcript.
			msgs := chatSvc.Transcript()
			if len(msgs) > 0 && msgs[len(msgs)-1].IsError {
				fmt.Print(msgs[len(msgs)-1].Text)
			}
		}
		fmt.Println()
	}
}

func printSessions(chatSvc *service.ChatService) {
	sessions := chatSvc.Sessions()
	if len(sessions) == 0 {
		fmt.Println("(nuk ka sesione)")
		return
	}
	for i, s := range sessions {
		marker := " "
		if s.ID == chatSvc.ActiveID() {
			marker = "*"
		}
		fmt.Printf("%s [%d] %s (%d mesazhe)\n", marker, i+1, s.Title, len(s.Messages))
	}
}

func openSession(ctx context.Context, chatSvc *service.ChatService, arg string) {
	idx, err := strconv.Atoi(strings.TrimSpace(arg))
	sessions := chatSvc.Sessions()
	if err != nil || idx < 1 || idx > len(sessions) {
		fmt.Println("sesion i pavlefshem")
		return
	}
	sess := sessions[idx-1]
	if err := chatSvc.SetActive(ctx, sess.ID); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	for _, m := range sess.Messages {
		who := "Ti"
		if m.Role == domain.RoleModel {
			who = "Mentori"
		}
		fmt.Printf("%s > %s\n", who, m.Text)
	}
}
