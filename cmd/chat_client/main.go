package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	chatapp "community_chat_client/internal/chat/app"
	"community_chat_client/internal/chat/domain"
	"community_chat_client/internal/chat/repository"
	"community_chat_client/internal/chat/transport"
	notifyapp "community_chat_client/internal/notify/app"
	"community_chat_client/pkg/config"
	"community_chat_client/pkg/logger"
	"community_chat_client/pkg/token"
)

func main() {
	var (
		peerID     = flag.String("peer", "", "user id to open a conversation with")
		sessionTok = flag.String("token", "", "session JWT, falls back to SESSION_TOKEN")
	)
	flag.Parse()

	logger.Log = logger.Initialize(config.EnvConfig.ChatClient, config.EnvConfig.ChatClientLogPath)
	defer logger.Log.Sync()
	cfg := config.LoadConfig[config.ChatClient](config.EnvConfig.ChatClient, config.EnvConfig.ChatClientYAMLPath)

	tok := *sessionTok
	if tok == "" {
		tok = config.EnvConfig.SessionToken
	}
	if tok == "" {
		log.Fatal("no session token: pass -token or set SESSION_TOKEN")
	}
	if *peerID == "" {
		log.Fatal("no peer: pass -peer <user id>")
	}

	claims, err := token.ParseJWT(tok)
	if err != nil {
		log.Fatalf("bad session token: %v", err)
	}
	userID := claims.UserID

	ctx := context.Background()
	rest := repository.NewRESTClient(cfg.APIBaseURL, tok)

	userName := userID
	if profile, err := rest.GetProfile(ctx, userID); err == nil && profile.DisplayName != "" {
		userName = profile.DisplayName
	}

	channel, err := transport.Open(transport.Options{
		URL:            cfg.ChannelURL,
		SessionToken:   tok,
		SessionUserID:  userID,
		InitialBackoff: cfg.Reconnect.InitialBackoff,
		MaxBackoff:     cfg.Reconnect.MaxBackoff,
		PingInterval:   cfg.Reconnect.PingInterval,
		Log:            logger.Log,
	})
	if err != nil {
		log.Fatalf("open channel: %v", err)
	}
	defer channel.Close()

	dispatcher := notifyapp.NewDispatcher(notifyapp.Options{
		SessionUserID: userID,
		Visibility:    notifyapp.VisibilityFunc(func() bool { return true }),
		Toaster:       &notifyapp.ConsoleToaster{Out: os.Stdout},
		Audio:         &notifyapp.BellAudio{Out: os.Stdout},
		Direct:        &notifyapp.ConsoleSystemNotifier{Out: os.Stdout},
		DedupWindow:   cfg.Notification.DedupWindow,
		Log:           logger.Log,
	})
	defer dispatcher.Close()

	session := chatapp.NewChatSession(
		userID, userName,
		channel, rest, rest, rest, dispatcher,
		chatapp.SessionConfig{
			SendDebounce: cfg.Conversation.SendDebounce,
			TypingIdle:   cfg.Conversation.TypingIdle,
		},
		logger.Log,
	)

	channel.WaitConnected(10 * time.Second)
	conv, pres := session.OpenConversation(ctx, *peerID)
	defer session.CloseConversation()

	pres.OnPeerTyping(func(isTyping bool) {
		if isTyping {
			fmt.Printf("-- %s is typing...\n", *peerID)
		}
	})

	for _, msg := range conv.Messages() {
		printMessage(msg)
	}
	fmt.Printf("connected as %s, talking to %s. /help for commands\n", userName, *peerID)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := runCommand(ctx, line, session, conv, dispatcher); quit {
				return
			}
			continue
		}

		pres.Keystroke()
		if _, err := conv.Send(line, ""); err != nil {
			fmt.Printf("!! send failed: %v\n", err)
			continue
		}
		pres.MessageSent()
	}
}

func runCommand(ctx context.Context, line string, session *chatapp.ChatSession, conv *chatapp.ConversationUseCase, dispatcher *notifyapp.Dispatcher) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/help":
		fmt.Println("/history  /edit <id> <text>  /delete <id...>  /mute  /refresh  /quit")

	case "/history":
		for _, msg := range conv.Messages() {
			printMessage(msg)
		}

	case "/edit":
		if len(fields) < 3 {
			fmt.Println("usage: /edit <id> <text>")
			return false
		}
		if err := conv.Edit(ctx, fields[1], strings.Join(fields[2:], " ")); err != nil {
			fmt.Printf("!! edit failed: %v\n", err)
		}

	case "/delete":
		if len(fields) < 2 {
			fmt.Println("usage: /delete <id...>")
			return false
		}
		if err := conv.Delete(ctx, fields[1:]); err != nil {
			fmt.Printf("!! delete failed: %v\n", err)
		}

	case "/mute":
		muted := !dispatcher.Muted()
		dispatcher.SetMuted(muted)
		fmt.Printf("notifications muted: %v\n", muted)

	case "/refresh":
		// same path the client runs when the surface becomes visible again
		session.VisibilityRegained(ctx)
		for _, msg := range conv.Messages() {
			printMessage(msg)
		}

	case "/quit":
		return true

	default:
		fmt.Printf("unknown command %s\n", fields[0])
	}
	return false
}

func printMessage(msg domain.Message) {
	ts := time.UnixMilli(msg.CreatedAt).Format("15:04:05")
	read := " "
	if msg.IsRead {
		read = "✓"
	}
	fmt.Printf("[%s]%s %s (%s): %s\n", ts, read, msg.SenderName, msg.ID, msg.Text)
}
