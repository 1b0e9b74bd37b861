package app

import (
	"context"
	"sync"
	"time"

	"community_chat_client/internal/chat/domain"
	"community_chat_client/internal/chat/repository"
	"community_chat_client/internal/chat/transport"
	notifydomain "community_chat_client/internal/notify/domain"
	"community_chat_client/pkg/logger"

	"go.uber.org/zap"
)

// SessionChannel is what the session needs from the connection manager
type SessionChannel interface {
	Emit(kind domain.EventKind, payload interface{}) error
	JoinRoom(roomID string) error
	LeaveRoom()
	EnsureConnected()
	OnEvent(h transport.Handler)
	OnReconnect(f func())
}

// NotificationSink is the dispatcher side the session feeds. Only the
// global receiveNotification stream goes through it.
type NotificationSink interface {
	Dispatch(n notifydomain.Notification) bool
}

// SessionConfig tuning knobs handed down to per-room use cases
type SessionConfig struct {
	SendDebounce time.Duration
	TypingIdle   time.Duration
}

// ChatSession routes channel events for one signed-in user. The
// notification listener is global and lives as long as the session;
// room-scoped listeners exist only while a conversation is open and
// detach when it closes.
type ChatSession struct {
	userID   string
	userName string

	channel    SessionChannel
	history    repository.HistoryRepository
	profiles   repository.ProfileRepository
	writeAPI   repository.MessageWriteAPI
	dispatcher NotificationSink
	cfg        SessionConfig
	log        *logger.LogInfo

	mu   sync.Mutex
	conv *ConversationUseCase
	pres *PresenceUseCase
}

// NewChatSession wires the global event route for one session
func NewChatSession(
	userID, userName string,
	channel SessionChannel,
	history repository.HistoryRepository,
	profiles repository.ProfileRepository,
	writeAPI repository.MessageWriteAPI,
	dispatcher NotificationSink,
	cfg SessionConfig,
	log *logger.LogInfo,
) *ChatSession {
	s := &ChatSession{
		userID:     userID,
		userName:   userName,
		channel:    channel,
		history:    history,
		profiles:   profiles,
		writeAPI:   writeAPI,
		dispatcher: dispatcher,
		cfg:        cfg,
		log:        log,
	}
	channel.OnEvent(s.route)
	return s
}

// UserID the signed-in user this session serves
func (s *ChatSession) UserID() string {
	return s.userID
}

// route fans one inbound frame out. Notifications are handled no
// matter which room is open; everything else only reaches the
// currently open conversation.
func (s *ChatSession) route(evt domain.Event) {
	if evt.Kind == domain.EventReceiveNotification {
		s.dispatcher.Dispatch(notifydomain.Notification{
			RoomID:   evt.Notification.RoomID,
			SenderID: evt.Notification.SenderID,
			Title:    evt.Notification.Title,
			Text:     evt.Notification.Text,
			Image:    evt.Notification.Image,
			Kind:     notifydomain.KindMessage,
		})
		return
	}

	s.mu.Lock()
	conv, pres := s.conv, s.pres
	s.mu.Unlock()
	if conv != nil {
		conv.HandleEvent(evt)
	}
	if pres != nil {
		pres.HandleEvent(evt)
	}
}

// OpenConversation joins the canonical room for the peer, fetches the
// presence snapshot and loads history. Snapshot or history failures
// are not fatal: the room stays open on whatever state there is, the
// channel's own recovery closes the gap later.
func (s *ChatSession) OpenConversation(ctx context.Context, peerID string) (*ConversationUseCase, *PresenceUseCase) {
	roomID := domain.ResolveRoomID(s.userID, peerID)

	conv := NewConversationUseCase(
		roomID, s.userID, s.userName,
		s.history, s.writeAPI, s.channel,
		s.cfg.SendDebounce, s.log,
	)
	pres := NewPresenceUseCase(
		roomID, s.userID, peerID,
		s.profiles, s.channel,
		s.cfg.TypingIdle, s.log,
	)

	s.mu.Lock()
	if s.pres != nil {
		s.pres.Close()
	}
	s.conv, s.pres = conv, pres
	s.mu.Unlock()

	if err := s.channel.JoinRoom(roomID); err != nil {
		// the channel re-joins by itself once it is back up
		s.log.Warn("join deferred until reconnect",
			zap.String("roomID", roomID), zap.Error(err))
	}
	if _, err := pres.Open(ctx); err != nil {
		s.log.Warn("presence snapshot failed",
			zap.String("peerID", peerID), zap.Error(err))
	}
	if err := conv.LoadHistory(ctx); err != nil {
		s.log.Warn("initial history load failed",
			zap.String("roomID", roomID), zap.Error(err))
	}

	return conv, pres
}

// CloseConversation detaches the room-scoped listeners. The global
// notification route stays attached for the rest of the session.
func (s *ChatSession) CloseConversation() {
	s.mu.Lock()
	conv, pres := s.conv, s.pres
	s.conv, s.pres = nil, nil
	s.mu.Unlock()

	if pres != nil {
		pres.Close()
	}
	if conv != nil {
		s.channel.LeaveRoom()
	}
}

// VisibilityRegained runs the catch-up protocol after the host surface
// was hidden or suspended: make sure the transport is up, then refetch
// the active room's history because pushes may have been silently
// missed.
func (s *ChatSession) VisibilityRegained(ctx context.Context) {
	s.channel.EnsureConnected()

	s.mu.Lock()
	conv := s.conv
	s.mu.Unlock()
	if conv != nil {
		if err := conv.LoadHistory(ctx); err != nil {
			s.log.Warn("catch-up history fetch failed", zap.Error(err))
		}
	}
}
