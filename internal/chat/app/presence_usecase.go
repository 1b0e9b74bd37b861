package app

import (
	"context"
	"sync"
	"time"

	"community_chat_client/internal/chat/domain"
	"community_chat_client/internal/chat/repository"
	"community_chat_client/pkg/logger"

	"go.uber.org/zap"
)

const defaultTypingIdle = 2 * time.Second

// PresenceUseCase tracks the remote peer of one open conversation:
// online/offline/last-seen plus the transient typing flag, and drives
// the debounced outbound typing signal for the local user. Presence is
// never polled; after the one snapshot fetch on open, only channel
// events update it.
type PresenceUseCase struct {
	roomID string
	selfID string
	peerID string

	profiles repository.ProfileRepository
	emitter  ChannelEmitter
	log      *logger.LogInfo

	typingIdle time.Duration

	mu           sync.Mutex
	peer         domain.PresenceState
	peerTyping   bool
	selfTyping   bool
	idleTimer    *time.Timer
	onPeerTyping func(bool)
}

// NewPresenceUseCase create the tracker for one room. typingIdle <= 0
// falls back to the default 2s window.
func NewPresenceUseCase(
	roomID, selfID, peerID string,
	profiles repository.ProfileRepository,
	emitter ChannelEmitter,
	typingIdle time.Duration,
	log *logger.LogInfo,
) *PresenceUseCase {
	if typingIdle <= 0 {
		typingIdle = defaultTypingIdle
	}
	return &PresenceUseCase{
		roomID:     roomID,
		selfID:     selfID,
		peerID:     peerID,
		profiles:   profiles,
		emitter:    emitter,
		log:        log,
		typingIdle: typingIdle,
	}
}

// Open fetches the peer's current state once via a direct read so the
// conversation header is accurate before any live event arrives.
func (uc *PresenceUseCase) Open(ctx context.Context) (*domain.UserProfile, error) {
	profile, err := uc.profiles.GetProfile(ctx, uc.peerID)
	if err != nil {
		return nil, err
	}
	uc.mu.Lock()
	uc.peer = domain.PresenceState{IsOnline: profile.IsOnline, LastSeen: profile.LastSeen}
	uc.mu.Unlock()
	return profile, nil
}

// OnPeerTyping registers the view callback fired on every inbound peer
// typing change. A true value also means the indicator takes vertical
// space, so the view should nudge its scroll position.
func (uc *PresenceUseCase) OnPeerTyping(f func(bool)) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.onPeerTyping = f
}

// Keystroke records local typing activity. The first keystroke of a
// burst emits typing=true; each one pushes the idle timer out, and the
// timer expiring emits typing=false. A burst therefore produces exactly
// one true/false pair no matter how many keys were hit.
func (uc *PresenceUseCase) Keystroke() {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if !uc.selfTyping {
		uc.selfTyping = true
		uc.emitTyping(true)
	}
	if uc.idleTimer != nil {
		uc.idleTimer.Stop()
	}
	uc.idleTimer = time.AfterFunc(uc.typingIdle, uc.typingIdleExpired)
}

func (uc *PresenceUseCase) typingIdleExpired() {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if !uc.selfTyping {
		return
	}
	uc.selfTyping = false
	uc.emitTyping(false)
}

// MessageSent clears the typing state immediately so the peer does not
// keep seeing "still typing" right after the message appeared.
func (uc *PresenceUseCase) MessageSent() {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.idleTimer != nil {
		uc.idleTimer.Stop()
		uc.idleTimer = nil
	}
	if uc.selfTyping {
		uc.selfTyping = false
		uc.emitTyping(false)
	}
}

// emitTyping caller must hold uc.mu
func (uc *PresenceUseCase) emitTyping(isTyping bool) {
	err := uc.emitter.Emit(domain.EventTyping, domain.TypingPayload{
		RoomID:   uc.roomID,
		UserID:   uc.selfID,
		IsTyping: isTyping,
	})
	if err != nil {
		// typing is ephemeral, a lost signal corrects itself
		uc.log.Debug("typing emit failed", zap.Error(err))
	}
}

// ApplyTyping handles an inbound typing event. Echoes of the local
// user and other rooms are ignored.
func (uc *PresenceUseCase) ApplyTyping(p domain.TypingPayload) {
	if p.RoomID != uc.roomID || p.UserID == uc.selfID {
		return
	}
	uc.mu.Lock()
	uc.peerTyping = p.IsTyping
	cb := uc.onPeerTyping
	uc.mu.Unlock()
	if cb != nil {
		cb(p.IsTyping)
	}
}

// ApplyStatus handles an inbound presence event for the peer
func (uc *PresenceUseCase) ApplyStatus(p domain.StatusPayload) {
	if p.UserID != uc.peerID {
		return
	}
	uc.mu.Lock()
	uc.peer.IsOnline = p.IsOnline
	if p.LastSeen != 0 {
		uc.peer.LastSeen = p.LastSeen
	}
	uc.mu.Unlock()
}

// HandleEvent routes presence-relevant channel events
func (uc *PresenceUseCase) HandleEvent(evt domain.Event) {
	switch evt.Kind {
	case domain.EventDisplayTyping:
		uc.ApplyTyping(*evt.Typing)
	case domain.EventUserStatus:
		uc.ApplyStatus(*evt.Status)
	}
}

// Peer current presence state of the remote participant
func (uc *PresenceUseCase) Peer() domain.PresenceState {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.peer
}

// PeerTyping whether the remote participant is typing right now
func (uc *PresenceUseCase) PeerTyping() bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.peerTyping
}

// Close stops the idle timer; pending typing state is dropped, not
// emitted
func (uc *PresenceUseCase) Close() {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.idleTimer != nil {
		uc.idleTimer.Stop()
		uc.idleTimer = nil
	}
	uc.selfTyping = false
}
