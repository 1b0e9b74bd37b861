package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"community_chat_client/internal/chat/domain"
	"community_chat_client/internal/chat/repository"
	"community_chat_client/pkg"
	"community_chat_client/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChannelEmitter is the outbound half of the duplex channel
type ChannelEmitter interface {
	Emit(kind domain.EventKind, payload interface{}) error
}

var (
	// ErrSendThrottled dropped duplicate submit inside the debounce window
	ErrSendThrottled = errors.New("send throttled")
	// ErrNotOwner edit/delete attempted on a peer-authored message
	ErrNotOwner = errors.New("not the message owner")
	// ErrMessageNotFound target message is not in the local list
	ErrMessageNotFound = errors.New("message not found")
)

const defaultSendDebounce = 500 * time.Millisecond

// ConversationUseCase keeps the ordered in-memory message list of one
// open room consistent against the remote history store and the push
// channel. The list is a read-through cache of server state, never the
// source of truth: deletes are hard removals, and a reload replaces it
// wholesale.
type ConversationUseCase struct {
	roomID     string
	viewerID   string
	viewerName string

	history  repository.HistoryRepository
	writeAPI repository.MessageWriteAPI
	emitter  ChannelEmitter
	log      *logger.LogInfo

	sendDebounce time.Duration
	now          func() time.Time

	mu         sync.Mutex
	messages   []domain.Message
	ids        map[string]struct{}
	lastSendAt time.Time
}

// NewConversationUseCase create the store for one room. sendDebounce
// <= 0 falls back to the default 500ms.
func NewConversationUseCase(
	roomID, viewerID, viewerName string,
	history repository.HistoryRepository,
	writeAPI repository.MessageWriteAPI,
	emitter ChannelEmitter,
	sendDebounce time.Duration,
	log *logger.LogInfo,
) *ConversationUseCase {
	if sendDebounce <= 0 {
		sendDebounce = defaultSendDebounce
	}
	return &ConversationUseCase{
		roomID:       roomID,
		viewerID:     viewerID,
		viewerName:   viewerName,
		history:      history,
		writeAPI:     writeAPI,
		emitter:      emitter,
		log:          log,
		sendDebounce: sendDebounce,
		now:          time.Now,
	}
}

// RoomID the canonical room key this store serves
func (uc *ConversationUseCase) RoomID() string {
	return uc.roomID
}

// LoadHistory replaces the in-memory list wholesale with the remote
// history, then emits one batched read receipt for every inbound
// unread message. A failed fetch keeps the previous list: a transient
// blip must not look like "all messages vanished".
func (uc *ConversationUseCase) LoadHistory(ctx context.Context) error {
	msgs, err := uc.history.GetMessages(ctx, uc.roomID, uc.viewerID)
	if err != nil {
		uc.log.Warn("history fetch failed, keeping current list",
			zap.String("roomID", uc.roomID), zap.Error(err))
		return err
	}

	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt < msgs[j].CreatedAt
	})

	uc.mu.Lock()
	uc.messages = msgs
	uc.ids = make(map[string]struct{}, len(msgs))
	var unread []string
	for i := range uc.messages {
		m := &uc.messages[i]
		uc.ids[m.ID] = struct{}{}
		if m.SenderID != uc.viewerID && !m.IsRead {
			unread = append(unread, m.ID)
			m.IsRead = true
		}
	}
	uc.mu.Unlock()

	if len(unread) > 0 {
		// one signal for the whole batch, never one per message
		if err := uc.emitter.Emit(domain.EventReadMessage, domain.ReadPayload{
			RoomID:     uc.roomID,
			UserID:     uc.viewerID,
			MessageIDs: unread,
		}); err != nil {
			uc.log.Errorf("read receipt emit failed:", err)
		}
	}
	return nil
}

// Send appends an optimistic message to the local list and only then
// emits it outward. There is no wait for acknowledgment; the echo
// arriving later is a no-op because the backend keeps the client id.
// Rapid repeated submits inside the debounce window are dropped.
func (uc *ConversationUseCase) Send(text, replyTo string) (*domain.Message, error) {
	uc.mu.Lock()
	if uc.now().Sub(uc.lastSendAt) < uc.sendDebounce {
		uc.mu.Unlock()
		return nil, ErrSendThrottled
	}
	uc.lastSendAt = uc.now()

	var replyText string
	if replyTo != "" {
		for i := range uc.messages {
			if uc.messages[i].ID == replyTo {
				replyText = uc.messages[i].Text
				break
			}
		}
	}

	msg := domain.Message{
		ID:          uuid.New().String(),
		RoomID:      uc.roomID,
		SenderID:    uc.viewerID,
		SenderName:  uc.viewerName,
		Text:        text,
		CreatedAt:   uc.now().UnixMilli(),
		ReplyTo:     replyTo,
		ReplyToText: replyText,
	}
	uc.messages = append(uc.messages, msg)
	if uc.ids == nil {
		uc.ids = make(map[string]struct{})
	}
	uc.ids[msg.ID] = struct{}{}
	uc.mu.Unlock()

	if err := uc.emitter.Emit(domain.EventSendMessage, msg); err != nil {
		// the optimistic entry stays visible; the next history fetch
		// re-syncs whatever the server actually has
		uc.log.Errorf("send emit failed:", err)
		return &msg, err
	}
	return &msg, nil
}

// ApplyInbound inserts a channel-delivered message. Redelivery of an
// id already present (echo of an optimistic send, or a replay after
// reconnect) is a no-op.
func (uc *ConversationUseCase) ApplyInbound(msg domain.Message) {
	if msg.RoomID != uc.roomID {
		return
	}
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if _, ok := uc.ids[msg.ID]; ok {
		return
	}
	if uc.ids == nil {
		uc.ids = make(map[string]struct{})
	}
	uc.ids[msg.ID] = struct{}{}
	uc.messages = append(uc.messages, msg)
	// createdAt order, arrival order breaks ties
	sort.SliceStable(uc.messages, func(i, j int) bool {
		return uc.messages[i].CreatedAt < uc.messages[j].CreatedAt
	})
}

// ApplyEdit replaces the text of one message in place
func (uc *ConversationUseCase) ApplyEdit(messageID, newText string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	for i := range uc.messages {
		if uc.messages[i].ID == messageID {
			uc.messages[i].Text = newText
			return
		}
	}
}

// ApplyDelete removes messages by id, hard removal not tombstones
func (uc *ConversationUseCase) ApplyDelete(messageIDs []string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	kept := uc.messages[:0]
	for _, m := range uc.messages {
		if pkg.Contains(messageIDs, m.ID) {
			delete(uc.ids, m.ID)
			continue
		}
		kept = append(kept, m)
	}
	uc.messages = kept
}

// ApplyReadReceipt flips the read flag of the given ids
func (uc *ConversationUseCase) ApplyReadReceipt(messageIDs []string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	for i := range uc.messages {
		if pkg.Contains(messageIDs, uc.messages[i].ID) {
			uc.messages[i].IsRead = true
		}
	}
}

// Edit confirms an edit of an own message through the write API and
// then broadcasts it. Local state updates optimistically in parallel
// with the confirm call and is not rolled back on failure; the
// inconsistency window closes on the next history fetch.
func (uc *ConversationUseCase) Edit(ctx context.Context, messageID, newText string) error {
	if err := uc.requireOwner([]string{messageID}); err != nil {
		return err
	}
	uc.ApplyEdit(messageID, newText)

	if err := uc.writeAPI.EditMessage(ctx, uc.roomID, messageID, newText); err != nil {
		uc.log.Errorf("edit confirm failed:", err)
		return err
	}
	return uc.emitter.Emit(domain.EventEditMessage, domain.EditPayload{
		RoomID:    uc.roomID,
		MessageID: messageID,
		NewText:   newText,
	})
}

// Delete confirms deletion of own messages through the write API and
// then broadcasts it
func (uc *ConversationUseCase) Delete(ctx context.Context, messageIDs []string) error {
	messageIDs = pkg.Dedup(messageIDs)
	if err := uc.requireOwner(messageIDs); err != nil {
		return err
	}
	uc.ApplyDelete(messageIDs)

	if err := uc.writeAPI.DeleteMessages(ctx, uc.roomID, messageIDs); err != nil {
		uc.log.Errorf("delete confirm failed:", err)
		return err
	}
	return uc.emitter.Emit(domain.EventDeleteMessages, domain.DeletePayload{
		RoomID:     uc.roomID,
		MessageIDs: messageIDs,
	})
}

// requireOwner checks senderID equality before any request is issued
func (uc *ConversationUseCase) requireOwner(messageIDs []string) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	for _, id := range messageIDs {
		found := false
		for i := range uc.messages {
			if uc.messages[i].ID == id {
				found = true
				if uc.messages[i].SenderID != uc.viewerID {
					return ErrNotOwner
				}
				break
			}
		}
		if !found {
			return ErrMessageNotFound
		}
	}
	return nil
}

// HandleEvent routes room-scoped channel events into the list
func (uc *ConversationUseCase) HandleEvent(evt domain.Event) {
	switch evt.Kind {
	case domain.EventReceiveMessage:
		uc.ApplyInbound(*evt.Message)
	case domain.EventMessagesRead:
		if evt.Read.RoomID == uc.roomID {
			uc.ApplyReadReceipt(evt.Read.MessageIDs)
		}
	case domain.EventMessageEdited:
		if evt.Edit.RoomID == uc.roomID {
			uc.ApplyEdit(evt.Edit.MessageID, evt.Edit.NewText)
		}
	case domain.EventMessageDeleted:
		if evt.Delete.RoomID == uc.roomID {
			uc.ApplyDelete(evt.Delete.MessageIDs)
		}
	}
}

// Messages returns a snapshot copy of the ordered list
func (uc *ConversationUseCase) Messages() []domain.Message {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	out := make([]domain.Message, len(uc.messages))
	copy(out, uc.messages)
	return out
}

// Unread returns the unread summary of this room: inbound messages the
// viewer has not read yet
func (uc *ConversationUseCase) Unread() domain.RoomUnreadInfo {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	info := domain.RoomUnreadInfo{RoomID: uc.roomID}
	for i := range uc.messages {
		if uc.messages[i].SenderID != uc.viewerID && !uc.messages[i].IsRead {
			info.UnreadCount++
		}
	}
	return info
}
