package domain

import (
	"encoding/json"
	"fmt"
)

// EventKind names one frame on the duplex channel. The set is closed:
// DecodeEvent rejects anything outside it, so dispatch can switch on
// Kind without a string fallthrough.
type EventKind string

const (
	// EventJoinRoom announce interest in a room (outbound)
	EventJoinRoom EventKind = "joinRoom"
	// EventSendMessage send one message (outbound)
	EventSendMessage EventKind = "sendMessage"
	// EventTyping local typing signal (outbound)
	EventTyping EventKind = "typing"
	// EventReadMessage batched read receipt (outbound)
	EventReadMessage EventKind = "readMessage"
	// EventEditMessage broadcast of a confirmed edit (outbound)
	EventEditMessage EventKind = "editMessage"
	// EventDeleteMessages broadcast of a confirmed delete (outbound)
	EventDeleteMessages EventKind = "deleteMessages"
	// EventPresence liveness announce carrying the session user id (outbound)
	EventPresence EventKind = "presence"

	// EventReceiveMessage message pushed into a joined room (inbound)
	EventReceiveMessage EventKind = "receiveMessage"
	// EventDisplayTyping peer typing state (inbound)
	EventDisplayTyping EventKind = "displayTyping"
	// EventUserStatus peer online/offline (inbound)
	EventUserStatus EventKind = "userStatus"
	// EventMessagesRead peer read receipt (inbound)
	EventMessagesRead EventKind = "messagesReadUpdate"
	// EventMessageEdited peer edit (inbound)
	EventMessageEdited EventKind = "messageEdited"
	// EventMessageDeleted peer delete (inbound)
	EventMessageDeleted EventKind = "messageDeleted"
	// EventReceiveNotification global push independent of room membership (inbound)
	EventReceiveNotification EventKind = "receiveNotification"
)

// JoinRoomPayload payload of EventJoinRoom
type JoinRoomPayload struct {
	RoomID string `json:"room_id"`
}

// TypingPayload payload of EventTyping / EventDisplayTyping
type TypingPayload struct {
	RoomID   string `json:"room_id"`
	UserID   string `json:"user_id"`
	IsTyping bool   `json:"is_typing"`
}

// ReadPayload payload of EventReadMessage / EventMessagesRead
type ReadPayload struct {
	RoomID     string   `json:"room_id"`
	UserID     string   `json:"user_id"`
	MessageIDs []string `json:"message_ids"`
}

// EditPayload payload of EventEditMessage / EventMessageEdited
type EditPayload struct {
	RoomID    string `json:"room_id"`
	MessageID string `json:"message_id"`
	NewText   string `json:"new_text"`
}

// DeletePayload payload of EventDeleteMessages / EventMessageDeleted
type DeletePayload struct {
	RoomID     string   `json:"room_id"`
	MessageIDs []string `json:"message_ids"`
}

// StatusPayload payload of EventUserStatus
type StatusPayload struct {
	UserID   string `json:"user_id"`
	IsOnline bool   `json:"is_online"`
	LastSeen int64  `json:"last_seen,omitempty"`
}

// PresencePayload payload of EventPresence
type PresencePayload struct {
	UserID string `json:"user_id"`
}

// NotificationPayload payload of EventReceiveNotification. RoomID and
// SenderID are the deep-link metadata a click-through needs.
type NotificationPayload struct {
	RoomID   string `json:"room_id"`
	SenderID string `json:"sender_id"`
	Title    string `json:"title"`
	Text     string `json:"text"`
	Image    string `json:"image,omitempty"`
}

// Event is the decoded tagged variant of one channel frame. Exactly the
// field matching Kind is non-nil.
type Event struct {
	Kind EventKind

	Join         *JoinRoomPayload
	Message      *Message
	Typing       *TypingPayload
	Read         *ReadPayload
	Edit         *EditPayload
	Delete       *DeletePayload
	Status       *StatusPayload
	Presence     *PresencePayload
	Notification *NotificationPayload
}

// envelope is the wire shape of a frame
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EncodeEvent serializes one frame for the channel
func EncodeEvent(kind EventKind, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return json.Marshal(envelope{Event: string(kind), Data: data})
}

// DecodeEvent parses one frame into the closed Event variant. Frames
// with an unknown event name are an error, not a silent drop, so a
// protocol drift shows up in logs instead of vanishing.
func DecodeEvent(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, fmt.Errorf("decode frame: %w", err)
	}

	evt := Event{Kind: EventKind(env.Event)}
	var err error
	switch evt.Kind {
	case EventJoinRoom:
		evt.Join = &JoinRoomPayload{}
		err = json.Unmarshal(env.Data, evt.Join)
	case EventSendMessage, EventReceiveMessage:
		evt.Message = &Message{}
		err = json.Unmarshal(env.Data, evt.Message)
	case EventTyping, EventDisplayTyping:
		evt.Typing = &TypingPayload{}
		err = json.Unmarshal(env.Data, evt.Typing)
	case EventReadMessage, EventMessagesRead:
		evt.Read = &ReadPayload{}
		err = json.Unmarshal(env.Data, evt.Read)
	case EventEditMessage, EventMessageEdited:
		evt.Edit = &EditPayload{}
		err = json.Unmarshal(env.Data, evt.Edit)
	case EventDeleteMessages, EventMessageDeleted:
		evt.Delete = &DeletePayload{}
		err = json.Unmarshal(env.Data, evt.Delete)
	case EventUserStatus:
		evt.Status = &StatusPayload{}
		err = json.Unmarshal(env.Data, evt.Status)
	case EventPresence:
		evt.Presence = &PresencePayload{}
		err = json.Unmarshal(env.Data, evt.Presence)
	case EventReceiveNotification:
		evt.Notification = &NotificationPayload{}
		err = json.Unmarshal(env.Data, evt.Notification)
	default:
		return Event{}, fmt.Errorf("unknown event kind %q", env.Event)
	}
	if err != nil {
		return Event{}, fmt.Errorf("decode %s payload: %w", evt.Kind, err)
	}
	return evt, nil
}
