package domain

// Message represents one message inside a two-party conversation. IDs
// are client-generated; the backend echoes the id unchanged so an
// optimistic entry and its confirmed echo always collide by id.
type Message struct {
	ID          string `json:"id"`
	RoomID      string `json:"room_id"`
	SenderID    string `json:"sender_id"`
	SenderName  string `json:"sender_name"`
	SenderPhoto string `json:"sender_photo,omitempty"`
	Text        string `json:"text"`
	CreatedAt   int64  `json:"created_at"` // unix milliseconds
	IsRead      bool   `json:"is_read"`
	ReplyTo     string `json:"reply_to,omitempty"`
	ReplyToText string `json:"reply_to_text,omitempty"`
}

// PresenceState online/offline and last-seen of one peer
type PresenceState struct {
	IsOnline bool  `json:"is_online"`
	LastSeen int64 `json:"last_seen,omitempty"` // unix milliseconds, 0 when unknown
}

// UserProfile is the profile record the platform's user store returns.
// Presence fields ride along so the conversation header is accurate
// before any live event arrives.
type UserProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url,omitempty"`
	Role        string `json:"role,omitempty"`
	IsOnline    bool   `json:"is_online"`
	LastSeen    int64  `json:"last_seen,omitempty"`
}

// RoomUnreadInfo definition unread summary of one room
type RoomUnreadInfo struct {
	RoomID      string `json:"room_id"`
	UnreadCount int    `json:"unread_count"`
}
