package domain

// Kind classifies a notification for the surface that renders it
type Kind string

const (
	// KindMessage a chat message notification
	KindMessage Kind = "message"
	// KindInfo an informational toast from elsewhere in the app
	KindInfo Kind = "info"
	// KindError a transient error notice
	KindError Kind = "error"
)

// Notification is one deliverable notification. RoomID and SenderID
// are carried so a click-through can deep-link back to the right
// conversation.
type Notification struct {
	RoomID   string `json:"room_id,omitempty"`
	SenderID string `json:"sender_id,omitempty"`
	Title    string `json:"title"`
	Text     string `json:"text"`
	Image    string `json:"image,omitempty"`
	Kind     Kind   `json:"kind"`
}

// DeliveryKey is the best-effort dedup key of a notification. It is
// room plus text, not a message id, because the same logical
// notification can arrive over more than one delivery path with
// differing ids.
func DeliveryKey(roomID, text string) string {
	return roomID + "|" + text
}
