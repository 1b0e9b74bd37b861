package devserver

import (
	"strings"
	"sync"

	"community_chat_client/internal/chat/domain"
	"community_chat_client/pkg/logger"
	"community_chat_client/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// client is one live websocket connection of one user
type client struct {
	userID string
	conn   *websocket.Conn
	mu     sync.Mutex
}

func (c *client) send(kind domain.EventKind, payload interface{}) {
	raw, err := domain.EncodeEvent(kind, payload)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.WriteMessage(websocket.TextMessage, raw)
}

// Hub fans channel events out to connected clients. Room membership is
// per connection and dropped with it, which is exactly why clients
// re-join after every reconnect.
type Hub struct {
	store *Store
	log   *logger.LogInfo

	mu     sync.Mutex
	byUser map[string]map[*client]struct{}
	rooms  map[string]map[*client]struct{}
}

// NewHub create a Hub over the store
func NewHub(store *Store, log *logger.LogInfo) *Hub {
	return &Hub{
		store:  store,
		log:    log,
		byUser: make(map[string]map[*client]struct{}),
		rooms:  make(map[string]map[*client]struct{}),
	}
}

// HandleConnection is the websocket entry point, one call per upgrade
func (h *Hub) HandleConnection(conn *websocket.Conn) {
	userID, _ := conn.Locals(middlewares.TokenUserID).(string)
	cli := &client{userID: userID, conn: conn}

	h.register(cli)
	h.log.Info("client connected", zap.String("userID", userID))

	defer func() {
		h.unregister(cli)
		conn.Close()
		h.log.Info("client disconnected", zap.String("userID", userID))
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				return
			}
			h.log.Debug("read error", zap.Error(err))
			return
		}

		evt, err := domain.DecodeEvent(raw)
		if err != nil {
			h.log.Warn("dropping bad frame", zap.String("userID", userID), zap.Error(err))
			continue
		}
		h.handle(cli, evt)
	}
}

func (h *Hub) handle(cli *client, evt domain.Event) {
	switch evt.Kind {
	case domain.EventPresence:
		// liveness announce, presence comes from the connection itself

	case domain.EventJoinRoom:
		h.join(cli, evt.Join.RoomID)

	case domain.EventSendMessage:
		msg := *evt.Message
		msg.SenderID = cli.userID
		if !h.store.Append(msg) {
			return
		}
		// echo keeps the client-chosen id so the optimistic entry and
		// its confirmation collide
		h.toRoom(msg.RoomID, "", domain.EventReceiveMessage, msg)
		h.notifyParticipants(msg)

	case domain.EventTyping:
		h.toRoom(evt.Typing.RoomID, cli.userID, domain.EventDisplayTyping, *evt.Typing)

	case domain.EventReadMessage:
		h.store.MarkRead(evt.Read.RoomID, evt.Read.MessageIDs)
		h.toRoom(evt.Read.RoomID, cli.userID, domain.EventMessagesRead, *evt.Read)

	case domain.EventEditMessage:
		h.toRoom(evt.Edit.RoomID, cli.userID, domain.EventMessageEdited, *evt.Edit)

	case domain.EventDeleteMessages:
		h.toRoom(evt.Delete.RoomID, cli.userID, domain.EventMessageDeleted, *evt.Delete)

	default:
		h.log.Warn("unexpected inbound kind", zap.String("kind", string(evt.Kind)))
	}
}

func (h *Hub) register(cli *client) {
	h.mu.Lock()
	if h.byUser[cli.userID] == nil {
		h.byUser[cli.userID] = make(map[*client]struct{})
	}
	h.byUser[cli.userID][cli] = struct{}{}
	h.mu.Unlock()

	h.store.SetPresence(cli.userID, true)
	h.broadcastStatus(cli.userID)
}

func (h *Hub) unregister(cli *client) {
	h.mu.Lock()
	delete(h.byUser[cli.userID], cli)
	lastConn := len(h.byUser[cli.userID]) == 0
	for _, members := range h.rooms {
		delete(members, cli)
	}
	h.mu.Unlock()

	if lastConn {
		h.store.SetPresence(cli.userID, false)
		h.broadcastStatus(cli.userID)
	}
}

func (h *Hub) join(cli *client, roomID string) {
	h.mu.Lock()
	// one active room per connection
	for _, members := range h.rooms {
		delete(members, cli)
	}
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*client]struct{})
	}
	h.rooms[roomID][cli] = struct{}{}
	h.mu.Unlock()
}

// toRoom fan a frame to every member of roomID except excludeUser
func (h *Hub) toRoom(roomID, excludeUser string, kind domain.EventKind, payload interface{}) {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.rooms[roomID]))
	for cli := range h.rooms[roomID] {
		if excludeUser != "" && cli.userID == excludeUser {
			continue
		}
		targets = append(targets, cli)
	}
	h.mu.Unlock()

	for _, cli := range targets {
		cli.send(kind, payload)
	}
}

// notifyParticipants pushes the global notification to every
// connection of the other room participant, joined or not
func (h *Hub) notifyParticipants(msg domain.Message) {
	payload := domain.NotificationPayload{
		RoomID:   msg.RoomID,
		SenderID: msg.SenderID,
		Title:    msg.SenderName,
		Text:     msg.Text,
		Image:    msg.SenderPhoto,
	}

	for _, userID := range strings.SplitN(msg.RoomID, "_", 2) {
		if userID == msg.SenderID {
			continue
		}
		h.mu.Lock()
		targets := make([]*client, 0, len(h.byUser[userID]))
		for cli := range h.byUser[userID] {
			targets = append(targets, cli)
		}
		h.mu.Unlock()
		for _, cli := range targets {
			cli.send(domain.EventReceiveNotification, payload)
		}
	}
}

// broadcastStatus fan a presence change to every connected client
func (h *Hub) broadcastStatus(userID string) {
	profile, _ := h.store.Profile(userID)
	payload := domain.StatusPayload{
		UserID:   userID,
		IsOnline: profile.IsOnline,
		LastSeen: profile.LastSeen,
	}

	h.mu.Lock()
	targets := make([]*client, 0)
	for _, conns := range h.byUser {
		for cli := range conns {
			if cli.userID == userID {
				continue
			}
			targets = append(targets, cli)
		}
	}
	h.mu.Unlock()

	for _, cli := range targets {
		cli.send(domain.EventUserStatus, payload)
	}
}
