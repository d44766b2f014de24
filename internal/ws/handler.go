package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"

	"reclaim/internal/inbox"
	"reclaim/internal/models"
	"reclaim/internal/observability"
)

const wsRoutingKey = "ws_events.chats"

// MessageSender persists and publishes a submitted message.
type MessageSender interface {
	Send(ctx context.Context, in inbox.SendInput) (inbox.Sent, error)
}

// ChatWebSocketHandler handles conversation websocket connections.
type ChatWebSocketHandler struct {
	hub      *Hub
	sender   MessageSender
	upgrader websocket.Upgrader
}

// NewChatWebSocketHandler constructs a ChatWebSocketHandler. An empty
// allowedOrigins accepts any origin.
func NewChatWebSocketHandler(hub *Hub, sender MessageSender, allowedOrigins []string) *ChatWebSocketHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o != "" {
			allowed[o] = true
		}
	}
	return &ChatWebSocketHandler{
		hub:    hub,
		sender: sender,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
	}
}

// conversation is the participant set a connection is bound to.
type conversation struct {
	key    string
	itemID int
	a, b   int
}

func (cv conversation) includes(userID int) bool {
	return userID == cv.a || userID == cv.b
}

// Handle upgrades the connection, subscribes it to the conversation room and
// serves inbound frames until the client goes away.
func (h *ChatWebSocketHandler) Handle(c *gin.Context) {
	key := c.Param("conversation_id")
	itemID, a, b, err := inbox.ParseConversationKey(key)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}
	conv := conversation{key: key, itemID: itemID, a: a, b: b}

	ctx, span := observability.Tracer("ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	span.SetAttributes(attribute.String("conversation.id", key))

	userID := c.GetInt("userID")
	if !conv.includes(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant of this conversation"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request.WithContext(ctx), nil)
	if err != nil {
		log.Printf("websocket upgrade failed conversation=%s: %v", key, err)
		return
	}

	info := ConnInfo{
		ConnID:      uuid.NewString(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestID(c),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	room := inbox.RoomName(key)
	client := newClient(conn, room, info)
	h.hub.Subscribe(room, client)

	observability.IncWSActive()
	h.publishLifecycle(context.Background(), conv, info, "ws_connect", "")

	go client.writePump()
	go h.readPump(client, conv)
}

func (h *ChatWebSocketHandler) readPump(client *Client, conv conversation) {
	var closeReason string
	defer func() {
		h.hub.Unsubscribe(client.room, client)
		observability.DecWSActive()
		h.publishLifecycle(context.Background(), conv, client.info, "ws_disconnect", closeReason)
	}()

	client.conn.SetReadLimit(maxFrameBytes)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.publishLifecycle(context.Background(), conv, client.info, "ws_error", closeReason)
			}
			return
		}
		h.handleFrame(client, conv, data)
	}
}

// handleFrame persists one inbound frame through the sender, which publishes
// the stored message to the room. Rejected frames are answered to the
// originating connection only.
func (h *ChatWebSocketHandler) handleFrame(client *Client, conv conversation, data []byte) {
	ctx, span := observability.Tracer("ws").Start(context.Background(), "ws.frame")
	defer span.End()

	var frame models.InboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		h.hub.SendTo(client, models.ErrorFrame{Error: "malformed frame"})
		return
	}

	if frame.SenderID != client.info.UserID {
		h.hub.SendTo(client, models.ErrorFrame{Error: "sender_id does not match the connected user"})
		return
	}
	if frame.ItemID != conv.itemID || !conv.includes(frame.RecipientID) || frame.RecipientID == frame.SenderID {
		h.hub.SendTo(client, models.ErrorFrame{Error: "frame does not belong to this conversation"})
		return
	}
	if frame.Image != nil && *frame.Image != "" && !inbox.IsImageKey(*frame.Image) {
		h.hub.SendTo(client, models.ErrorFrame{Error: "validation failed", Fields: map[string]string{"image": "unknown image reference"}})
		return
	}

	_, err := h.sender.Send(ctx, inbox.SendInput{
		SenderID:    frame.SenderID,
		RecipientID: frame.RecipientID,
		ItemID:      frame.ItemID,
		Content:     frame.Message,
		ImagePath:   frame.Image,
		Source:      "ws",
	})
	if err == nil {
		return
	}

	span.RecordError(err)
	var verr *inbox.ValidationError
	switch {
	case errors.As(err, &verr):
		h.hub.SendTo(client, models.ErrorFrame{Error: "validation failed", Fields: verr.Fields})
	case errors.Is(err, inbox.ErrNotFound):
		h.hub.SendTo(client, models.ErrorFrame{Error: "item or recipient not found"})
	case errors.Is(err, inbox.ErrPermissionDenied):
		h.hub.SendTo(client, models.ErrorFrame{Error: "recipient does not accept messages"})
	default:
		log.Printf("websocket message store failed conn_id=%s: %v", client.info.ConnID, err)
		h.hub.SendTo(client, models.ErrorFrame{Error: "failed to store message"})
	}
}

func (h *ChatWebSocketHandler) publishLifecycle(ctx context.Context, conv conversation, info ConnInfo, event, reason string) {
	observability.IncWSEvent(event)
	var duration int64
	if event != "ws_connect" {
		duration = time.Since(info.ConnectedAt).Milliseconds()
	}
	envelope := observability.WSEnvelope(observability.WSEvent{
		Event:          event,
		ConversationID: conv.key,
		ConnID:         info.ConnID,
		DurationMS:     duration,
		Reason:         reason,
	}, observability.Identity{UserID: info.UserID, DeviceID: info.DeviceID, IP: info.IP})
	_ = observability.PublishEvent(ctx, wsRoutingKey, envelope, observability.BuildHeaders(info.RequestID, info.TraceID))
}
