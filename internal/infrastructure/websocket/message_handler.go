package websocket

import (
	"context"
	"encoding/json"
	"time"

	"foundly/pkg/logger"
)

// Client event types. The socket is mostly a push channel; the few
// inbound events are keepalives and read markers, everything else goes
// through the HTTP API.
const (
	EventTypePing     = "ping"
	EventTypePong     = "pong"
	EventTypeMarkRead = "mark_read"
	EventTypeReadAck  = "read_ack"
	EventTypeError    = "error"
)

type clientEvent struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type serverEvent struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message,omitempty"`
	Timestamp      string `json:"timestamp"`
}

// ReadMarker is the slice of the conversation API the socket needs to
// process read markers.
type ReadMarker interface {
	MarkConversationRead(ctx context.Context, userID, conversationID string) error
	MarkAllMessagesRead(ctx context.Context, userID, conversationID string) (bool, error)
}

// ClientEventHandler processes inbound socket frames.
type ClientEventHandler struct {
	manager *Manager
	reads   ReadMarker
}

func NewClientEventHandler(manager *Manager, reads ReadMarker) *ClientEventHandler {
	return &ClientEventHandler{
		manager: manager,
		reads:   reads,
	}
}

func (h *ClientEventHandler) Handle(ctx context.Context, client *Client, raw []byte) {
	var event clientEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		logger.Warn("websocket: malformed frame from %s: %v", client.UserID, err)
		h.reply(client, serverEvent{Type: EventTypeError, Message: "invalid frame"})
		return
	}

	switch event.Type {
	case EventTypePing:
		h.reply(client, serverEvent{Type: EventTypePong})

	case EventTypeMarkRead:
		h.handleMarkRead(ctx, client, event)

	default:
		logger.Warn("websocket: unknown event type %q from %s", event.Type, client.UserID)
		h.reply(client, serverEvent{Type: EventTypeError, Message: "unknown event type"})
	}
}

// handleMarkRead resets the unread counter and stamps read receipts,
// the same path as the HTTP read endpoints but without a round trip.
func (h *ClientEventHandler) handleMarkRead(ctx context.Context, client *Client, event clientEvent) {
	if event.ConversationID == "" {
		h.reply(client, serverEvent{Type: EventTypeError, Message: "missing conversation_id"})
		return
	}

	if err := h.reads.MarkConversationRead(ctx, client.UserID, event.ConversationID); err != nil {
		logger.Warn("websocket: mark read failed for %s on %s: %v", client.UserID, event.ConversationID, err)
		h.reply(client, serverEvent{Type: EventTypeError, ConversationID: event.ConversationID, Message: "mark read failed"})
		return
	}

	if _, err := h.reads.MarkAllMessagesRead(ctx, client.UserID, event.ConversationID); err != nil {
		logger.Warn("websocket: read receipts failed for %s on %s: %v", client.UserID, event.ConversationID, err)
	}

	h.reply(client, serverEvent{Type: EventTypeReadAck, ConversationID: event.ConversationID})
}

func (h *ClientEventHandler) reply(client *Client, event serverEvent) {
	event.Timestamp = time.Now().Format(time.RFC3339)

	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("websocket: failed to marshal reply for %s: %v", client.UserID, err)
		return
	}
	h.manager.SendToUser(client.UserID, payload)
}
