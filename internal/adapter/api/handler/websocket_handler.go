package handler

import (
	"context"
	"net/http"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	ws "foundly/internal/infrastructure/websocket"
	"foundly/pkg/errors"
)

type WebSocketHandler struct {
	wsManager *ws.Manager
	listener  *ws.ConversationListener
	events    *ws.ClientEventHandler
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func NewWebSocketHandler(wsManager *ws.Manager, listener *ws.ConversationListener, events *ws.ClientEventHandler) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager: wsManager,
		listener:  listener,
		events:    events,
	}
}

// HandleWebSocket upgrades the connection and starts streaming the
// user's conversation changes until the socket closes.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	userID, ok := c.Get("uid").(string)
	if !ok || userID == "" {
		return errors.Unauthorized("Authentication required", nil)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return errors.Internal("Failed to upgrade connection", err)
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	client := ws.NewClient(userID, conn, cancel)

	h.wsManager.Register <- client

	go h.listener.Listen(listenCtx, userID)
	go client.ReadPump(listenCtx, h.wsManager, h.events)
	go client.WritePump()

	return nil
}
