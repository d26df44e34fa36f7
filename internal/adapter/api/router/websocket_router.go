package router

import (
	"github.com/labstack/echo/v4"

	"foundly/internal/adapter/api/handler"
	"foundly/internal/adapter/api/middleware"
)

func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler, authMiddleware *middleware.AuthMiddleware) {
	e.GET("/ws", wsHandler.HandleWebSocket, authMiddleware.Authenticate)
}
