package router

import (
	"github.com/labstack/echo/v4"

	"foundly/internal/adapter/api/handler"
	"foundly/internal/adapter/api/middleware"
	"foundly/internal/infrastructure/ratelimit"
)

// SetupConversationRouter mounts the conversation, message, and request
// endpoints. Everything requires authentication; the write paths carry
// per-user rate limits.
func SetupConversationRouter(
	e *echo.Echo,
	conversationHandler *handler.ConversationHandler,
	messageHandler *handler.MessageHandler,
	requestHandler *handler.RequestHandler,
	authMiddleware *middleware.AuthMiddleware,
	rateLimit *middleware.RateLimitMiddleware,
) {
	group := e.Group("/v1/conversations")
	group.Use(authMiddleware.Authenticate)

	group.POST("", conversationHandler.OpenConversation, rateLimit.Limit(ratelimit.ActionOpenConversation))
	group.GET("", conversationHandler.ListConversations)
	group.GET("/:id", conversationHandler.GetConversation)
	group.PUT("/:id/read", conversationHandler.MarkConversationRead)
	group.PUT("/:id/messages/read", conversationHandler.MarkAllMessagesRead)
	group.DELETE("/:id", conversationHandler.DeleteConversation)

	group.POST("/:id/messages", messageHandler.SendMessage, rateLimit.Limit(ratelimit.ActionSendMessage))
	group.GET("/:id/messages", messageHandler.ListMessages)

	group.POST("/:id/requests", requestHandler.CreateRequest, rateLimit.Limit(ratelimit.ActionCreateRequest))
	group.POST("/:id/requests/respond", requestHandler.RespondToRequest)
	group.POST("/:id/requests/confirm", requestHandler.ConfirmRequest)
}
