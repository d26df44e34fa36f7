package handler

import (
	"github.com/labstack/echo/v4"

	"foundly/internal/usecase"
	"foundly/pkg/response"
)

type ConversationHandler struct {
	conversationUseCase *usecase.ConversationUseCase
}

func NewConversationHandler(conversationUseCase *usecase.ConversationUseCase) *ConversationHandler {
	return &ConversationHandler{
		conversationUseCase: conversationUseCase,
	}
}

type openConversationRequest struct {
	PostID      string `json:"post_id" validate:"required"`
	ReporterID  string `json:"reporter_id" validate:"required"`
	InitialText string `json:"initial_text" validate:"required"`
}

// OpenConversation opens (or reuses) the caller's conversation about a post
func (h *ConversationHandler) OpenConversation(c echo.Context) error {
	var req openConversationRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	conversation, err := h.conversationUseCase.OpenConversation(c.Request().Context(), userID, usecase.OpenConversationInput{
		PostID:      req.PostID,
		ReporterID:  req.ReporterID,
		InitialText: req.InitialText,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, conversation)
}

func (h *ConversationHandler) ListConversations(c echo.Context) error {
	userID := c.Get("uid").(string)

	conversations, err := h.conversationUseCase.ListConversations(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conversations)
}

func (h *ConversationHandler) GetConversation(c echo.Context) error {
	userID := c.Get("uid").(string)
	conversationID := c.Param("id")

	conversation, err := h.conversationUseCase.GetConversation(c.Request().Context(), userID, conversationID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conversation)
}

func (h *ConversationHandler) MarkConversationRead(c echo.Context) error {
	userID := c.Get("uid").(string)
	conversationID := c.Param("id")

	if err := h.conversationUseCase.MarkConversationRead(c.Request().Context(), userID, conversationID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": "read"})
}

func (h *ConversationHandler) MarkAllMessagesRead(c echo.Context) error {
	userID := c.Get("uid").(string)
	conversationID := c.Param("id")

	changed, err := h.conversationUseCase.MarkAllMessagesRead(c.Request().Context(), userID, conversationID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]bool{"changed": changed})
}

func (h *ConversationHandler) DeleteConversation(c echo.Context) error {
	userID := c.Get("uid").(string)
	conversationID := c.Param("id")

	if err := h.conversationUseCase.DeleteConversation(c.Request().Context(), userID, conversationID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": "deleted"})
}
