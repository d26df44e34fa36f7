package handler

import (
	"github.com/labstack/echo/v4"

	"foundly/internal/usecase"
	"foundly/pkg/response"
	"foundly/pkg/utils"
)

type MessageHandler struct {
	messageUseCase *usecase.MessageUseCase
}

func NewMessageHandler(messageUseCase *usecase.MessageUseCase) *MessageHandler {
	return &MessageHandler{
		messageUseCase: messageUseCase,
	}
}

type sendMessageRequest struct {
	Text string `json:"text" validate:"required"`
}

func (h *MessageHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)
	conversationID := c.Param("id")

	message, err := h.messageUseCase.SendMessage(c.Request().Context(), userID, usecase.SendMessageInput{
		ConversationID: conversationID,
		Text:           req.Text,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

func (h *MessageHandler) ListMessages(c echo.Context) error {
	userID := c.Get("uid").(string)
	conversationID := c.Param("id")

	pagination := utils.GetPaginationParams(c)

	messages, total, err := h.messageUseCase.ListMessages(c.Request().Context(), userID, conversationID, pagination.Limit, pagination.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, messages, total)
}
