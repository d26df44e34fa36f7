package handler

import (
	"github.com/labstack/echo/v4"

	"foundly/internal/usecase"
	"foundly/pkg/response"
)

type RequestHandler struct {
	requestUseCase *usecase.RequestUseCase
}

func NewRequestHandler(requestUseCase *usecase.RequestUseCase) *RequestHandler {
	return &RequestHandler{
		requestUseCase: requestUseCase,
	}
}

type createRequestRequest struct {
	Type          string   `json:"type" validate:"required,oneof=handover_request claim_request"`
	Reason        string   `json:"reason" validate:"required"`
	IDPhotoURL    string   `json:"id_photo_url,omitempty" validate:"omitempty,url"`
	ItemPhotoURLs []string `json:"item_photo_urls,omitempty" validate:"omitempty,max=3,dive,url"`
}

type respondToRequestRequest struct {
	MessageID       string `json:"message_id" validate:"required"`
	Action          string `json:"action" validate:"required,oneof=accepted rejected"`
	OwnerIDPhotoURL string `json:"owner_id_photo_url,omitempty" validate:"omitempty,url"`
}

type confirmRequestRequest struct {
	MessageID string `json:"message_id" validate:"required"`
}

// CreateRequest appends a handover/claim request to the conversation
func (h *RequestHandler) CreateRequest(c echo.Context) error {
	var req createRequestRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)
	conversationID := c.Param("id")

	message, err := h.requestUseCase.CreateRequest(c.Request().Context(), userID, usecase.CreateRequestInput{
		ConversationID: conversationID,
		Type:           req.Type,
		Reason:         req.Reason,
		IDPhotoURL:     req.IDPhotoURL,
		ItemPhotoURLs:  req.ItemPhotoURLs,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

func (h *RequestHandler) RespondToRequest(c echo.Context) error {
	var req respondToRequestRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)
	conversationID := c.Param("id")

	err := h.requestUseCase.RespondToRequest(c.Request().Context(), userID, usecase.RespondToRequestInput{
		ConversationID:  conversationID,
		MessageID:       req.MessageID,
		Action:          req.Action,
		OwnerIDPhotoURL: req.OwnerIDPhotoURL,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": req.Action})
}

func (h *RequestHandler) ConfirmRequest(c echo.Context) error {
	var req confirmRequestRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)
	conversationID := c.Param("id")

	err := h.requestUseCase.ConfirmRequest(c.Request().Context(), userID, usecase.ConfirmRequestInput{
		ConversationID: conversationID,
		MessageID:      req.MessageID,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": "confirmed"})
}
