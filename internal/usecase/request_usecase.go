package usecase

import (
	"context"
	"log"
	"net/url"
	"strings"

	"foundly/internal/domain/entity"
	"foundly/internal/domain/repository"
	"foundly/internal/domain/service"
	"foundly/pkg/errors"
)

const maxItemPhotos = 3

const (
	RequestActionAccepted = "accepted"
	RequestActionRejected = "rejected"
)

type RequestUseCase struct {
	conversationRepo repository.ConversationRepository
	mediaStore       service.MediaStore
	messageUseCase   *MessageUseCase
	resolution       *ResolutionUseCase
}

func NewRequestUseCase(
	conversationRepo repository.ConversationRepository,
	mediaStore service.MediaStore,
	messageUseCase *MessageUseCase,
	resolution *ResolutionUseCase,
) *RequestUseCase {
	return &RequestUseCase{
		conversationRepo: conversationRepo,
		mediaStore:       mediaStore,
		messageUseCase:   messageUseCase,
		resolution:       resolution,
	}
}

type CreateRequestInput struct {
	ConversationID string
	Type           string // "handover_request" or "claim_request"
	Reason         string
	IDPhotoURL     string
	ItemPhotoURLs  []string
}

type RespondToRequestInput struct {
	ConversationID  string
	MessageID       string
	Action          string // "accepted" or "rejected"
	OwnerIDPhotoURL string
}

type ConfirmRequestInput struct {
	ConversationID string
	MessageID      string
}

// CreateRequest appends a handover/claim request message in pending
// state. Malformed input is rejected at the boundary rather than
// persisting partial request data.
func (uc *RequestUseCase) CreateRequest(ctx context.Context, senderID string, input CreateRequestInput) (*entity.Message, error) {
	if input.Type != entity.MessageTypeHandoverRequest && input.Type != entity.MessageTypeClaimRequest {
		return nil, errors.BadRequest("Request type must be handover_request or claim_request", nil)
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, errors.BadRequest("Reason is required", nil)
	}
	if input.IDPhotoURL != "" && !isResourceURL(input.IDPhotoURL) {
		return nil, errors.BadRequest("ID photo URL is not a valid resource URL", nil)
	}
	if len(input.ItemPhotoURLs) > maxItemPhotos {
		return nil, errors.BadRequest("At most 3 item photos are allowed", nil)
	}
	for _, photoURL := range input.ItemPhotoURLs {
		if !isResourceURL(photoURL) {
			return nil, errors.BadRequest("Item photo URL is not a valid resource URL", nil)
		}
	}

	request := &entity.RequestData{
		Reason:        input.Reason,
		IDPhotoURL:    input.IDPhotoURL,
		ItemPhotoURLs: input.ItemPhotoURLs,
		Status:        entity.RequestStatusPending,
	}

	return uc.messageUseCase.Deliver(ctx, senderID, input.ConversationID, input.Reason, input.Type, request)
}

// RespondToRequest drives pending -> pending_confirmation (accepted with
// an owner ID photo) or pending -> rejected. Rejection triggers the
// best-effort photo cleanup; the document fields are cleared even when
// the blob delete fails.
func (uc *RequestUseCase) RespondToRequest(ctx context.Context, responderID string, input RespondToRequestInput) error {
	message, err := uc.loadRequestMessage(ctx, responderID, input.ConversationID, input.MessageID)
	if err != nil {
		return err
	}
	if message.SenderID == responderID {
		return errors.Forbidden("You cannot respond to your own request", nil)
	}

	switch input.Action {
	case RequestActionAccepted:
		if input.OwnerIDPhotoURL == "" {
			return errors.BadRequest("An owner ID photo is required to accept a request", nil)
		}
		if !isResourceURL(input.OwnerIDPhotoURL) {
			return errors.BadRequest("Owner ID photo URL is not a valid resource URL", nil)
		}
		return uc.conversationRepo.AcceptRequest(ctx, input.ConversationID, input.MessageID, input.OwnerIDPhotoURL)

	case RequestActionRejected:
		rejected, err := uc.conversationRepo.RejectRequest(ctx, input.ConversationID, input.MessageID)
		if err != nil {
			return err
		}

		photoURLs := rejected.PhotoURLs()
		mediaDeleteSucceeded := true
		if len(photoURLs) > 0 {
			result := uc.mediaStore.DeleteFiles(ctx, photoURLs)
			mediaDeleteSucceeded = result.AllSucceeded()
			if !mediaDeleteSucceeded {
				log.Printf("RespondToRequest Warning: %d of %d photos not deleted for request %s", len(result.Failed), len(photoURLs), input.MessageID)
			}
		}

		if err := uc.conversationRepo.ClearRequestPhotos(ctx, input.ConversationID, input.MessageID, mediaDeleteSucceeded); err != nil {
			log.Printf("RespondToRequest Error: Failed to clear photo fields for request %s: %v", input.MessageID, err)
			return err
		}
		return nil

	default:
		return errors.BadRequest("Action must be accepted or rejected", nil)
	}
}

// ConfirmRequest completes the exchange. The status check and the
// resolution of the post commit in one transaction; a second confirm, or
// a confirm racing a rejection, fails with ALREADY_PROCESSED.
func (uc *RequestUseCase) ConfirmRequest(ctx context.Context, confirmerID string, input ConfirmRequestInput) error {
	conversation, err := uc.conversationRepo.GetByID(ctx, input.ConversationID)
	if err != nil {
		return err
	}
	if !conversation.HasParticipant(confirmerID) {
		return errors.Forbidden("User is not a participant in this conversation", nil)
	}

	message, err := uc.conversationRepo.GetMessageByID(ctx, input.ConversationID, input.MessageID)
	if err != nil {
		return err
	}
	if !message.IsRequest() || message.Request == nil {
		return errors.BadRequest("Message does not carry a request", nil)
	}
	if message.SenderID == confirmerID {
		return errors.Forbidden("You cannot confirm your own request", nil)
	}

	return uc.resolution.Resolve(ctx, conversation, message, confirmerID)
}

func (uc *RequestUseCase) loadRequestMessage(ctx context.Context, userID, conversationID, messageID string) (*entity.Message, error) {
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(userID) {
		return nil, errors.Forbidden("User is not a participant in this conversation", nil)
	}

	message, err := uc.conversationRepo.GetMessageByID(ctx, conversationID, messageID)
	if err != nil {
		return nil, err
	}
	if !message.IsRequest() || message.Request == nil {
		return nil, errors.BadRequest("Message does not carry a request", nil)
	}

	return message, nil
}

func isResourceURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
