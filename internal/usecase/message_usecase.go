package usecase

import (
	"context"
	"log"
	"time"

	"foundly/internal/domain/entity"
	"foundly/internal/domain/repository"
	"foundly/internal/domain/service"
	"foundly/pkg/errors"
)

// maxMessagesPerConversation is the retention cap. Protected request
// messages are exempt and may push a conversation over it.
const maxMessagesPerConversation = 50

type MessageUseCase struct {
	conversationRepo repository.ConversationRepository
	userRepo         repository.UserRepository
	dispatcher       service.NotificationDispatcher
}

func NewMessageUseCase(
	conversationRepo repository.ConversationRepository,
	userRepo repository.UserRepository,
	dispatcher service.NotificationDispatcher,
) *MessageUseCase {
	return &MessageUseCase{
		conversationRepo: conversationRepo,
		userRepo:         userRepo,
		dispatcher:       dispatcher,
	}
}

type SendMessageInput struct {
	ConversationID string
	Text           string
}

func (uc *MessageUseCase) SendMessage(ctx context.Context, senderID string, input SendMessageInput) (*entity.Message, error) {
	if input.Text == "" {
		return nil, errors.BadRequest("Message text is required", nil)
	}
	return uc.Deliver(ctx, senderID, input.ConversationID, input.Text, entity.MessageTypeText, nil)
}

// Deliver appends a message and runs the shared post-send path: the
// conversation summary update with atomic unread increments, push
// notification of the other participants, and the retention pass.
// Request messages from the request state machine go through here too.
func (uc *MessageUseCase) Deliver(ctx context.Context, senderID, conversationID, text, messageType string, request *entity.RequestData) (*entity.Message, error) {
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		log.Printf("SendMessage Error: Conversation %s not found: %v", conversationID, err)
		return nil, err
	}

	if !conversation.HasParticipant(senderID) {
		return nil, errors.Forbidden("User is not a participant in this conversation", nil)
	}

	senderName := senderID
	senderPhoto := ""
	if sender, err := uc.userRepo.GetByID(ctx, senderID); err == nil {
		senderName = sender.Name
		senderPhoto = sender.PhotoURL
	} else {
		log.Printf("SendMessage Warning: Sender %s not found, using defaults: %v", senderID, err)
	}

	message := &entity.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		SenderName:     senderName,
		SenderPhotoURL: senderPhoto,
		Text:           text,
		Type:           messageType,
		Request:        request,
		ReadBy:         []string{senderID},
		CreatedAt:      time.Now(),
	}

	if err := uc.conversationRepo.CreateMessage(ctx, message); err != nil {
		log.Printf("SendMessage Error: Failed to create message in conversation %s: %v", conversationID, err)
		return nil, err
	}

	var others []string
	for _, participantID := range conversation.ParticipantIDs {
		if participantID != senderID {
			others = append(others, participantID)
		}
	}

	if err := uc.conversationRepo.RecordLastMessage(ctx, conversationID, text, message.CreatedAt, others); err != nil {
		log.Printf("SendMessage Error: Failed to update conversation %s summary: %v", conversationID, err)
		return nil, err
	}

	uc.notifyRecipients(ctx, others, senderName, conversation, message)

	if err := uc.EnforceRetention(ctx, conversationID); err != nil {
		log.Printf("SendMessage Warning: Retention pass failed for conversation %s: %v", conversationID, err)
	}

	return message, nil
}

func (uc *MessageUseCase) notifyRecipients(ctx context.Context, recipients []string, senderName string, conversation *entity.Conversation, message *entity.Message) {
	var targets []string
	for _, userID := range recipients {
		if uc.dispatcher.ShouldNotify(ctx, userID, service.NotificationCategoryChatMessage) {
			targets = append(targets, userID)
		}
	}
	if len(targets) == 0 {
		return
	}

	err := uc.dispatcher.Notify(ctx, targets, service.Notification{
		Type:  "new_message",
		Title: senderName,
		Body:  message.Text,
		Data: map[string]string{
			"conversation_id": conversation.ID,
			"post_id":         conversation.PostID,
			"message_id":      message.ID,
		},
	})
	if err != nil {
		// Dispatcher failure never fails the send.
		log.Printf("SendMessage Warning: Notification dispatch failed for conversation %s: %v", conversation.ID, err)
	}
}

// EnforceRetention trims the conversation back to the cap by deleting
// the oldest non-protected messages. When only protected messages remain
// above the cap, the conversation stays over it.
func (uc *MessageUseCase) EnforceRetention(ctx context.Context, conversationID string) error {
	messages, err := uc.conversationRepo.ListMessagesOldestFirst(ctx, conversationID)
	if err != nil {
		return err
	}

	excess := len(messages) - maxMessagesPerConversation
	if excess <= 0 {
		return nil
	}

	var evict []string
	for _, message := range messages {
		if len(evict) == excess {
			break
		}
		if message.IsProtected() {
			continue
		}
		evict = append(evict, message.ID)
	}

	if len(evict) == 0 {
		return nil
	}

	log.Printf("EnforceRetention: Evicting %d of %d messages from conversation %s", len(evict), len(messages), conversationID)
	return uc.conversationRepo.DeleteMessages(ctx, conversationID, evict)
}

func (uc *MessageUseCase) ListMessages(ctx context.Context, userID, conversationID string, limit, offset int) ([]*entity.Message, int64, error) {
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, 0, err
	}

	if !conversation.HasParticipant(userID) {
		return nil, 0, errors.Forbidden("User is not a participant in this conversation", nil)
	}

	return uc.conversationRepo.ListMessages(ctx, conversationID, limit, offset)
}
