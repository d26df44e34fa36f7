package usecase

import (
	"context"
	"log"
	"time"

	"foundly/internal/domain/entity"
	"foundly/internal/domain/repository"
	"foundly/pkg/errors"
)

type ConversationUseCase struct {
	conversationRepo repository.ConversationRepository
	postRepo         repository.PostRepository
	userRepo         repository.UserRepository
}

func NewConversationUseCase(
	conversationRepo repository.ConversationRepository,
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
) *ConversationUseCase {
	return &ConversationUseCase{
		conversationRepo: conversationRepo,
		postRepo:         postRepo,
		userRepo:         userRepo,
	}
}

type OpenConversationInput struct {
	PostID      string
	ReporterID  string
	InitialText string
}

type ConversationResponse struct {
	*entity.Conversation
	Post *entity.Post `json:"post,omitempty"`
}

// OpenConversation returns the requester's existing conversation about
// the post when one exists, otherwise creates the conversation together
// with its opening message. The post lookup is best-effort: a missing
// post downgrades to defaulted metadata instead of failing the open,
// since a transient lookup error should not block the exchange.
func (uc *ConversationUseCase) OpenConversation(ctx context.Context, requesterID string, input OpenConversationInput) (*ConversationResponse, error) {
	if input.PostID == "" || input.ReporterID == "" {
		return nil, errors.BadRequest("Post and reporter are required", nil)
	}
	if requesterID == input.ReporterID {
		return nil, errors.BadRequest("You cannot open a conversation about your own post", nil)
	}

	post, err := uc.postRepo.GetByID(ctx, input.PostID)
	if err != nil {
		log.Printf("OpenConversation Warning: Post %s lookup failed, using defaulted metadata: %v", input.PostID, err)
		post = nil
	}

	existing, err := uc.conversationRepo.FindByPostAndParticipants(ctx, input.PostID, requesterID, input.ReporterID)
	if err == nil && existing != nil {
		return &ConversationResponse{Conversation: existing, Post: post}, nil
	}
	if err != nil && !errors.Is(err, "NOT_FOUND") {
		log.Printf("OpenConversation Error: Failed to search for existing conversation: %v", err)
		return nil, err
	}

	now := time.Now()
	conversation := &entity.Conversation{
		PostID:    input.PostID,
		CreatedBy: requesterID,
		Participants: map[string]entity.Participant{
			requesterID: uc.participantProfile(ctx, requesterID, now),
			input.ReporterID: uc.participantProfile(ctx, input.ReporterID, now),
		},
		ParticipantIDs: []string{input.ReporterID, requesterID},
		UnreadCount: map[string]int{
			input.ReporterID: 1,
			requesterID:      0,
		},
		LastMessage:   input.InitialText,
		LastMessageAt: now,
	}
	if post != nil {
		conversation.PostTitle = post.Title
		conversation.PostType = post.Type
		conversation.PostPhotoURL = post.PhotoURL
	}

	opening := &entity.Message{
		SenderID:       requesterID,
		SenderName:     conversation.Participants[requesterID].Name,
		SenderPhotoURL: conversation.Participants[requesterID].PhotoURL,
		Text:           input.InitialText,
		Type:           entity.MessageTypeText,
		ReadBy:         []string{requesterID},
		CreatedAt:      now,
	}

	if err := uc.conversationRepo.CreateWithOpeningMessage(ctx, conversation, opening); err != nil {
		if errors.Is(err, "ALREADY_PROCESSED") {
			// A concurrent open won the uniqueness write; reuse theirs.
			existing, findErr := uc.conversationRepo.FindByPostAndParticipants(ctx, input.PostID, requesterID, input.ReporterID)
			if findErr == nil && existing != nil {
				return &ConversationResponse{Conversation: existing, Post: post}, nil
			}
		}
		log.Printf("OpenConversation Error: Failed to create conversation for post %s: %v", input.PostID, err)
		return nil, err
	}

	return &ConversationResponse{Conversation: conversation, Post: post}, nil
}

func (uc *ConversationUseCase) participantProfile(ctx context.Context, userID string, joinedAt time.Time) entity.Participant {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		log.Printf("OpenConversation Warning: Profile %s not found, using defaults: %v", userID, err)
		return entity.Participant{Name: userID, JoinedAt: joinedAt}
	}
	return entity.Participant{
		Name:     user.Name,
		PhotoURL: user.PhotoURL,
		JoinedAt: joinedAt,
	}
}

// ListConversations returns the user's conversations, dropping invalid
// single-participant documents.
func (uc *ConversationUseCase) ListConversations(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	conversations, err := uc.conversationRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var valid []*entity.Conversation
	for _, conversation := range conversations {
		if !conversation.IsValid() {
			log.Printf("ListConversations Warning: Skipping invalid conversation %s", conversation.ID)
			continue
		}
		valid = append(valid, conversation)
	}

	return valid, nil
}

func (uc *ConversationUseCase) GetConversation(ctx context.Context, userID, conversationID string) (*entity.Conversation, error) {
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if !conversation.HasParticipant(userID) {
		return nil, errors.Forbidden("User is not a participant in this conversation", nil)
	}

	return conversation, nil
}

func (uc *ConversationUseCase) MarkConversationRead(ctx context.Context, userID, conversationID string) error {
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}

	if !conversation.HasParticipant(userID) {
		return errors.Forbidden("User is not a participant in this conversation", nil)
	}

	return uc.conversationRepo.ResetUnread(ctx, conversationID, userID)
}

// MarkAllMessagesRead records the read receipt on every message the user
// has not yet seen; reports whether any message actually changed so
// callers can skip needless writes.
func (uc *ConversationUseCase) MarkAllMessagesRead(ctx context.Context, userID, conversationID string) (bool, error) {
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return false, err
	}

	if !conversation.HasParticipant(userID) {
		return false, errors.Forbidden("User is not a participant in this conversation", nil)
	}

	return uc.conversationRepo.MarkAllMessagesRead(ctx, conversationID, userID)
}

// DeleteConversation removes the thread and its messages. Resolution
// supersedes manual deletion rights: once the related post is resolved
// the conversation can no longer be deleted by hand.
func (uc *ConversationUseCase) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}

	if !conversation.HasParticipant(userID) {
		return errors.Forbidden("User is not a participant in this conversation", nil)
	}

	post, err := uc.postRepo.GetByID(ctx, conversation.PostID)
	if err != nil {
		log.Printf("DeleteConversation Warning: Post %s lookup failed, treating as unresolved: %v", conversation.PostID, err)
	} else if post.IsResolved() {
		return errors.Forbidden("Conversations for a resolved post cannot be deleted", nil)
	}

	return uc.conversationRepo.DeleteWithMessages(ctx, conversation)
}
