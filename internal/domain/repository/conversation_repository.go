package repository

import (
	"context"
	"time"

	"foundly/internal/domain/entity"
)

// ResolutionWrite is the atomic step-one payload of the resolution
// cascade: confirmation fields on the request message plus the post's
// resolved status and resolution details, committed together.
type ResolutionWrite struct {
	ConversationID string
	MessageID      string
	PostID         string
	ConfirmerID    string
	ConfirmedAt    time.Time
	Details        *entity.ResolutionDetails
}

type ConversationRepository interface {
	// CreateWithOpeningMessage atomically writes the conversation
	// document, its uniqueness key (postId+requesterId), and the opening
	// message. Fails with ALREADY_PROCESSED when the uniqueness key
	// already exists (a concurrent open won the race).
	CreateWithOpeningMessage(ctx context.Context, conversation *entity.Conversation, opening *entity.Message) error

	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
	ListByUserID(ctx context.Context, userID string) ([]*entity.Conversation, error)
	ListByPostID(ctx context.Context, postID string) ([]*entity.Conversation, error)

	// FindByPostAndParticipants returns the live conversation the
	// requester already has about the post with the given other
	// participant, or NOT_FOUND.
	FindByPostAndParticipants(ctx context.Context, postID, requesterID, otherID string) (*entity.Conversation, error)

	ResetUnread(ctx context.Context, conversationID, userID string) error

	// DeleteWithMessages removes every message, the uniqueness key, and
	// the conversation document itself.
	DeleteWithMessages(ctx context.Context, conversation *entity.Conversation) error

	// Message operations.
	CreateMessage(ctx context.Context, message *entity.Message) error
	GetMessageByID(ctx context.Context, conversationID, messageID string) (*entity.Message, error)
	ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, int64, error)
	ListMessagesOldestFirst(ctx context.Context, conversationID string) ([]*entity.Message, error)
	DeleteMessages(ctx context.Context, conversationID string, messageIDs []string) error

	// RecordLastMessage updates the conversation summary and atomically
	// increments the unread counter of each listed participant.
	RecordLastMessage(ctx context.Context, conversationID, summary string, at time.Time, incrementFor []string) error

	// MarkAllMessagesRead appends userID to readBy on every message not
	// yet containing it; reports whether anything changed.
	MarkAllMessagesRead(ctx context.Context, conversationID, userID string) (bool, error)

	// Request state transitions, each a conditional update keyed on the
	// current status so concurrent writers fail with ALREADY_PROCESSED
	// instead of clobbering a terminal state.
	AcceptRequest(ctx context.Context, conversationID, messageID, ownerIDPhotoURL string) error
	RejectRequest(ctx context.Context, conversationID, messageID string) (*entity.Message, error)
	ClearRequestPhotos(ctx context.Context, conversationID, messageID string, mediaDeleteSucceeded bool) error

	// ConfirmRequestAndResolvePost is the cascade's atomic first step.
	ConfirmRequestAndResolvePost(ctx context.Context, write ResolutionWrite) error
}
