package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"foundly/internal/domain/entity"
	"foundly/internal/domain/repository"
	"foundly/pkg/errors"
	"foundly/pkg/logger"
)

type firestoreConversationRepository struct {
	client *firestore.Client
}

func NewFirestoreConversationRepository(client *firestore.Client) repository.ConversationRepository {
	return &firestoreConversationRepository{
		client: client,
	}
}

func conversationKeyID(postID, requesterID string) string {
	return fmt.Sprintf("%s_%s", postID, requesterID)
}

func (r *firestoreConversationRepository) conversationRef(id string) *firestore.DocumentRef {
	return r.client.Collection("conversations").Doc(id)
}

func (r *firestoreConversationRepository) messageRef(conversationID, messageID string) *firestore.DocumentRef {
	return r.conversationRef(conversationID).Collection("messages").Doc(messageID)
}

func (r *firestoreConversationRepository) CreateWithOpeningMessage(ctx context.Context, conversation *entity.Conversation, opening *entity.Message) error {
	if conversation.ID == "" {
		conversation.ID = uuid.New().String()
	}
	if opening.ID == "" {
		opening.ID = uuid.New().String()
	}

	now := time.Now()
	conversation.CreatedAt = now
	conversation.UpdatedAt = now
	opening.ConversationID = conversation.ID
	opening.CreatedAt = now

	keyRef := r.client.Collection("conversation_keys").Doc(conversationKeyID(conversation.PostID, conversation.CreatedBy))
	convRef := r.conversationRef(conversation.ID)
	msgRef := r.messageRef(conversation.ID, opening.ID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		// Creating the key document fails if it already exists, which
		// makes a concurrent second open lose the race instead of
		// writing a duplicate conversation.
		if err := tx.Create(keyRef, map[string]interface{}{
			"postId":         conversation.PostID,
			"requesterId":    conversation.CreatedBy,
			"conversationId": conversation.ID,
			"createdAt":      now,
		}); err != nil {
			return err
		}
		if err := tx.Set(convRef, conversation); err != nil {
			return err
		}
		return tx.Set(msgRef, opening)
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errors.AlreadyProcessed("A conversation for this post already exists", err)
		}
		return errors.Internal("Failed to create conversation", err)
	}

	return nil
}

func (r *firestoreConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	doc, err := r.conversationRef(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Conversation", err)
		}
		return nil, errors.Internal("Failed to get conversation", err)
	}

	var conversation entity.Conversation
	if err := doc.DataTo(&conversation); err != nil {
		return nil, errors.Internal("Failed to parse conversation data", err)
	}

	return &conversation, nil
}

func (r *firestoreConversationRepository) ListByUserID(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	query := r.client.Collection("conversations").
		Where("participantIds", "array-contains", userID).
		OrderBy("updatedAt", firestore.Desc)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while fetching conversations for user %s: %v", userID, err)
		return nil, errors.Internal("Failed to fetch conversations", err)
	}

	var conversations []*entity.Conversation
	for _, doc := range docs {
		var conversation entity.Conversation
		if err := doc.DataTo(&conversation); err != nil {
			logger.Warn("Skipping malformed conversation %s: %v", doc.Ref.ID, err)
			continue
		}
		conversations = append(conversations, &conversation)
	}

	return conversations, nil
}

func (r *firestoreConversationRepository) ListByPostID(ctx context.Context, postID string) ([]*entity.Conversation, error) {
	query := r.client.Collection("conversations").Where("postId", "==", postID)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Internal("Failed to fetch conversations for post", err)
	}

	var conversations []*entity.Conversation
	for _, doc := range docs {
		var conversation entity.Conversation
		if err := doc.DataTo(&conversation); err != nil {
			logger.Warn("Skipping malformed conversation %s: %v", doc.Ref.ID, err)
			continue
		}
		conversations = append(conversations, &conversation)
	}

	return conversations, nil
}

func (r *firestoreConversationRepository) FindByPostAndParticipants(ctx context.Context, postID, requesterID, otherID string) (*entity.Conversation, error) {
	query := r.client.Collection("conversations").
		Where("postId", "==", postID).
		Where("participantIds", "array-contains", requesterID)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Internal("Failed to query conversations", err)
	}

	for _, doc := range docs {
		var conversation entity.Conversation
		if err := doc.DataTo(&conversation); err != nil {
			continue
		}
		if conversation.HasParticipant(otherID) {
			return &conversation, nil
		}
	}

	return nil, errors.NotFound("Conversation", nil)
}

func (r *firestoreConversationRepository) ResetUnread(ctx context.Context, conversationID, userID string) error {
	_, err := r.conversationRef(conversationID).Update(ctx, []firestore.Update{
		{Path: "unreadCount." + userID, Value: 0},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Conversation", err)
		}
		return errors.Internal("Failed to reset unread counter", err)
	}
	return nil
}

func (r *firestoreConversationRepository) DeleteWithMessages(ctx context.Context, conversation *entity.Conversation) error {
	convRef := r.conversationRef(conversation.ID)
	keyRef := r.client.Collection("conversation_keys").Doc(conversationKeyID(conversation.PostID, conversation.CreatedBy))

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		iter := tx.Documents(convRef.Collection("messages"))
		var messageRefs []*firestore.DocumentRef
		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return err
			}
			messageRefs = append(messageRefs, doc.Ref)
		}

		for _, ref := range messageRefs {
			if err := tx.Delete(ref); err != nil {
				return err
			}
		}
		if err := tx.Delete(keyRef); err != nil {
			return err
		}
		return tx.Delete(convRef)
	})
	if err != nil {
		return errors.Internal("Failed to delete conversation", err)
	}

	return nil
}

func (r *firestoreConversationRepository) CreateMessage(ctx context.Context, message *entity.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	_, err := r.messageRef(message.ConversationID, message.ID).Set(ctx, message)
	if err != nil {
		return errors.Internal("Failed to create message", err)
	}

	return nil
}

func (r *firestoreConversationRepository) GetMessageByID(ctx context.Context, conversationID, messageID string) (*entity.Message, error) {
	doc, err := r.messageRef(conversationID, messageID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Message", err)
		}
		return nil, errors.Internal("Failed to get message", err)
	}

	var message entity.Message
	if err := doc.DataTo(&message); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	return &message, nil
}

func (r *firestoreConversationRepository) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, int64, error) {
	query := r.conversationRef(conversationID).Collection("messages").OrderBy("createdAt", firestore.Desc)

	countDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while counting messages for conversation %s: %v", conversationID, err)
		return nil, 0, errors.Internal("Failed to count messages", err)
	}
	total := int64(len(countDocs))

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	iter := query.Documents(ctx)
	var messages []*entity.Message

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, errors.Internal("Failed to iterate messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			return nil, 0, errors.Internal("Failed to parse message data", err)
		}

		messages = append(messages, &message)
	}

	return messages, total, nil
}

func (r *firestoreConversationRepository) ListMessagesOldestFirst(ctx context.Context, conversationID string) ([]*entity.Message, error) {
	iter := r.conversationRef(conversationID).Collection("messages").
		OrderBy("createdAt", firestore.Asc).
		Documents(ctx)

	var messages []*entity.Message
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to iterate messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			return nil, errors.Internal("Failed to parse message data", err)
		}
		messages = append(messages, &message)
	}

	return messages, nil
}

func (r *firestoreConversationRepository) DeleteMessages(ctx context.Context, conversationID string, messageIDs []string) error {
	bw := r.client.BulkWriter(ctx)
	for _, id := range messageIDs {
		if _, err := bw.Delete(r.messageRef(conversationID, id)); err != nil {
			bw.End()
			return errors.Internal("Failed to queue message delete", err)
		}
	}
	bw.End()
	return nil
}

func (r *firestoreConversationRepository) RecordLastMessage(ctx context.Context, conversationID, summary string, at time.Time, incrementFor []string) error {
	updates := []firestore.Update{
		{Path: "lastMessage", Value: summary},
		{Path: "lastMessageAt", Value: at},
		{Path: "updatedAt", Value: at},
	}
	// Unread counters bump via the server-side increment so concurrent
	// sends from different participants never lose updates.
	for _, userID := range incrementFor {
		updates = append(updates, firestore.Update{
			Path:  "unreadCount." + userID,
			Value: firestore.Increment(1),
		})
	}

	_, err := r.conversationRef(conversationID).Update(ctx, updates)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Conversation", err)
		}
		return errors.Internal("Failed to record last message", err)
	}
	return nil
}

func (r *firestoreConversationRepository) MarkAllMessagesRead(ctx context.Context, conversationID, userID string) (bool, error) {
	messages, err := r.ListMessagesOldestFirst(ctx, conversationID)
	if err != nil {
		return false, err
	}

	bw := r.client.BulkWriter(ctx)
	changed := false
	for _, message := range messages {
		alreadyRead := false
		for _, reader := range message.ReadBy {
			if reader == userID {
				alreadyRead = true
				break
			}
		}
		if alreadyRead {
			continue
		}
		if _, err := bw.Update(r.messageRef(conversationID, message.ID), []firestore.Update{
			{Path: "readBy", Value: firestore.ArrayUnion(userID)},
		}); err != nil {
			bw.End()
			return changed, errors.Internal("Failed to queue read update", err)
		}
		changed = true
	}
	bw.End()

	return changed, nil
}

func (r *firestoreConversationRepository) AcceptRequest(ctx context.Context, conversationID, messageID, ownerIDPhotoURL string) error {
	msgRef := r.messageRef(conversationID, messageID)

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(msgRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Request message", err)
			}
			return errors.Internal("Failed to get request message", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			return errors.Internal("Failed to parse message data", err)
		}
		if message.Request == nil {
			return errors.BadRequest("Message does not carry a request", nil)
		}
		if message.Request.Status != entity.RequestStatusPending {
			return errors.AlreadyProcessed("Request is no longer pending", nil)
		}

		return tx.Update(msgRef, []firestore.Update{
			{Path: "request.status", Value: entity.RequestStatusPendingConfirmation},
			{Path: "request.ownerIdPhotoUrl", Value: ownerIDPhotoURL},
		})
	})
}

func (r *firestoreConversationRepository) RejectRequest(ctx context.Context, conversationID, messageID string) (*entity.Message, error) {
	msgRef := r.messageRef(conversationID, messageID)

	var rejected entity.Message
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(msgRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Request message", err)
			}
			return errors.Internal("Failed to get request message", err)
		}

		if err := doc.DataTo(&rejected); err != nil {
			return errors.Internal("Failed to parse message data", err)
		}
		if rejected.Request == nil {
			return errors.BadRequest("Message does not carry a request", nil)
		}
		if rejected.Request.Status != entity.RequestStatusPending {
			return errors.AlreadyProcessed("Request is no longer pending", nil)
		}

		return tx.Update(msgRef, []firestore.Update{
			{Path: "request.status", Value: entity.RequestStatusRejected},
		})
	})
	if err != nil {
		return nil, err
	}

	return &rejected, nil
}

func (r *firestoreConversationRepository) ClearRequestPhotos(ctx context.Context, conversationID, messageID string, mediaDeleteSucceeded bool) error {
	// The URL fields are always cleared regardless of how the blob
	// delete went; MediaDeleteSucceeded records the outcome.
	_, err := r.messageRef(conversationID, messageID).Update(ctx, []firestore.Update{
		{Path: "request.idPhotoUrl", Value: firestore.Delete},
		{Path: "request.ownerIdPhotoUrl", Value: firestore.Delete},
		{Path: "request.itemPhotoUrls", Value: firestore.Delete},
		{Path: "request.photosDeleted", Value: true},
		{Path: "request.mediaDeleteSucceeded", Value: mediaDeleteSucceeded},
	})
	if err != nil {
		return errors.Internal("Failed to clear request photos", err)
	}
	return nil
}

func (r *firestoreConversationRepository) ConfirmRequestAndResolvePost(ctx context.Context, write repository.ResolutionWrite) error {
	msgRef := r.messageRef(write.ConversationID, write.MessageID)
	postRef := r.client.Collection("posts").Doc(write.PostID)

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(msgRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Request message", err)
			}
			return errors.Internal("Failed to get request message", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			return errors.Internal("Failed to parse message data", err)
		}
		if message.Request == nil {
			return errors.BadRequest("Message does not carry a request", nil)
		}
		if message.Request.Status != entity.RequestStatusPendingConfirmation || message.Request.IDPhotoConfirmed {
			return errors.AlreadyProcessed("Request has already been processed", nil)
		}

		if err := tx.Update(msgRef, []firestore.Update{
			{Path: "request.idPhotoConfirmed", Value: true},
			{Path: "request.confirmedBy", Value: write.ConfirmerID},
			{Path: "request.confirmedAt", Value: write.ConfirmedAt},
		}); err != nil {
			return err
		}

		return tx.Update(postRef, []firestore.Update{
			{Path: "status", Value: entity.PostStatusResolved},
			{Path: "resolutionDetails", Value: write.Details},
			{Path: "updatedAt", Value: write.ConfirmedAt},
		})
	})
}
