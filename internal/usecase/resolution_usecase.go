package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"foundly/internal/domain/entity"
	"foundly/internal/domain/repository"
	"foundly/internal/domain/service"
)

// ResolutionUseCase runs the cascade that fires when a request is
// confirmed: finalize the post, retire every competing conversation for
// it, and clean up media while preserving the winning evidence. Only the
// first step is transactional; the rest is a best-effort saga whose
// steps are idempotent and safe to re-run.
type ResolutionUseCase struct {
	conversationRepo repository.ConversationRepository
	userRepo         repository.UserRepository
	mediaStore       service.MediaStore
	dispatcher       service.NotificationDispatcher
}

func NewResolutionUseCase(
	conversationRepo repository.ConversationRepository,
	userRepo repository.UserRepository,
	mediaStore service.MediaStore,
	dispatcher service.NotificationDispatcher,
) *ResolutionUseCase {
	return &ResolutionUseCase{
		conversationRepo: conversationRepo,
		userRepo:         userRepo,
		mediaStore:       mediaStore,
		dispatcher:       dispatcher,
	}
}

// Resolve finalizes the confirmed request on the given conversation.
// Returns an error only when the atomic first step fails; every later
// step logs and continues so a committed resolution is never rolled
// back.
func (uc *ResolutionUseCase) Resolve(ctx context.Context, conversation *entity.Conversation, message *entity.Message, confirmerID string) error {
	now := time.Now()

	requesterName := message.SenderName
	if requester, err := uc.userRepo.GetByID(ctx, message.SenderID); err == nil {
		requesterName = requester.Name
	}

	// The resolution details are the only record that survives the
	// cascade, so they carry everything about the exchange.
	details := &entity.ResolutionDetails{
		RequesterID:         message.SenderID,
		RequesterName:       requesterName,
		RequesterIDPhotoURL: message.Request.IDPhotoURL,
		OwnerIDPhotoURL:     message.Request.OwnerIDPhotoURL,
		ItemPhotoURLs:       message.Request.ItemPhotoURLs,
		ConfirmedBy:         confirmerID,
		ConfirmedAt:         now,
	}

	err := uc.conversationRepo.ConfirmRequestAndResolvePost(ctx, repository.ResolutionWrite{
		ConversationID: conversation.ID,
		MessageID:      message.ID,
		PostID:         conversation.PostID,
		ConfirmerID:    confirmerID,
		ConfirmedAt:    now,
		Details:        details,
	})
	if err != nil {
		return err
	}

	conversations, err := uc.conversationRepo.ListByPostID(ctx, conversation.PostID)
	if err != nil {
		log.Printf("Resolve Warning: Failed to list conversations for post %s, cascade incomplete: %v", conversation.PostID, err)
		conversations = []*entity.Conversation{conversation}
	}

	uc.notifyLosers(ctx, conversations, conversation.ID, confirmerID)
	uc.cleanupMedia(ctx, conversations, message)
	uc.deleteConversations(ctx, conversations)

	return nil
}

func (uc *ResolutionUseCase) notifyLosers(ctx context.Context, conversations []*entity.Conversation, winnerID, confirmerID string) {
	confirmerName := confirmerID
	if confirmer, err := uc.userRepo.GetByID(ctx, confirmerID); err == nil {
		confirmerName = confirmer.Name
	}

	body := fmt.Sprintf("%s has already completed the process for this item; your request cannot be processed", confirmerName)

	for _, conversation := range conversations {
		if conversation.ID == winnerID {
			continue
		}
		for _, participantID := range conversation.ParticipantIDs {
			if participantID == confirmerID {
				continue
			}
			if !uc.dispatcher.ShouldNotify(ctx, participantID, service.NotificationCategoryRequestRejected) {
				continue
			}
			err := uc.dispatcher.Notify(ctx, []string{participantID}, service.Notification{
				Type:  "request_rejected",
				Title: "Request closed",
				Body:  body,
				Data: map[string]string{
					"post_id":         conversation.PostID,
					"conversation_id": conversation.ID,
				},
			})
			if err != nil {
				log.Printf("Resolve Warning: Rejection notification to %s failed: %v", participantID, err)
			}
		}
	}
}

// cleanupMedia deletes every photo referenced anywhere in the post's
// conversations except those attached to the confirmed request, which
// now live on only through the post's resolution details.
func (uc *ResolutionUseCase) cleanupMedia(ctx context.Context, conversations []*entity.Conversation, confirmed *entity.Message) {
	preserved := make(map[string]bool)
	for _, photoURL := range confirmed.PhotoURLs() {
		preserved[photoURL] = true
	}

	seen := make(map[string]bool)
	var doomed []string
	for _, conversation := range conversations {
		messages, err := uc.conversationRepo.ListMessagesOldestFirst(ctx, conversation.ID)
		if err != nil {
			log.Printf("Resolve Warning: Failed to enumerate messages of conversation %s for media cleanup: %v", conversation.ID, err)
			continue
		}
		for _, message := range messages {
			for _, photoURL := range message.PhotoURLs() {
				if preserved[photoURL] || seen[photoURL] {
					continue
				}
				seen[photoURL] = true
				doomed = append(doomed, photoURL)
			}
		}
	}

	if len(doomed) == 0 {
		return
	}

	result := uc.mediaStore.DeleteFiles(ctx, doomed)
	if !result.AllSucceeded() {
		log.Printf("Resolve Warning: %d of %d photos not deleted during cascade", len(result.Failed), len(doomed))
	}
}

func (uc *ResolutionUseCase) deleteConversations(ctx context.Context, conversations []*entity.Conversation) {
	for _, conversation := range conversations {
		if err := uc.conversationRepo.DeleteWithMessages(ctx, conversation); err != nil {
			log.Printf("Resolve Warning: Failed to delete conversation %s: %v", conversation.ID, err)
		}
	}
}
