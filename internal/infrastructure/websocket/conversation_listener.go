package websocket

import (
	"context"
	"encoding/json"

	"cloud.google.com/go/firestore"

	"foundly/internal/domain/entity"
	"foundly/pkg/logger"
)

// ConversationListener bridges firestore change subscriptions to the
// websocket manager: every change to a conversation the user belongs to
// is pushed to their socket as a JSON event.
type ConversationListener struct {
	client  *firestore.Client
	manager *Manager
}

func NewConversationListener(client *firestore.Client, manager *Manager) *ConversationListener {
	return &ConversationListener{
		client:  client,
		manager: manager,
	}
}

type conversationEvent struct {
	Type         string               `json:"type"` // "conversation_added", "conversation_updated", "conversation_removed"
	Conversation *entity.Conversation `json:"conversation,omitempty"`
}

// Listen blocks until ctx is cancelled, streaming snapshot changes of
// the user's conversations to their websocket connection.
func (l *ConversationListener) Listen(ctx context.Context, userID string) {
	query := l.client.Collection("conversations").Where("participantIds", "array-contains", userID)

	snapIter := query.Snapshots(ctx)
	defer snapIter.Stop()

	for {
		snap, err := snapIter.Next()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("Conversation listener for %s stopped: %v", userID, err)
			return
		}

		for _, change := range snap.Changes {
			var conversation entity.Conversation
			if err := change.Doc.DataTo(&conversation); err != nil {
				logger.Warn("Conversation listener: malformed document %s: %v", change.Doc.Ref.ID, err)
				continue
			}
			if !conversation.IsValid() && change.Kind != firestore.DocumentRemoved {
				continue
			}

			event := conversationEvent{Conversation: &conversation}
			switch change.Kind {
			case firestore.DocumentAdded:
				event.Type = "conversation_added"
			case firestore.DocumentModified:
				event.Type = "conversation_updated"
			case firestore.DocumentRemoved:
				event.Type = "conversation_removed"
			}

			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			l.manager.SendToUser(userID, payload)
		}
	}
}
