package entity

import "time"

type Participant struct {
	Name     string    `json:"name" firestore:"name"`
	PhotoURL string    `json:"photo_url,omitempty" firestore:"photoUrl,omitempty"`
	JoinedAt time.Time `json:"joined_at" firestore:"joinedAt"`
}

type Conversation struct {
	ID             string                 `json:"id" firestore:"id"`
	PostID         string                 `json:"post_id" firestore:"postId"`
	PostTitle      string                 `json:"post_title,omitempty" firestore:"postTitle,omitempty"`
	PostType       string                 `json:"post_type,omitempty" firestore:"postType,omitempty"`
	PostPhotoURL   string                 `json:"post_photo_url,omitempty" firestore:"postPhotoUrl,omitempty"`
	CreatedBy      string                 `json:"created_by" firestore:"createdBy"` // the requester who opened the thread
	Participants   map[string]Participant `json:"participants" firestore:"participants"`
	ParticipantIDs []string               `json:"participant_ids" firestore:"participantIds"` // denormalized for array-contains queries
	UnreadCount    map[string]int         `json:"unread_count" firestore:"unreadCount"`
	LastMessage    string                 `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	LastMessageAt  time.Time              `json:"last_message_at" firestore:"lastMessageAt"`
	CreatedAt      time.Time              `json:"created_at" firestore:"createdAt"`
	UpdatedAt      time.Time              `json:"updated_at" firestore:"updatedAt"`
}

// IsValid filters out broken documents: a conversation needs both sides
// of the exchange, anything with fewer than two participants is garbage
// left behind by a partial write.
func (c *Conversation) IsValid() bool {
	return len(c.ParticipantIDs) >= 2
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}
