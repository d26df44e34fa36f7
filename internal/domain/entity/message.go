package entity

import "time"

const (
	MessageTypeText            = "text"
	MessageTypeHandoverRequest = "handover_request"
	MessageTypeClaimRequest    = "claim_request"

	RequestStatusPending             = "pending"
	RequestStatusAccepted            = "accepted"
	RequestStatusRejected            = "rejected"
	RequestStatusPendingConfirmation = "pending_confirmation"
)

// RequestData is the verification sub-state machine embedded in a
// handover/claim request message. Transitions are monotonic: once
// rejected or confirmed, no further transition is permitted.
type RequestData struct {
	Reason               string     `json:"reason" firestore:"reason"`
	IDPhotoURL           string     `json:"id_photo_url,omitempty" firestore:"idPhotoUrl,omitempty"`
	ItemPhotoURLs        []string   `json:"item_photo_urls,omitempty" firestore:"itemPhotoUrls,omitempty"` // at most 3
	Status               string     `json:"status" firestore:"status"` // "pending", "accepted", "rejected", "pending_confirmation"
	OwnerIDPhotoURL      string     `json:"owner_id_photo_url,omitempty" firestore:"ownerIdPhotoUrl,omitempty"` // set on accept
	IDPhotoConfirmed     bool       `json:"id_photo_confirmed" firestore:"idPhotoConfirmed"`
	ConfirmedBy          string     `json:"confirmed_by,omitempty" firestore:"confirmedBy,omitempty"`
	ConfirmedAt          *time.Time `json:"confirmed_at,omitempty" firestore:"confirmedAt,omitempty"`
	PhotosDeleted        bool       `json:"photos_deleted" firestore:"photosDeleted"`
	MediaDeleteSucceeded bool       `json:"media_delete_succeeded" firestore:"mediaDeleteSucceeded"`
}

type Message struct {
	ID             string       `json:"id" firestore:"id"`
	ConversationID string       `json:"conversation_id" firestore:"conversationId"`
	SenderID       string       `json:"sender_id" firestore:"senderId"`
	SenderName     string       `json:"sender_name" firestore:"senderName"`
	SenderPhotoURL string       `json:"sender_photo_url,omitempty" firestore:"senderPhotoUrl,omitempty"`
	Text           string       `json:"text" firestore:"text"`
	Type           string       `json:"type" firestore:"type"` // "text", "handover_request", "claim_request"
	Request        *RequestData `json:"request,omitempty" firestore:"request,omitempty"`
	ReadBy         []string     `json:"read_by" firestore:"readBy"`
	CreatedAt      time.Time    `json:"created_at" firestore:"createdAt"`
}

// IsProtected reports whether the retention policy must never evict this
// message. Request messages carry the evidence trail for a handover and
// outlive the 50-message cap.
func (m *Message) IsProtected() bool {
	return m.Type == MessageTypeHandoverRequest || m.Type == MessageTypeClaimRequest
}

func (m *Message) IsRequest() bool {
	return m.IsProtected()
}

// PhotoURLs returns every media URL this message references.
func (m *Message) PhotoURLs() []string {
	if m.Request == nil {
		return nil
	}
	var urls []string
	if m.Request.IDPhotoURL != "" {
		urls = append(urls, m.Request.IDPhotoURL)
	}
	if m.Request.OwnerIDPhotoURL != "" {
		urls = append(urls, m.Request.OwnerIDPhotoURL)
	}
	urls = append(urls, m.Request.ItemPhotoURLs...)
	return urls
}
