package entity

import "time"

const (
	PostTypeLost  = "lost"
	PostTypeFound = "found"

	PostStatusPending   = "pending"
	PostStatusResolved  = "resolved"
	PostStatusUnclaimed = "unclaimed"
)

// ResolutionDetails is the only record of an exchange that survives once
// the post's conversations are deleted, so it carries everything needed
// to reconstruct who received the item and on what evidence.
type ResolutionDetails struct {
	RequesterID         string    `json:"requester_id" firestore:"requesterId"`
	RequesterName       string    `json:"requester_name" firestore:"requesterName"`
	RequesterIDPhotoURL string    `json:"requester_id_photo_url,omitempty" firestore:"requesterIdPhotoUrl,omitempty"`
	OwnerIDPhotoURL     string    `json:"owner_id_photo_url,omitempty" firestore:"ownerIdPhotoUrl,omitempty"`
	ItemPhotoURLs       []string  `json:"item_photo_urls,omitempty" firestore:"itemPhotoUrls,omitempty"`
	ConfirmedBy         string    `json:"confirmed_by" firestore:"confirmedBy"`
	ConfirmedAt         time.Time `json:"confirmed_at" firestore:"confirmedAt"`
}

type Post struct {
	ID                string             `json:"id" firestore:"id"`
	Type              string             `json:"type" firestore:"type"` // "lost", "found"
	Status            string             `json:"status" firestore:"status"` // "pending", "resolved", "unclaimed"
	CreatorID         string             `json:"creator_id" firestore:"creatorId"`
	Title             string             `json:"title" firestore:"title"`
	Description       string             `json:"description,omitempty" firestore:"description,omitempty"`
	PhotoURL          string             `json:"photo_url,omitempty" firestore:"photoUrl,omitempty"`
	FoundAction       string             `json:"found_action,omitempty" firestore:"foundAction,omitempty"` // "keep", "turn_over", empty for lost posts
	ResolutionDetails *ResolutionDetails `json:"resolution_details,omitempty" firestore:"resolutionDetails,omitempty"`
	CreatedAt         time.Time          `json:"created_at" firestore:"createdAt"`
	UpdatedAt         time.Time          `json:"updated_at" firestore:"updatedAt"`
}

func (p *Post) IsResolved() bool {
	return p.Status == PostStatusResolved
}
