package entity

import "time"

type User struct {
	ID                string          `json:"id" firestore:"id"`
	Name              string          `json:"name" firestore:"name"`
	Email             string          `json:"email,omitempty" firestore:"email,omitempty"`
	PhotoURL          string          `json:"photo_url,omitempty" firestore:"photoUrl,omitempty"`
	DeviceTokens      []string        `json:"device_tokens,omitempty" firestore:"deviceTokens,omitempty"`
	NotificationPrefs map[string]bool `json:"notification_prefs,omitempty" firestore:"notificationPrefs,omitempty"` // category -> enabled; absent means enabled
	CreatedAt         time.Time       `json:"created_at" firestore:"createdAt"`
	UpdatedAt         time.Time       `json:"updated_at" firestore:"updatedAt"`
}

// AllowsNotification reports whether the user accepts pushes for the
// given category. Missing preference defaults to enabled.
func (u *User) AllowsNotification(category string) bool {
	if u.NotificationPrefs == nil {
		return true
	}
	enabled, ok := u.NotificationPrefs[category]
	if !ok {
		return true
	}
	return enabled
}
