package service

import "context"

const (
	NotificationCategoryChatMessage     = "chat_message"
	NotificationCategoryRequestRejected = "request_rejected"
)

type Notification struct {
	Type  string
	Title string
	Body  string
	Data  map[string]string
}

// NotificationDispatcher delivers pushes to users. Delivery is
// fire-and-forget relative to document writes: callers log failures and
// carry on.
type NotificationDispatcher interface {
	Notify(ctx context.Context, userIDs []string, notification Notification) error
	ShouldNotify(ctx context.Context, userID, category string) bool
}
