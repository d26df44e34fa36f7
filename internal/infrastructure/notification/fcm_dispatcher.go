package notification

import (
	"context"

	"firebase.google.com/go/v4/messaging"

	"foundly/internal/domain/repository"
	"foundly/internal/domain/service"
	"foundly/pkg/logger"
)

type FCMDispatcher struct {
	client   *messaging.Client
	userRepo repository.UserRepository
}

func NewFCMDispatcher(client *messaging.Client, userRepo repository.UserRepository) *FCMDispatcher {
	return &FCMDispatcher{
		client:   client,
		userRepo: userRepo,
	}
}

func (d *FCMDispatcher) Notify(ctx context.Context, userIDs []string, notification service.Notification) error {
	var tokens []string
	for _, userID := range userIDs {
		user, err := d.userRepo.GetByID(ctx, userID)
		if err != nil {
			logger.Warn("Notify: user %s not found, skipping: %v", userID, err)
			continue
		}
		tokens = append(tokens, user.DeviceTokens...)
	}

	if len(tokens) == 0 {
		return nil
	}

	data := map[string]string{"type": notification.Type}
	for k, v := range notification.Data {
		data[k] = v
	}

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: notification.Title,
			Body:  notification.Body,
		},
		Data: data,
	}

	resp, err := d.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return err
	}
	if resp.FailureCount > 0 {
		logger.Warn("Notify: %d of %d pushes failed", resp.FailureCount, len(tokens))
	}

	return nil
}

// ShouldNotify consults the user's per-category opt-out. Lookup failures
// default to notifying; a missing user never blocks the caller.
func (d *FCMDispatcher) ShouldNotify(ctx context.Context, userID, category string) bool {
	user, err := d.userRepo.GetByID(ctx, userID)
	if err != nil {
		return true
	}
	return user.AllowsNotification(category)
}
