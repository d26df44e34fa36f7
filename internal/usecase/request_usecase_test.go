package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foundly/internal/domain/entity"
	"foundly/pkg/errors"
)

const (
	idPhotoURL    = "https://storage.googleapis.com/foundly-media/id_photos/finder.jpg"
	itemPhotoURL  = "https://storage.googleapis.com/foundly-media/item_photos/wallet.jpg"
	ownerPhotoURL = "https://storage.googleapis.com/foundly-media/id_photos/owner.jpg"
)

func createPendingRequest(t *testing.T, f *fixture, conversationID, senderID string) *entity.Message {
	t.Helper()
	message, err := f.requests.CreateRequest(context.Background(), senderID, CreateRequestInput{
		ConversationID: conversationID,
		Type:           entity.MessageTypeClaimRequest,
		Reason:         "That is my wallet, it has my student ID inside",
		IDPhotoURL:     idPhotoURL,
		ItemPhotoURLs:  []string{itemPhotoURL},
	})
	require.NoError(t, err)
	return message
}

func TestCreateRequestValidatesInput(t *testing.T) {
	f := newFixture()
	conversation := openThread(t, f, "post-1", "owner", "finder")

	cases := []struct {
		name  string
		input CreateRequestInput
	}{
		{
			name: "unknown type",
			input: CreateRequestInput{
				ConversationID: conversation.ID,
				Type:           "text",
				Reason:         "hello",
			},
		},
		{
			name: "empty reason",
			input: CreateRequestInput{
				ConversationID: conversation.ID,
				Type:           entity.MessageTypeClaimRequest,
				Reason:         "   ",
			},
		},
		{
			name: "too many item photos",
			input: CreateRequestInput{
				ConversationID: conversation.ID,
				Type:           entity.MessageTypeClaimRequest,
				Reason:         "mine",
				ItemPhotoURLs:  []string{itemPhotoURL, itemPhotoURL, itemPhotoURL, itemPhotoURL},
			},
		},
		{
			name: "malformed photo url",
			input: CreateRequestInput{
				ConversationID: conversation.ID,
				Type:           entity.MessageTypeClaimRequest,
				Reason:         "mine",
				IDPhotoURL:     "not-a-url",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.requests.CreateRequest(context.Background(), "finder", tc.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, "BAD_REQUEST"))
		})
	}

	// Nothing partial may be persisted by rejected input.
	assert.Len(t, f.data.messages[conversation.ID], 1)
}

func TestCreateRequestAppendsPendingMessage(t *testing.T) {
	f := newFixture()
	conversation := openThread(t, f, "post-1", "owner", "finder")

	message := createPendingRequest(t, f, conversation.ID, "finder")

	require.NotNil(t, message.Request)
	assert.Equal(t, entity.RequestStatusPending, message.Request.Status)
	assert.Equal(t, entity.MessageTypeClaimRequest, message.Type)
	assert.True(t, message.IsProtected())

	// The request rides the normal delivery path: summary, unread, push.
	stored := f.data.conversations[conversation.ID]
	assert.Equal(t, message.Text, stored.LastMessage)
	assert.Equal(t, 2, stored.UnreadCount["owner"])
	assert.Equal(t, 1, f.dispatcher.sentTo("owner", "new_message"))
}

func TestAcceptRequestMovesToPendingConfirmation(t *testing.T) {
	f := newFixture()
	conversation := openThread(t, f, "post-1", "owner", "finder")
	message := createPendingRequest(t, f, conversation.ID, "finder")

	err := f.requests.RespondToRequest(context.Background(), "owner", RespondToRequestInput{
		ConversationID:  conversation.ID,
		MessageID:       message.ID,
		Action:          RequestActionAccepted,
		OwnerIDPhotoURL: ownerPhotoURL,
	})
	require.NoError(t, err)

	stored := f.data.findMessage(conversation.ID, message.ID)
	assert.Equal(t, entity.RequestStatusPendingConfirmation, stored.Request.Status)
	assert.Equal(t, ownerPhotoURL, stored.Request.OwnerIDPhotoURL)
}

func TestAcceptRequestRequiresOwnerPhoto(t *testing.T) {
	f := newFixture()
	conversation := openThread(t, f, "post-1", "owner", "finder")
	message := createPendingRequest(t, f, conversation.ID, "finder")

	err := f.requests.RespondToRequest(context.Background(), "owner", RespondToRequestInput{
		ConversationID: conversation.ID,
		MessageID:      message.ID,
		Action:         RequestActionAccepted,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
	assert.Equal(t, entity.RequestStatusPending, f.data.findMessage(conversation.ID, message.ID).Request.Status)
}

func TestRespondToOwnRequestForbidden(t *testing.T) {
	f := newFixture()
	conversation := openThread(t, f, "post-1", "owner", "finder")
	message := createPendingRequest(t, f, conversation.ID, "finder")

	err := f.requests.RespondToRequest(context.Background(), "finder", RespondToRequestInput{
		ConversationID:  conversation.ID,
		MessageID:       message.ID,
		Action:          RequestActionAccepted,
		OwnerIDPhotoURL: ownerPhotoURL,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, "FORBIDDEN"))
}

func TestRespondToNonPendingRequestAlreadyProcessed(t *testing.T) {
	f := newFixture()
	conversation := openThread(t, f, "post-1", "owner", "finder")
	message := createPendingRequest(t, f, conversation.ID, "finder")

	accept := RespondToRequestInput{
		ConversationID:  conversation.ID,
		MessageID:       message.ID,
		Action:          RequestActionAccepted,
		OwnerIDPhotoURL: ownerPhotoURL,
	}
	require.NoError(t, f.requests.RespondToRequest(context.Background(), "owner", accept))

	err := f.requests.RespondToRequest(context.Background(), "owner", accept)
	require.Error(t, err)
	assert.True(t, errors.Is(err, "ALREADY_PROCESSED"))

	err = f.requests.RespondToRequest(context.Background(), "owner", RespondToRequestInput{
		ConversationID: conversation.ID,
		MessageID:      message.ID,
		Action:         RequestActionRejected,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, "ALREADY_PROCESSED"))
}

func TestRejectRequestDeletesPhotosAndClearsFields(t *testing.T) {
	f := newFixture()
	conversation := openThread(t, f, "post-1", "owner", "finder")
	message := createPendingRequest(t, f, conversation.ID, "finder")
	f.media.objects[idPhotoURL] = true
	f.media.objects[itemPhotoURL] = true

	err := f.requests.RespondToRequest(context.Background(), "owner", RespondToRequestInput{
		ConversationID: conversation.ID,
		MessageID:      message.ID,
		Action:         RequestActionRejected,
	})
	require.NoError(t, err)

	assert.False(t, f.media.Has(idPhotoURL))
	assert.False(t, f.media.Has(itemPhotoURL))

	stored := f.data.findMessage(conversation.ID, message.ID)
	assert.Equal(t, entity.RequestStatusRejected, stored.Request.Status)
	assert.Empty(t, stored.Request.IDPhotoURL)
	assert.Empty(t, stored.Request.ItemPhotoURLs)
	assert.True(t, stored.Request.PhotosDeleted)
	assert.True(t, stored.Request.MediaDeleteSucceeded)
}

func TestRejectRequestClearsFieldsEvenWhenMediaDeleteFails(t *testing.T) {
	f := newFixture()
	conversation := openThread(t, f, "post-1", "owner", "finder")
	message := createPendingRequest(t, f, conversation.ID, "finder")
	f.media.objects[idPhotoURL] = true
	f.media.objects[itemPhotoURL] = true
	f.media.failURLs[itemPhotoURL] = true

	err := f.requests.RespondToRequest(context.Background(), "owner", RespondToRequestInput{
		ConversationID: conversation.ID,
		MessageID:      message.ID,
		Action:         RequestActionRejected,
	})
	require.NoError(t, err)

	stored := f.data.findMessage(conversation.ID, message.ID)
	assert.Equal(t, entity.RequestStatusRejected, stored.Request.Status)
	assert.Empty(t, stored.Request.IDPhotoURL)
	assert.Empty(t, stored.Request.ItemPhotoURLs)
	assert.True(t, stored.Request.PhotosDeleted)
	assert.False(t, stored.Request.MediaDeleteSucceeded)
}

func TestConfirmRequestRequiresPendingConfirmation(t *testing.T) {
	f := newFixture()
	conversation := openThread(t, f, "post-1", "owner", "finder")
	message := createPendingRequest(t, f, conversation.ID, "finder")

	err := f.requests.ConfirmRequest(context.Background(), "owner", ConfirmRequestInput{
		ConversationID: conversation.ID,
		MessageID:      message.ID,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, "ALREADY_PROCESSED"))
}

func TestConfirmOwnRequestForbidden(t *testing.T) {
	f := newFixture()
	conversation := openThread(t, f, "post-1", "owner", "finder")
	message := createPendingRequest(t, f, conversation.ID, "finder")

	require.NoError(t, f.requests.RespondToRequest(context.Background(), "owner", RespondToRequestInput{
		ConversationID:  conversation.ID,
		MessageID:       message.ID,
		Action:          RequestActionAccepted,
		OwnerIDPhotoURL: ownerPhotoURL,
	}))

	err := f.requests.ConfirmRequest(context.Background(), "finder", ConfirmRequestInput{
		ConversationID: conversation.ID,
		MessageID:      message.ID,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, "FORBIDDEN"))
}

func TestConfirmRequestOnPlainMessageBadRequest(t *testing.T) {
	f := newFixture()
	conversation := openThread(t, f, "post-1", "owner", "finder")

	opening := f.data.messages[conversation.ID][0]
	err := f.requests.ConfirmRequest(context.Background(), "owner", ConfirmRequestInput{
		ConversationID: conversation.ID,
		MessageID:      opening.ID,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}
