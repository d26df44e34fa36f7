package usecase

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"foundly/internal/domain/entity"
	"foundly/internal/domain/repository"
	"foundly/internal/domain/service"
	"foundly/pkg/errors"
)

// In-memory doubles for the firestore repositories and the external
// collaborators, mirroring their error semantics.

type fakeData struct {
	posts         map[string]*entity.Post
	users         map[string]*entity.User
	conversations map[string]*entity.Conversation
	messages      map[string][]*entity.Message // conversationID -> ordered oldest first
	keys          map[string]bool
	seq           int
}

func newFakeData() *fakeData {
	return &fakeData{
		posts:         make(map[string]*entity.Post),
		users:         make(map[string]*entity.User),
		conversations: make(map[string]*entity.Conversation),
		messages:      make(map[string][]*entity.Message),
		keys:          make(map[string]bool),
	}
}

func (d *fakeData) nextID(prefix string) string {
	d.seq++
	return fmt.Sprintf("%s-%d", prefix, d.seq)
}

func (d *fakeData) keyID(postID, requesterID string) string {
	return postID + "_" + requesterID
}

func (d *fakeData) findMessage(conversationID, messageID string) *entity.Message {
	for _, message := range d.messages[conversationID] {
		if message.ID == messageID {
			return message
		}
	}
	return nil
}

type fakeConversationRepo struct {
	data *fakeData
}

func (r *fakeConversationRepo) CreateWithOpeningMessage(ctx context.Context, conversation *entity.Conversation, opening *entity.Message) error {
	key := r.data.keyID(conversation.PostID, conversation.CreatedBy)
	if r.data.keys[key] {
		return errors.AlreadyProcessed("A conversation for this post already exists", nil)
	}

	if conversation.ID == "" {
		conversation.ID = r.data.nextID("conv")
	}
	if opening.ID == "" {
		opening.ID = r.data.nextID("msg")
	}
	now := time.Now()
	conversation.CreatedAt = now
	conversation.UpdatedAt = now
	opening.ConversationID = conversation.ID

	r.data.keys[key] = true
	r.data.conversations[conversation.ID] = conversation
	r.data.messages[conversation.ID] = append(r.data.messages[conversation.ID], opening)
	return nil
}

func (r *fakeConversationRepo) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	conversation, ok := r.data.conversations[id]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	return conversation, nil
}

func (r *fakeConversationRepo) ListByUserID(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	var result []*entity.Conversation
	for _, conversation := range r.data.conversations {
		for _, id := range conversation.ParticipantIDs {
			if id == userID {
				result = append(result, conversation)
				break
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeConversationRepo) ListByPostID(ctx context.Context, postID string) ([]*entity.Conversation, error) {
	var result []*entity.Conversation
	for _, conversation := range r.data.conversations {
		if conversation.PostID == postID {
			result = append(result, conversation)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeConversationRepo) FindByPostAndParticipants(ctx context.Context, postID, requesterID, otherID string) (*entity.Conversation, error) {
	for _, conversation := range r.data.conversations {
		if conversation.PostID == postID && conversation.HasParticipant(requesterID) && conversation.HasParticipant(otherID) {
			return conversation, nil
		}
	}
	return nil, errors.NotFound("Conversation", nil)
}

func (r *fakeConversationRepo) ResetUnread(ctx context.Context, conversationID, userID string) error {
	conversation, ok := r.data.conversations[conversationID]
	if !ok {
		return errors.NotFound("Conversation", nil)
	}
	if conversation.UnreadCount == nil {
		conversation.UnreadCount = make(map[string]int)
	}
	conversation.UnreadCount[userID] = 0
	return nil
}

func (r *fakeConversationRepo) DeleteWithMessages(ctx context.Context, conversation *entity.Conversation) error {
	delete(r.data.conversations, conversation.ID)
	delete(r.data.messages, conversation.ID)
	delete(r.data.keys, r.data.keyID(conversation.PostID, conversation.CreatedBy))
	return nil
}

func (r *fakeConversationRepo) CreateMessage(ctx context.Context, message *entity.Message) error {
	if message.ID == "" {
		message.ID = r.data.nextID("msg")
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	r.data.messages[message.ConversationID] = append(r.data.messages[message.ConversationID], message)
	return nil
}

func (r *fakeConversationRepo) GetMessageByID(ctx context.Context, conversationID, messageID string) (*entity.Message, error) {
	if message := r.data.findMessage(conversationID, messageID); message != nil {
		return message, nil
	}
	return nil, errors.NotFound("Message", nil)
}

func (r *fakeConversationRepo) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, int64, error) {
	all := r.data.messages[conversationID]
	total := int64(len(all))

	newestFirst := make([]*entity.Message, len(all))
	for i, message := range all {
		newestFirst[len(all)-1-i] = message
	}

	if offset > len(newestFirst) {
		offset = len(newestFirst)
	}
	newestFirst = newestFirst[offset:]
	if limit > 0 && limit < len(newestFirst) {
		newestFirst = newestFirst[:limit]
	}
	return newestFirst, total, nil
}

func (r *fakeConversationRepo) ListMessagesOldestFirst(ctx context.Context, conversationID string) ([]*entity.Message, error) {
	return append([]*entity.Message(nil), r.data.messages[conversationID]...), nil
}

func (r *fakeConversationRepo) DeleteMessages(ctx context.Context, conversationID string, messageIDs []string) error {
	doomed := make(map[string]bool, len(messageIDs))
	for _, id := range messageIDs {
		doomed[id] = true
	}
	var kept []*entity.Message
	for _, message := range r.data.messages[conversationID] {
		if !doomed[message.ID] {
			kept = append(kept, message)
		}
	}
	r.data.messages[conversationID] = kept
	return nil
}

func (r *fakeConversationRepo) RecordLastMessage(ctx context.Context, conversationID, summary string, at time.Time, incrementFor []string) error {
	conversation, ok := r.data.conversations[conversationID]
	if !ok {
		return errors.NotFound("Conversation", nil)
	}
	conversation.LastMessage = summary
	conversation.LastMessageAt = at
	conversation.UpdatedAt = at
	if conversation.UnreadCount == nil {
		conversation.UnreadCount = make(map[string]int)
	}
	for _, userID := range incrementFor {
		conversation.UnreadCount[userID]++
	}
	return nil
}

func (r *fakeConversationRepo) MarkAllMessagesRead(ctx context.Context, conversationID, userID string) (bool, error) {
	changed := false
	for _, message := range r.data.messages[conversationID] {
		seen := false
		for _, reader := range message.ReadBy {
			if reader == userID {
				seen = true
				break
			}
		}
		if !seen {
			message.ReadBy = append(message.ReadBy, userID)
			changed = true
		}
	}
	return changed, nil
}

func (r *fakeConversationRepo) AcceptRequest(ctx context.Context, conversationID, messageID, ownerIDPhotoURL string) error {
	message := r.data.findMessage(conversationID, messageID)
	if message == nil {
		return errors.NotFound("Request message", nil)
	}
	if message.Request == nil {
		return errors.BadRequest("Message does not carry a request", nil)
	}
	if message.Request.Status != entity.RequestStatusPending {
		return errors.AlreadyProcessed("Request is no longer pending", nil)
	}
	message.Request.Status = entity.RequestStatusPendingConfirmation
	message.Request.OwnerIDPhotoURL = ownerIDPhotoURL
	return nil
}

func (r *fakeConversationRepo) RejectRequest(ctx context.Context, conversationID, messageID string) (*entity.Message, error) {
	message := r.data.findMessage(conversationID, messageID)
	if message == nil {
		return nil, errors.NotFound("Request message", nil)
	}
	if message.Request == nil {
		return nil, errors.BadRequest("Message does not carry a request", nil)
	}
	if message.Request.Status != entity.RequestStatusPending {
		return nil, errors.AlreadyProcessed("Request is no longer pending", nil)
	}
	message.Request.Status = entity.RequestStatusRejected
	snapshot := *message
	request := *message.Request
	snapshot.Request = &request
	return &snapshot, nil
}

func (r *fakeConversationRepo) ClearRequestPhotos(ctx context.Context, conversationID, messageID string, mediaDeleteSucceeded bool) error {
	message := r.data.findMessage(conversationID, messageID)
	if message == nil || message.Request == nil {
		return errors.NotFound("Request message", nil)
	}
	message.Request.IDPhotoURL = ""
	message.Request.OwnerIDPhotoURL = ""
	message.Request.ItemPhotoURLs = nil
	message.Request.PhotosDeleted = true
	message.Request.MediaDeleteSucceeded = mediaDeleteSucceeded
	return nil
}

func (r *fakeConversationRepo) ConfirmRequestAndResolvePost(ctx context.Context, write repository.ResolutionWrite) error {
	message := r.data.findMessage(write.ConversationID, write.MessageID)
	if message == nil {
		return errors.NotFound("Request message", nil)
	}
	if message.Request == nil {
		return errors.BadRequest("Message does not carry a request", nil)
	}
	if message.Request.Status != entity.RequestStatusPendingConfirmation || message.Request.IDPhotoConfirmed {
		return errors.AlreadyProcessed("Request has already been processed", nil)
	}
	post, ok := r.data.posts[write.PostID]
	if !ok {
		return errors.NotFound("Post", nil)
	}

	message.Request.IDPhotoConfirmed = true
	message.Request.ConfirmedBy = write.ConfirmerID
	confirmedAt := write.ConfirmedAt
	message.Request.ConfirmedAt = &confirmedAt

	post.Status = entity.PostStatusResolved
	post.ResolutionDetails = write.Details
	post.UpdatedAt = write.ConfirmedAt
	return nil
}

type fakePostRepo struct {
	data *fakeData
}

func (r *fakePostRepo) GetByID(ctx context.Context, id string) (*entity.Post, error) {
	post, ok := r.data.posts[id]
	if !ok {
		return nil, errors.NotFound("Post", nil)
	}
	return post, nil
}

type fakeUserRepo struct {
	data *fakeData
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	user, ok := r.data.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	return user, nil
}

type fakeMediaStore struct {
	objects  map[string]bool
	failURLs map[string]bool
}

func newFakeMediaStore(urls ...string) *fakeMediaStore {
	store := &fakeMediaStore{
		objects:  make(map[string]bool),
		failURLs: make(map[string]bool),
	}
	for _, url := range urls {
		store.objects[url] = true
	}
	return store
}

func (s *fakeMediaStore) UploadFile(ctx context.Context, file io.Reader, fileType, folder string) (string, error) {
	url := fmt.Sprintf("https://storage.googleapis.com/test/%s/%d", folder, len(s.objects))
	s.objects[url] = true
	return url, nil
}

func (s *fakeMediaStore) DeleteFile(ctx context.Context, fileURL string) error {
	if s.failURLs[fileURL] {
		return fmt.Errorf("delete failed for %s", fileURL)
	}
	delete(s.objects, fileURL)
	return nil
}

func (s *fakeMediaStore) DeleteFiles(ctx context.Context, fileURLs []string) service.MediaDeleteResult {
	var result service.MediaDeleteResult
	for _, fileURL := range fileURLs {
		if err := s.DeleteFile(ctx, fileURL); err != nil {
			result.Failed = append(result.Failed, fileURL)
			continue
		}
		result.Deleted = append(result.Deleted, fileURL)
	}
	return result
}

func (s *fakeMediaStore) Close() error { return nil }

func (s *fakeMediaStore) Has(url string) bool { return s.objects[url] }

type sentNotification struct {
	UserIDs      []string
	Notification service.Notification
}

type fakeDispatcher struct {
	sent  []sentNotification
	muted map[string]map[string]bool // userID -> category -> muted
	err   error
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{muted: make(map[string]map[string]bool)}
}

func (d *fakeDispatcher) Mute(userID, category string) {
	if d.muted[userID] == nil {
		d.muted[userID] = make(map[string]bool)
	}
	d.muted[userID][category] = true
}

func (d *fakeDispatcher) Notify(ctx context.Context, userIDs []string, notification service.Notification) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, sentNotification{UserIDs: userIDs, Notification: notification})
	return nil
}

func (d *fakeDispatcher) ShouldNotify(ctx context.Context, userID, category string) bool {
	return !d.muted[userID][category]
}

func (d *fakeDispatcher) sentTo(userID, notificationType string) int {
	count := 0
	for _, s := range d.sent {
		if s.Notification.Type != notificationType {
			continue
		}
		for _, id := range s.UserIDs {
			if id == userID {
				count++
			}
		}
	}
	return count
}

// fixture wires the usecases over one shared fake dataset.
type fixture struct {
	data          *fakeData
	convRepo      *fakeConversationRepo
	postRepo      *fakePostRepo
	userRepo      *fakeUserRepo
	media         *fakeMediaStore
	dispatcher    *fakeDispatcher
	conversations *ConversationUseCase
	messages      *MessageUseCase
	requests      *RequestUseCase
	resolution    *ResolutionUseCase
}

func newFixture() *fixture {
	data := newFakeData()
	convRepo := &fakeConversationRepo{data: data}
	postRepo := &fakePostRepo{data: data}
	userRepo := &fakeUserRepo{data: data}
	media := newFakeMediaStore()
	dispatcher := newFakeDispatcher()

	messages := NewMessageUseCase(convRepo, userRepo, dispatcher)
	resolution := NewResolutionUseCase(convRepo, userRepo, media, dispatcher)

	return &fixture{
		data:          data,
		convRepo:      convRepo,
		postRepo:      postRepo,
		userRepo:      userRepo,
		media:         media,
		dispatcher:    dispatcher,
		conversations: NewConversationUseCase(convRepo, postRepo, userRepo),
		messages:      messages,
		requests:      NewRequestUseCase(convRepo, media, messages, resolution),
		resolution:    resolution,
	}
}

func (f *fixture) addUser(id, name string) {
	f.data.users[id] = &entity.User{ID: id, Name: name}
}

func (f *fixture) addPost(id, creatorID, postType string) *entity.Post {
	post := &entity.Post{
		ID:        id,
		Type:      postType,
		Status:    entity.PostStatusPending,
		CreatorID: creatorID,
		Title:     "Black wallet",
	}
	f.data.posts[id] = post
	return post
}
