package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"foundly/internal/domain/entity"
	"foundly/internal/domain/repository"
	"foundly/pkg/errors"
)

type firestorePostRepository struct {
	client *firestore.Client
}

func NewFirestorePostRepository(client *firestore.Client) repository.PostRepository {
	return &firestorePostRepository{
		client: client,
	}
}

func (r *firestorePostRepository) GetByID(ctx context.Context, id string) (*entity.Post, error) {
	doc, err := r.client.Collection("posts").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Post", err)
		}
		return nil, errors.Internal("Failed to get post", err)
	}

	var post entity.Post
	if err := doc.DataTo(&post); err != nil {
		return nil, errors.Internal("Failed to parse post data", err)
	}
	post.ID = doc.Ref.ID

	return &post, nil
}
