package repository

import (
	"context"

	"foundly/internal/domain/entity"
)

type PostRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Post, error)
}
