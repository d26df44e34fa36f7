package service

import (
	"context"
	"io"
)

// MediaDeleteResult reports the per-URL outcome of a batch delete.
// Callers log failures; blob cleanup is best-effort and never blocks a
// state transition.
type MediaDeleteResult struct {
	Deleted []string
	Failed  []string
}

func (r MediaDeleteResult) AllSucceeded() bool {
	return len(r.Failed) == 0
}

type MediaStore interface {
	UploadFile(ctx context.Context, file io.Reader, fileType, folder string) (string, error)
	DeleteFile(ctx context.Context, fileURL string) error
	DeleteFiles(ctx context.Context, fileURLs []string) MediaDeleteResult
	Close() error
}
