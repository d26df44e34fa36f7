package handler

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"foundly/internal/domain/service"
	"foundly/pkg/errors"
	"foundly/pkg/logger"
	"foundly/pkg/response"
)

type FileHandler struct {
	mediaStore  service.MediaStore
	maxFileSize int64
}

func NewFileHandler(mediaStore service.MediaStore) *FileHandler {
	return &FileHandler{
		mediaStore:  mediaStore,
		maxFileSize: 5 * 1024 * 1024,
	}
}

var allowedPhotoTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

// UploadFile stores a photo and returns its public URL. Clients upload
// ID and item photos here before attaching the URLs to a request.
func (h *FileHandler) UploadFile(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return response.Error(c, errors.BadRequest("Missing or invalid file", err))
	}

	if file.Size > h.maxFileSize {
		return response.Error(c, errors.BadRequest(fmt.Sprintf("File size exceeds maximum allowed (%dMB)", h.maxFileSize/(1024*1024)), nil))
	}

	fileType := file.Header.Get("Content-Type")
	if !allowedPhotoTypes[fileType] {
		return response.Error(c, errors.BadRequest("File type not supported", nil))
	}

	folder := c.FormValue("folder")
	switch folder {
	case "id_photos", "item_photos":
	default:
		folder = "uploads"
	}

	src, err := file.Open()
	if err != nil {
		return response.Error(c, errors.Internal("Failed to open uploaded file", err))
	}
	defer src.Close()

	userID := c.Get("uid").(string)
	logger.Debug("Uploading %s (%d bytes) for user %s", file.Filename, file.Size, userID)

	url, err := h.mediaStore.UploadFile(c.Request().Context(), src, fileType, folder)
	if err != nil {
		logger.Error("Upload failed for user %s: %v", userID, err)
		return response.Error(c, errors.Internal("Failed to store file", err))
	}

	return response.Created(c, map[string]string{"url": url})
}
