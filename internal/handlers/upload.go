package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"

	"github.com/loganlanou/aigifts/internal/blob"
)

type UploadHandler struct {
	blobs   blob.Store
	maxSize int64
}

func NewUploadHandler(blobs blob.Store, maxSize int64) *UploadHandler {
	return &UploadHandler{blobs: blobs, maxSize: maxSize}
}

type UploadResponse struct {
	ImageID     string `json:"image_id"`
	ImageKey    string `json:"image_key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

// Upload accepts a multipart "file" field holding a JPEG, PNG or WebP photo.
// The type is sniffed from the bytes, not taken from the client.
func (h *UploadHandler) Upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	if fh.Size > h.maxSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", h.maxSize))
	}

	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxSize+1))
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > h.maxSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", h.maxSize))
	}
	if len(data) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "file is empty")
	}

	contentType := http.DetectContentType(data)
	ext, ok := blob.ExtensionFor(contentType)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unsupported image type "+contentType)
	}

	imageID := ulid.Make().String()
	key := blob.ImageKey(imageID, ext)
	url, err := h.blobs.Put(c.Request().Context(), key, contentType, data)
	if err != nil {
		return fmt.Errorf("store upload: %w", err)
	}

	slog.Info("image uploaded",
		"image_id", imageID,
		"content_type", contentType,
		"size", len(data),
		"filename", fh.Filename)

	return c.JSON(http.StatusCreated, UploadResponse{
		ImageID:     imageID,
		ImageKey:    key,
		URL:         url,
		ContentType: contentType,
		Size:        len(data),
	})
}
