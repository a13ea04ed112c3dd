package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/loganlanou/aigifts/internal/apperr"
	"github.com/loganlanou/aigifts/internal/blob"
	"github.com/loganlanou/aigifts/internal/catalog"
	"github.com/loganlanou/aigifts/internal/jobs"
	"github.com/loganlanou/aigifts/internal/printasset"
)

type AssetHandler struct {
	jobs    jobs.Store
	blobs   blob.Store
	shopURL string
}

func NewAssetHandler(store jobs.Store, blobs blob.Store, shopURL string) *AssetHandler {
	return &AssetHandler{jobs: store, blobs: blobs, shopURL: shopURL}
}

type AssetRequest struct {
	JobID     string `json:"job_id"`
	ProductID string `json:"product_id"`
	Message   string `json:"message"`
}

type AssetResponse struct {
	FileURL     string `json:"file_url"`
	ContentType string `json:"content_type"`
	ProductID   string `json:"product_id"`
	ImageID     string `json:"image_id"`
}

// Create renders the vendor print file for a finished job and stores it.
// The returned file URL is what checkout carries to the vendor.
func (h *AssetHandler) Create(c echo.Context) error {
	var req AssetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.JobID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "job_id is required")
	}
	product, ok := catalog.Lookup(req.ProductID)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown product %q", req.ProductID))
	}

	ctx := c.Request().Context()
	job, err := h.jobs.Get(ctx, req.JobID)
	if err != nil {
		return err
	}
	if job.Status != jobs.StatusDone {
		return fmt.Errorf("job %s is %s, not done: %w", job.ID, job.Status, apperr.ErrValidation)
	}

	src, err := h.blobs.Get(ctx, jobs.ResultKey(job.ID))
	if err != nil {
		return fmt.Errorf("load job result: %w", err)
	}

	data, contentType, err := printasset.Build(src, product, printasset.Options{
		Message: strings.TrimSpace(req.Message),
		ShopURL: h.shopURL,
	})
	if err != nil {
		return err
	}

	ext := ".png"
	if contentType == "application/pdf" {
		ext = ".pdf"
	}
	key := "assets/" + job.ID + "-" + product.ID + ext
	fileURL, err := h.blobs.Put(ctx, key, contentType, data)
	if err != nil {
		return fmt.Errorf("store print asset: %w", err)
	}

	slog.Info("print asset built",
		"job_id", job.ID,
		"product_id", product.ID,
		"content_type", contentType,
		"size", len(data))

	return c.JSON(http.StatusCreated, AssetResponse{
		FileURL:     fileURL,
		ContentType: contentType,
		ProductID:   product.ID,
		ImageID:     job.ImageID,
	})
}
