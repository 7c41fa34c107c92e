package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/soc-review/backend/internal/ingestion"
	"github.com/soc-review/backend/internal/review"
	"github.com/soc-review/backend/pkg/logger"
)

// Reviewer runs the checklist review over extracted report text.
type Reviewer interface {
	Review(ctx context.Context, documentText string) *review.Result
}

// UploadExtractor turns an uploaded file into plain text.
type UploadExtractor interface {
	ExtractUpload(fh *multipart.FileHeader) (string, error)
}

type ReviewHandler struct {
	engine    Reviewer
	extractor UploadExtractor
}

func NewReviewHandler(engine Reviewer, extractor UploadExtractor) *ReviewHandler {
	return &ReviewHandler{
		engine:    engine,
		extractor: extractor,
	}
}

// ReviewText reviews report text submitted as JSON.
func (h *ReviewHandler) ReviewText(c *fiber.Ctx) error {
	var req struct {
		ReportText string `json:"report_text"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if strings.TrimSpace(req.ReportText) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "report_text is required",
		})
	}

	result := h.engine.Review(c.Context(), req.ReportText)

	return c.JSON(result)
}

// ReviewUpload extracts text from an uploaded .docx report and reviews it.
func (h *ReviewHandler) ReviewUpload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "A file upload named \"file\" is required",
		})
	}

	text, err := h.extractor.ExtractUpload(fh)
	if err != nil {
		logger.Warn("Upload rejected",
			zap.String("filename", fh.Filename),
			zap.Error(err),
		)
		switch {
		case errors.Is(err, ingestion.ErrUnsupportedFormat):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Only .docx reports are supported",
			})
		case errors.Is(err, ingestion.ErrExtraction):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Could not extract text from the uploaded document",
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to read upload",
			})
		}
	}

	result := h.engine.Review(c.Context(), text)

	return c.JSON(struct {
		Filename string `json:"filename"`
		*review.Result
	}{
		Filename: fh.Filename,
		Result:   result,
	})
}
