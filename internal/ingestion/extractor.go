package ingestion

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/soc-review/backend/internal/metrics"
	"github.com/soc-review/backend/pkg/logger"
)

// Extractor validates report uploads and extracts their text.
type Extractor struct {
	maxBytes int64
}

func NewExtractor(maxBytes int64) *Extractor {
	if maxBytes <= 0 {
		maxBytes = 16 << 20
	}
	return &Extractor{maxBytes: maxBytes}
}

// ExtractUpload returns the plain text of an uploaded report file. The
// extension decides the format; only .docx is accepted.
func (e *Extractor) ExtractUpload(fh *multipart.FileHeader) (string, error) {
	if ext := strings.ToLower(filepath.Ext(fh.Filename)); ext != ".docx" {
		metrics.DocumentsExtracted.WithLabelValues("unsupported").Inc()
		return "", fmt.Errorf("%w: %q is not a .docx file", ErrUnsupportedFormat, fh.Filename)
	}
	if fh.Size > e.maxBytes {
		metrics.DocumentsExtracted.WithLabelValues("too_large").Inc()
		return "", fmt.Errorf("%w: file exceeds %d bytes", ErrExtraction, e.maxBytes)
	}

	f, err := fh.Open()
	if err != nil {
		metrics.DocumentsExtracted.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: opening upload: %v", ErrExtraction, err)
	}
	defer f.Close()

	text, err := ExtractDocx(f, fh.Size)
	if err != nil {
		metrics.DocumentsExtracted.WithLabelValues("error").Inc()
		return "", err
	}

	metrics.DocumentsExtracted.WithLabelValues("success").Inc()
	logger.Debug("Document text extracted",
		zap.String("filename", fh.Filename),
		zap.Int("chars", len(text)),
	)

	return text, nil
}

// ExtractFile returns the plain text of a report on the local filesystem.
// Used by the CLI, which reads reports by path rather than as uploads.
func ExtractFile(path string) (string, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".docx" {
		return "", fmt.Errorf("%w: %q is not a .docx file", ErrUnsupportedFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	return ExtractDocx(f, info.Size())
}
