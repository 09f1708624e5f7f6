// internal/pipeline/extraction/direct.go
package extraction

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"

	"github.com/talentflow/intake-pipeline/internal/models"
)

// DirectStrategy converts PDF and word-processor documents through docconv.
// This is the cheapest layer and handles the common machine-generated case.
type DirectStrategy struct{}

func NewDirectStrategy() *DirectStrategy {
	return &DirectStrategy{}
}

func (s *DirectStrategy) Name() string { return "direct" }

func (s *DirectStrategy) Method() models.ExtractionMethod { return models.ExtractionDirect }

func (s *DirectStrategy) Supports(filename, mimeType string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".docx", ".doc", ".rtf", ".odt":
		return true
	}
	switch mimeType {
	case "application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return true
	}
	return false
}

func (s *DirectStrategy) Extract(ctx context.Context, data []byte, filename string) (string, error) {
	mime := docconv.MimeTypeByExtension(filename)

	res, err := docconv.Convert(bytes.NewReader(data), mime, true)
	if err != nil {
		return "", fmt.Errorf("docconv convert %s: %w", filename, err)
	}
	return res.Body, nil
}
