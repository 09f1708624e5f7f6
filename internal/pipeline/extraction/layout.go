// internal/pipeline/extraction/layout.go
package extraction

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	"github.com/talentflow/intake-pipeline/internal/models"
)

// LayoutStrategy parses PDFs page by page with a layout-aware extractor.
// It recovers text from documents where the direct converter returns little
// or nothing, typically multi-column or oddly encoded PDFs.
type LayoutStrategy struct{}

func NewLayoutStrategy() *LayoutStrategy {
	return &LayoutStrategy{}
}

func (s *LayoutStrategy) Name() string { return "layout" }

func (s *LayoutStrategy) Method() models.ExtractionMethod { return models.ExtractionLayout }

func (s *LayoutStrategy) Supports(filename, mimeType string) bool {
	return strings.ToLower(filepath.Ext(filename)) == ".pdf" || mimeType == "application/pdf"
}

func (s *LayoutStrategy) Extract(ctx context.Context, data []byte, filename string) (string, error) {
	pdfReader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to read PDF: %w", err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("failed to get page count: %w", err)
	}
	if numPages == 0 {
		return "", fmt.Errorf("PDF has no pages")
	}

	var textBuilder strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			continue
		}

		ex, err := extractor.New(page)
		if err != nil {
			continue
		}

		pageText, err := ex.ExtractText()
		if err != nil {
			continue
		}

		textBuilder.WriteString(pageText)
		textBuilder.WriteString("\n")
	}

	return textBuilder.String(), nil
}
