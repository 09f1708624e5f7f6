// internal/pipeline/extraction/ocr.go
package extraction

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/unidoc/unipdf/v3/model"
	"github.com/unidoc/unipdf/v3/render"

	"github.com/talentflow/intake-pipeline/internal/models"
)

// OCRStrategy is the last-resort layer for scanned resumes. PDF pages are
// rasterized first, since tesseract only reads raster images; the rendered
// pages are then recognized one by one and the engine's quality policy
// decides if the combined text is usable.
type OCRStrategy struct {
	languages string
}

func NewOCRStrategy(languages string) *OCRStrategy {
	if languages == "" {
		languages = "eng"
	}
	return &OCRStrategy{languages: languages}
}

func (s *OCRStrategy) Name() string { return "ocr" }

func (s *OCRStrategy) Method() models.ExtractionMethod { return models.ExtractionOCR }

func (s *OCRStrategy) Supports(filename, mimeType string) bool {
	if strings.HasPrefix(mimeType, "image/") {
		return true
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png", ".jpg", ".jpeg", ".tiff", ".tif", ".pdf":
		return true
	}
	return mimeType == "application/pdf"
}

func (s *OCRStrategy) Extract(ctx context.Context, data []byte, filename string) (string, error) {
	images, err := ocrImages(data)
	if err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(strings.Split(s.languages, "+")...); err != nil {
		return "", fmt.Errorf("ocr language setup: %w", err)
	}

	var textBuilder strings.Builder
	for i, img := range images {
		if err := client.SetImageFromBytes(img); err != nil {
			return "", fmt.Errorf("ocr image load (page %d): %w", i+1, err)
		}
		text, err := client.Text()
		if err != nil {
			return "", fmt.Errorf("ocr recognition (page %d): %w", i+1, err)
		}
		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}
	return textBuilder.String(), nil
}

// ocrImages prepares tesseract input. PDF documents are rasterized page by
// page; anything else is passed through as a raster image.
func ocrImages(data []byte) ([][]byte, error) {
	if bytes.HasPrefix(data, []byte("%PDF")) {
		return rasterizePDF(data)
	}
	return [][]byte{data}, nil
}

// rasterizePDF renders each PDF page to a PNG. Pages that fail to render are
// skipped; a document with no renderable pages is an error.
func rasterizePDF(data []byte) ([][]byte, error) {
	pdfReader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF for rasterization: %w", err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}

	device := render.NewImageDevice()
	var images [][]byte
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			continue
		}

		img, err := device.Render(page)
		if err != nil {
			continue
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			continue
		}
		images = append(images, buf.Bytes())
	}

	if len(images) == 0 {
		return nil, fmt.Errorf("PDF has no renderable pages")
	}
	return images, nil
}
