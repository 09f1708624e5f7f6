// internal/pipeline/extraction/engine.go

// Package extraction turns resume documents into text through a layered
// chain: direct conversion, layout-aware PDF parsing, then OCR. Each layer
// runs only when the previous one failed or produced unusable text.
package extraction

import (
	"context"
	"strings"
	"unicode"

	"github.com/talentflow/intake-pipeline/internal/common/config"
	"github.com/talentflow/intake-pipeline/internal/common/errors"
	"github.com/talentflow/intake-pipeline/internal/common/logger"
	"github.com/talentflow/intake-pipeline/internal/models"
)

// Strategy is one extraction layer.
type Strategy interface {
	Name() string
	Method() models.ExtractionMethod
	// Supports reports whether the layer can handle the document type.
	Supports(filename, mimeType string) bool
	Extract(ctx context.Context, data []byte, filename string) (string, error)
}

// Result is the outcome of a successful extraction.
type Result struct {
	Text   string
	Method models.ExtractionMethod
}

// Engine runs the strategy chain in order.
type Engine struct {
	strategies []Strategy
	cfg        config.ExtractionConfig
	log        logger.Logger
}

// NewEngine assembles the default chain from configuration. OCR is appended
// only when enabled.
func NewEngine(cfg config.ExtractionConfig, log logger.Logger) *Engine {
	strategies := []Strategy{
		NewDirectStrategy(),
		NewLayoutStrategy(),
	}
	if cfg.OCREnabled {
		strategies = append(strategies, NewOCRStrategy(cfg.OCRLanguages))
	}
	return &Engine{strategies: strategies, cfg: cfg, log: log}
}

// NewEngineWithStrategies builds an engine over an explicit chain. Used by
// tests to substitute strategies.
func NewEngineWithStrategies(cfg config.ExtractionConfig, log logger.Logger, strategies ...Strategy) *Engine {
	return &Engine{strategies: strategies, cfg: cfg, log: log}
}

// Extract runs the chain until a layer yields usable text. If every layer
// fails or produces unusable output, the document is unreadable.
func (e *Engine) Extract(ctx context.Context, data []byte, filename, mimeType string) (*Result, error) {
	var lastErr error

	for _, s := range e.strategies {
		if !s.Supports(filename, mimeType) {
			continue
		}

		text, err := s.Extract(ctx, data, filename)
		if err != nil {
			lastErr = err
			e.log.Warn("extraction layer failed", map[string]interface{}{
				"layer":    s.Name(),
				"filename": filename,
				"error":    err.Error(),
			})
			continue
		}

		if e.usable(text) {
			e.log.Info("extraction succeeded", map[string]interface{}{
				"layer":    s.Name(),
				"filename": filename,
				"chars":    len(text),
			})
			return &Result{Text: strings.TrimSpace(text), Method: s.Method()}, nil
		}

		e.log.Warn("extraction layer produced unusable text, falling through", map[string]interface{}{
			"layer":    s.Name(),
			"filename": filename,
			"chars":    len(text),
		})
	}

	details := "all extraction layers exhausted"
	if lastErr != nil {
		details = lastErr.Error()
	}
	return nil, errors.NewExtractionUnreadableError(filename, details)
}

// usable applies the quality policy: long enough and mostly printable.
func (e *Engine) usable(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < e.cfg.MinTextLength {
		return false
	}
	return printableRatio(trimmed) >= e.cfg.MinPrintableRatio
}

func printableRatio(text string) float64 {
	if len(text) == 0 {
		return 0
	}
	printable := 0
	total := 0
	for _, r := range text {
		total++
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printable++
		}
	}
	return float64(printable) / float64(total)
}
