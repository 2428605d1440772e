package providers

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/nodewee/ruling-to-text/pkg/config"
	"github.com/nodewee/ruling-to-text/pkg/interfaces"
	"github.com/nodewee/ruling-to-text/pkg/logger"
	"github.com/nodewee/ruling-to-text/pkg/types"
	"github.com/nodewee/ruling-to-text/pkg/utils"
)

// Lines such as "12", "- 3 -" or "  -7-" that carry only a page or line number
var pageNumberLine = regexp.MustCompile(`^\s*-?\s*\d+\s*-?\s*$`)

// TextLayerExtractor handles the text-layer mode: one whole-document read
type TextLayerExtractor struct {
	name             string
	engine           interfaces.TextLayerEngine
	stripPageNumbers bool
	logger           *logger.Logger
}

// NewTextLayerExtractor creates the extractor for the configured engine
func NewTextLayerExtractor(cfg *config.Config, log *logger.Logger) (*TextLayerExtractor, error) {
	var engine interfaces.TextLayerEngine
	switch cfg.TextLayer.Engine {
	case types.TextLayerPdftotext, "":
		engine = NewPdftotextEngine(cfg, log)
	case types.TextLayerBuiltin:
		engine = NewBuiltinEngine(log)
	default:
		return nil, utils.NewValidationError(fmt.Sprintf("unknown text layer engine: %s", cfg.TextLayer.Engine), nil)
	}
	return NewTextLayerExtractorWithEngine(engine, cfg.TextLayer.StripPageNumbers, log), nil
}

// NewTextLayerExtractorWithEngine wraps an explicit engine
func NewTextLayerExtractorWithEngine(engine interfaces.TextLayerEngine, stripPageNumbers bool, log *logger.Logger) *TextLayerExtractor {
	return &TextLayerExtractor{
		name:             string(types.ModeTextLayer),
		engine:           engine,
		stripPageNumbers: stripPageNumbers,
		logger:           log,
	}
}

// Extract reads the text layer of pdfPath once
func (e *TextLayerExtractor) Extract(ctx context.Context, rec types.CaseRecord, pdfPath string) (*interfaces.ExtractionResult, error) {
	// Check if context is cancelled
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if !e.engine.IsAvailable() {
		return nil, utils.NewUnsupportedError(fmt.Sprintf("text layer engine %s is not available", e.engine.Name()), nil)
	}

	start := time.Now()
	text, diagnostics, err := e.engine.ExtractText(ctx, pdfPath)
	if err != nil {
		return nil, err
	}
	if e.stripPageNumbers {
		text = StripPageNumbers(text)
	}

	return &interfaces.ExtractionResult{
		Text:          text,
		ExtractorUsed: e.engine.Name(),
		ProcessTime:   time.Since(start).Milliseconds(),
		Warnings:      diagnostics,
	}, nil
}

// Name returns the name of the extractor
func (e *TextLayerExtractor) Name() string {
	return e.name
}

// StripPageNumbers drops lines that hold only a page or line number and
// lines made solely of whitespace. Empty lines are kept, and so are lines
// that start with a number or end in spaces but carry other text.
func StripPageNumbers(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if pageNumberLine.MatchString(line) {
			continue
		}
		if line != "" && strings.TrimSpace(line) == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
