// Package ocr implements the ocr extraction mode: rasterize the case PDF,
// recognize each page and reassemble the pages in order.
package ocr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nodewee/ruling-to-text/pkg/config"
	"github.com/nodewee/ruling-to-text/pkg/constants"
	"github.com/nodewee/ruling-to-text/pkg/interfaces"
	"github.com/nodewee/ruling-to-text/pkg/logger"
	"github.com/nodewee/ruling-to-text/pkg/types"
	"github.com/nodewee/ruling-to-text/pkg/utils"
)

// PageExtractor handles the ocr mode
type PageExtractor struct {
	name            string
	engineName      types.OCREngineName
	selector        interfaces.OCRSelector
	rasterizer      interfaces.Rasterizer
	useCache        bool
	pageConcurrency int
	separator       string
	joinLines       bool
	attempts        int
	logger          *logger.Logger
}

var _ interfaces.Extractor = (*PageExtractor)(nil)

// NewPageExtractor creates a new OCR extractor
func NewPageExtractor(cfg *config.Config, rasterizer interfaces.Rasterizer, selector interfaces.OCRSelector, log *logger.Logger) *PageExtractor {
	concurrency := cfg.OCR.PageConcurrency
	if concurrency < 1 {
		concurrency = constants.DefaultPageConcurrency
	}
	return &PageExtractor{
		name:            string(types.ModeOCR),
		engineName:      cfg.OCR.Engine,
		selector:        selector,
		rasterizer:      rasterizer,
		useCache:        cfg.UseCache,
		pageConcurrency: concurrency,
		separator:       cfg.OCR.PageSeparator,
		joinLines:       cfg.OCR.JoinLines,
		attempts:        constants.DefaultOCRPageAttempts,
		logger:          log,
	}
}

// Name returns the name of the extractor
func (e *PageExtractor) Name() string {
	return e.name
}

type pageOutcome struct {
	text string
	err  error
}

// Extract rasterizes pdfPath and OCRs every page. A page that fails twice is
// replaced by a placeholder; the case only fails when every page does.
func (e *PageExtractor) Extract(ctx context.Context, rec types.CaseRecord, pdfPath string) (*interfaces.ExtractionResult, error) {
	// Check if context is cancelled
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	engine, err := e.selector.SelectEngine(e.engineName)
	if err != nil {
		return nil, utils.NewUnsupportedError("OCR engine unavailable", err)
	}

	start := time.Now()
	pages, warnings, err := e.rasterizer.Rasterize(ctx, rec, pdfPath, e.useCache)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, utils.NewRasterError("PDF has no pages", nil)
	}

	e.logger.Progress("🔍", "OCR %s: %d pages with %s", rec.ID, len(pages), engine.Name())

	// indexed by position so completion order never affects assembly
	outcomes := make([]pageOutcome, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.pageConcurrency)
	for i, page := range pages {
		g.Go(func() error {
			text, err := e.recognize(gctx, engine, page)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			outcomes[i] = pageOutcome{text: text, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	segments := make([]string, len(pages))
	failed := 0
	var lastErr error
	for i, out := range outcomes {
		n := pages[i].Number
		if out.err != nil {
			failed++
			lastErr = out.err
			segments[i] = fmt.Sprintf(constants.PagePlaceholder, n)
			warnings = append(warnings, fmt.Sprintf("page %d: OCR failed: %s", n, utils.Describe(out.err)))
			continue
		}
		text := strings.TrimRight(out.text, " \t\r\n\f")
		if e.joinLines {
			text = JoinLines(text)
		}
		segments[i] = text
	}

	if failed == len(pages) {
		return nil, utils.NewExtractError(fmt.Sprintf("OCR failed on all %d pages", len(pages)), lastErr)
	}
	if failed > 0 {
		e.logger.Warn("%s: %d of %d pages could not be recognized", rec.ID, failed, len(pages))
	}

	return &interfaces.ExtractionResult{
		Text:          strings.Join(segments, e.separator) + "\n",
		ExtractorUsed: engine.Name(),
		ProcessTime:   time.Since(start).Milliseconds(),
		PagesTotal:    len(pages),
		PagesFailed:   failed,
		Warnings:      warnings,
	}, nil
}

// recognize runs the engine on one page, re-invoking it once on failure
func (e *PageExtractor) recognize(ctx context.Context, engine interfaces.OCREngine, page types.Page) (string, error) {
	var err error
	for attempt := 1; attempt <= e.attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		var text string
		text, err = engine.ExtractTextFromImage(ctx, page.Path)
		if err == nil {
			return text, nil
		}
		if attempt < e.attempts {
			e.logger.Debug("OCR of page %d failed (%v), retrying", page.Number, err)
		}
	}
	return "", err
}
