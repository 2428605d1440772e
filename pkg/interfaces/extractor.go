package interfaces

import (
	"context"

	"github.com/nodewee/ruling-to-text/pkg/types"
)

// Extractor turns a cached source PDF into text for one case
type Extractor interface {
	// Extract extracts text from the case's PDF
	Extract(ctx context.Context, rec types.CaseRecord, pdfPath string) (*ExtractionResult, error)

	// Name returns the name of the extractor
	Name() string
}

// TextLayerEngine reads the embedded text layer of a PDF
type TextLayerEngine interface {
	Name() string

	// IsAvailable checks if the engine can run on this system
	IsAvailable() bool

	// ExtractText returns the text layer verbatim plus any diagnostics the
	// engine emitted without failing
	ExtractText(ctx context.Context, pdfPath string) (text string, diagnostics []string, err error)
}

// ExtractionResult holds the result of text extraction
type ExtractionResult struct {
	Text          string   `json:"-"`
	ExtractorUsed string   `json:"extractor_used"`
	ProcessTime   int64    `json:"process_time_ms"`
	PagesTotal    int      `json:"pages_total,omitempty"`
	PagesFailed   int      `json:"pages_failed,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}

// Partial reports whether some pages were replaced by placeholders
func (r *ExtractionResult) Partial() bool {
	return r.PagesFailed > 0
}

// ExtractorFactory picks the extraction strategy for a run
type ExtractorFactory interface {
	// CreateExtractor returns the extractor for mode
	CreateExtractor(mode types.ExtractionMode) (Extractor, error)

	// RegisterExtractor registers an extractor for mode
	RegisterExtractor(mode types.ExtractionMode, extractor Extractor)

	// ListExtractors returns the registered modes
	ListExtractors() []string
}
