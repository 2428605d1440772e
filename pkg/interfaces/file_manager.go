package interfaces

import (
	"context"

	"github.com/nodewee/ruling-to-text/pkg/types"
)

// CacheStore maps a case to its persistent intermediate files
type CacheStore interface {
	// Resolve returns the source PDF path and whether it may be reused
	Resolve(rec types.CaseRecord, useCache bool) (path string, cached bool)

	// EnsureCaseDir creates the case's cache directory
	EnsureCaseDir(rec types.CaseRecord) error

	// PagesDir returns the directory holding rendered page images
	PagesDir(rec types.CaseRecord) string

	// ClearPages drops page images rendered from an earlier copy of the source
	ClearPages(rec types.CaseRecord) error

	// RenderStampPath returns where the page render settings are recorded
	RenderStampPath(rec types.CaseRecord) string

	// PageImagePath returns the image path for a page number
	PageImagePath(rec types.CaseRecord, page int, ext string) string

	// DiagnosticsPath returns the per-case diagnostics log path
	DiagnosticsPath(rec types.CaseRecord) string
}

// SourceFetcher downloads a case's PDF to a local path
type SourceFetcher interface {
	// Fetch writes source to dest atomically: dest is complete or absent
	Fetch(ctx context.Context, source, dest string) error
}

// OutputWriter persists extracted text under the case's output name
type OutputWriter interface {
	// Path returns the output path for rec
	Path(rec types.CaseRecord) string

	// Exists reports whether rec's output is already present
	Exists(rec types.CaseRecord) bool

	// Write stores text, skipping existing output unless force is set
	Write(rec types.CaseRecord, text string, force bool) (types.CaseStatus, string, error)
}
