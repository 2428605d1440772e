package interfaces

import (
	"context"

	"github.com/nodewee/ruling-to-text/pkg/types"
)

// OCREngine defines the interface for different OCR implementations
type OCREngine interface {
	// Name returns the name of the OCR tool
	Name() string

	// ExtractTextFromImage extracts text from an image file
	ExtractTextFromImage(ctx context.Context, imagePath string) (string, error)

	// IsAvailable checks if the engine can run on this system
	IsAvailable() bool

	// GetDescription returns a description of the OCR tool
	GetDescription() string
}

// OCRSelector resolves the configured engine
type OCRSelector interface {
	// SelectEngine returns the named engine if it is registered and available
	SelectEngine(name types.OCREngineName) (OCREngine, error)

	// GetAvailableEngines returns the engines usable on this system
	GetAvailableEngines() []types.OCREngineName
}

// Rasterizer renders each page of a PDF to an image
type Rasterizer interface {
	// Rasterize returns one image per page, ordered 1..N
	Rasterize(ctx context.Context, rec types.CaseRecord, pdfPath string, useCache bool) ([]types.Page, []string, error)
}

// PageCounter counts the pages of a PDF
type PageCounter interface {
	PageCount(ctx context.Context, pdfPath string) (int, error)
}
