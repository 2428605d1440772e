package types

import (
	"fmt"
	"strings"
)

// ExtractionMode selects how text is pulled out of a source PDF
type ExtractionMode string

const (
	ModeTextLayer ExtractionMode = "text-layer" // Read the embedded text layer
	ModeOCR       ExtractionMode = "ocr"        // Rasterize every page and recognize it
)

// ParseExtractionMode accepts the canonical names plus the legacy "p2t" alias
func ParseExtractionMode(s string) (ExtractionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text-layer", "textlayer", "text", "p2t":
		return ModeTextLayer, nil
	case "ocr":
		return ModeOCR, nil
	default:
		return "", fmt.Errorf("unknown extraction mode %q (want text-layer or ocr)", s)
	}
}

// OCREngineName identifies a page recognizer
type OCREngineName string

const (
	OCREngineTesseract OCREngineName = "tesseract"
	OCREngineGosseract OCREngineName = "gosseract"
	OCREngineOpenAI    OCREngineName = "openai"
)

// TextLayerEngineName identifies a text-layer reader
type TextLayerEngineName string

const (
	TextLayerPdftotext TextLayerEngineName = "pdftotext"
	TextLayerBuiltin   TextLayerEngineName = "builtin"
)

// CaseRecord is one ruling from the upstream listing. It is never mutated after load.
type CaseRecord struct {
	ID         string `json:"id" yaml:"id"`
	Index      int    `json:"index" yaml:"index"`
	CaseNumber string `json:"case_number" yaml:"case_number"`
	Year       int    `json:"year" yaml:"year"`
	Month      int    `json:"month" yaml:"month"`
	Day        int    `json:"day" yaml:"day"`
	Source     string `json:"source" yaml:"source"`

	// Informational only
	TrialType string `json:"trial_type,omitempty" yaml:"trial_type,omitempty"`
	CourtName string `json:"court_name,omitempty" yaml:"court_name,omitempty"`
}

// OutputStem is the output file name without extension
func (r CaseRecord) OutputStem() string {
	return fmt.Sprintf("%s_%d_%d_%d", r.CaseNumber, r.Year, r.Month, r.Day)
}

// CaseStatus is the terminal state of a case within one run
type CaseStatus string

const (
	StatusWritten CaseStatus = "written"
	StatusSkipped CaseStatus = "skipped"
	StatusFailed  CaseStatus = "failed"
)

// Stage names the pipeline step a case failed in
type Stage string

const (
	StageInput   Stage = "input"
	StageFetch   Stage = "fetch"
	StageRaster  Stage = "raster"
	StageExtract Stage = "extract"
	StageWrite   Stage = "write"
	StageCancel  Stage = "cancelled"
)

// Page is one rasterized page image. Numbers run 1..N with no gaps.
type Page struct {
	Number int    `json:"number"`
	Path   string `json:"path"`
}
