package constants

import (
	"runtime"
)

// PlatformConfig lists candidate locations for the external tools
type PlatformConfig struct {
	PdftotextPaths []string
	PdftoppmPaths  []string
	PdfinfoPaths   []string
	TesseractPaths []string
}

// GetPlatformConfig returns platform-specific configuration
func GetPlatformConfig() *PlatformConfig {
	switch runtime.GOOS {
	case "windows":
		return &PlatformConfig{
			PdftotextPaths: []string{"pdftotext.exe", "C:\\Program Files\\poppler\\Library\\bin\\pdftotext.exe"},
			PdftoppmPaths:  []string{"pdftoppm.exe", "C:\\Program Files\\poppler\\Library\\bin\\pdftoppm.exe"},
			PdfinfoPaths:   []string{"pdfinfo.exe", "C:\\Program Files\\poppler\\Library\\bin\\pdfinfo.exe"},
			TesseractPaths: []string{"tesseract.exe", "C:\\Program Files\\Tesseract-OCR\\tesseract.exe"},
		}
	case "darwin":
		return &PlatformConfig{
			PdftotextPaths: []string{"pdftotext", "/opt/homebrew/bin/pdftotext", "/usr/local/bin/pdftotext"},
			PdftoppmPaths:  []string{"pdftoppm", "/opt/homebrew/bin/pdftoppm", "/usr/local/bin/pdftoppm"},
			PdfinfoPaths:   []string{"pdfinfo", "/opt/homebrew/bin/pdfinfo", "/usr/local/bin/pdfinfo"},
			TesseractPaths: []string{"tesseract", "/opt/homebrew/bin/tesseract", "/usr/local/bin/tesseract"},
		}
	default: // Linux and other Unix-like systems
		return &PlatformConfig{
			PdftotextPaths: []string{"pdftotext", "/usr/bin/pdftotext", "/usr/local/bin/pdftotext"},
			PdftoppmPaths:  []string{"pdftoppm", "/usr/bin/pdftoppm", "/usr/local/bin/pdftoppm"},
			PdfinfoPaths:   []string{"pdfinfo", "/usr/bin/pdfinfo", "/usr/local/bin/pdfinfo"},
			TesseractPaths: []string{"tesseract", "/usr/bin/tesseract", "/usr/local/bin/tesseract"},
		}
	}
}

// IsWindows returns true if running on Windows
func IsWindows() bool {
	return runtime.GOOS == "windows"
}
