package engines

import (
	"context"
	"fmt"

	"github.com/nodewee/ruling-to-text/pkg/config"
	"github.com/nodewee/ruling-to-text/pkg/interfaces"
	"github.com/nodewee/ruling-to-text/pkg/logger"
	"github.com/nodewee/ruling-to-text/pkg/types"
	"github.com/nodewee/ruling-to-text/pkg/utils"
)

// TesseractEngine runs the tesseract CLI on one page image at a time
type TesseractEngine struct {
	path     string
	language string
	dpi      int
	run      utils.CommandRunner
	logger   *logger.Logger
}

// NewTesseractEngine creates a new tesseract CLI engine
func NewTesseractEngine(cfg *config.Config, log *logger.Logger) *TesseractEngine {
	return &TesseractEngine{
		path:     cfg.Tools.Tesseract,
		language: cfg.OCR.Language,
		dpi:      cfg.OCR.DPI,
		run:      utils.RunCommand,
		logger:   log,
	}
}

var _ interfaces.OCREngine = (*TesseractEngine)(nil)

// WithRunner replaces the command runner
func (e *TesseractEngine) WithRunner(run utils.CommandRunner) *TesseractEngine {
	e.run = run
	return e
}

// Name returns the name of the OCR tool
func (e *TesseractEngine) Name() string {
	return string(types.OCREngineTesseract)
}

// GetDescription returns a description of the OCR tool
func (e *TesseractEngine) GetDescription() string {
	return fmt.Sprintf("Tesseract OCR (%s, language %s)", e.path, e.language)
}

// IsAvailable checks if the OCR tool is available on the system
func (e *TesseractEngine) IsAvailable() bool {
	return utils.IsCommandAvailable(e.path)
}

// ExtractTextFromImage runs `tesseract <image> stdout -l <lang>`
func (e *TesseractEngine) ExtractTextFromImage(ctx context.Context, imagePath string) (string, error) {
	args := []string{imagePath, "stdout", "-l", e.language}
	if e.dpi > 0 {
		args = append(args, "--dpi", fmt.Sprint(e.dpi))
	}

	stdout, stderr, err := e.run(ctx, e.path, args...)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if utils.IsCommandNotFound(err) {
			return "", utils.NewUnsupportedError(fmt.Sprintf("%s is not installed", e.path), err)
		}
		if lines := utils.StderrLines(stderr); len(lines) > 0 {
			return "", utils.NewOCRError(fmt.Sprintf("tesseract failed: %s", lines[len(lines)-1]), err)
		}
		return "", utils.NewOCRError("tesseract failed", err)
	}
	return string(stdout), nil
}
