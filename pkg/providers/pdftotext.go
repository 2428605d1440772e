package providers

import (
	"context"
	"fmt"

	"github.com/nodewee/ruling-to-text/pkg/config"
	"github.com/nodewee/ruling-to-text/pkg/interfaces"
	"github.com/nodewee/ruling-to-text/pkg/logger"
	"github.com/nodewee/ruling-to-text/pkg/types"
	"github.com/nodewee/ruling-to-text/pkg/utils"
)

// PdftotextEngine reads the text layer with poppler's pdftotext
type PdftotextEngine struct {
	path   string
	run    utils.CommandRunner
	logger *logger.Logger
}

var _ interfaces.TextLayerEngine = (*PdftotextEngine)(nil)

// NewPdftotextEngine creates a pdftotext engine using the configured tool path
func NewPdftotextEngine(cfg *config.Config, log *logger.Logger) *PdftotextEngine {
	return &PdftotextEngine{
		path:   cfg.Tools.Pdftotext,
		run:    utils.RunCommand,
		logger: log,
	}
}

// WithRunner replaces the command runner
func (e *PdftotextEngine) WithRunner(run utils.CommandRunner) *PdftotextEngine {
	e.run = run
	return e
}

// Name returns the name of the engine
func (e *PdftotextEngine) Name() string {
	return string(types.TextLayerPdftotext)
}

// IsAvailable checks if pdftotext is installed
func (e *PdftotextEngine) IsAvailable() bool {
	return utils.IsCommandAvailable(e.path)
}

// ExtractText runs `pdftotext -raw -enc UTF-8 <pdf> -`. Stdout is the text,
// stderr lines are returned as diagnostics.
func (e *PdftotextEngine) ExtractText(ctx context.Context, pdfPath string) (string, []string, error) {
	e.logger.Debug("Command: %s -raw -enc UTF-8 %s -", e.path, pdfPath)

	stdout, stderr, err := e.run(ctx, e.path, "-raw", "-enc", "UTF-8", pdfPath, "-")
	diagnostics := utils.StderrLines(stderr)
	if err != nil {
		if ctx.Err() != nil {
			return "", diagnostics, ctx.Err()
		}
		if utils.IsCommandNotFound(err) {
			return "", diagnostics, utils.NewUnsupportedError(fmt.Sprintf("%s is not installed", e.path), err)
		}
		msg := "pdftotext failed"
		if len(diagnostics) > 0 {
			msg = fmt.Sprintf("pdftotext failed: %s", diagnostics[0])
		}
		return "", diagnostics, utils.NewExtractError(msg, err)
	}
	return string(stdout), diagnostics, nil
}
