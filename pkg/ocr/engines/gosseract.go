//go:build gosseract

package engines

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/nodewee/ruling-to-text/pkg/config"
	"github.com/nodewee/ruling-to-text/pkg/interfaces"
	"github.com/nodewee/ruling-to-text/pkg/logger"
	"github.com/nodewee/ruling-to-text/pkg/types"
	"github.com/nodewee/ruling-to-text/pkg/utils"
)

// GosseractEngine recognizes pages through the libtesseract binding.
// Built only with -tags gosseract since it needs cgo and the tesseract headers.
type GosseractEngine struct {
	language      string
	dpi           int
	clientFactory func() *gosseract.Client
	logger        *logger.Logger
}

var _ interfaces.OCREngine = (*GosseractEngine)(nil)

// GosseractCompiled reports whether this binary links libtesseract
const GosseractCompiled = true

// NewGosseractEngine creates a new libtesseract engine
func NewGosseractEngine(cfg *config.Config, log *logger.Logger) interfaces.OCREngine {
	return &GosseractEngine{
		language:      cfg.OCR.Language,
		dpi:           cfg.OCR.DPI,
		clientFactory: gosseract.NewClient,
		logger:        log,
	}
}

// Name returns the name of the OCR tool
func (e *GosseractEngine) Name() string {
	return string(types.OCREngineGosseract)
}

// GetDescription returns a description of the OCR tool
func (e *GosseractEngine) GetDescription() string {
	return fmt.Sprintf("libtesseract %s (language %s)", gosseract.Version(), e.language)
}

// IsAvailable always returns true in builds with the binding
func (e *GosseractEngine) IsAvailable() bool {
	return true
}

// ExtractTextFromImage recognizes one page image
func (e *GosseractEngine) ExtractTextFromImage(ctx context.Context, imagePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetLanguage(strings.Split(e.language, "+")...); err != nil {
		return "", utils.NewOCRError("set languages", err)
	}
	if e.dpi > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(e.dpi)); err != nil {
			return "", utils.NewOCRError("set dpi", err)
		}
	}
	if err := c.SetImage(imagePath); err != nil {
		return "", utils.NewOCRError("set image", err)
	}

	text, err := c.Text()
	if err != nil {
		return "", utils.NewOCRError("recognize text", err)
	}
	return text, nil
}
