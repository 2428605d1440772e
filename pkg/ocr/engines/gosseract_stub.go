//go:build !gosseract

package engines

import (
	"context"

	"github.com/nodewee/ruling-to-text/pkg/config"
	"github.com/nodewee/ruling-to-text/pkg/interfaces"
	"github.com/nodewee/ruling-to-text/pkg/logger"
	"github.com/nodewee/ruling-to-text/pkg/types"
	"github.com/nodewee/ruling-to-text/pkg/utils"
)

// GosseractCompiled reports whether this binary links libtesseract
const GosseractCompiled = false

type unavailableGosseract struct{}

// NewGosseractEngine returns a placeholder that is never available.
// Rebuild with -tags gosseract to enable the binding.
func NewGosseractEngine(cfg *config.Config, log *logger.Logger) interfaces.OCREngine {
	return unavailableGosseract{}
}

func (unavailableGosseract) Name() string { return string(types.OCREngineGosseract) }

func (unavailableGosseract) GetDescription() string {
	return "libtesseract binding (not compiled in; build with -tags gosseract)"
}

func (unavailableGosseract) IsAvailable() bool { return false }

func (unavailableGosseract) ExtractTextFromImage(context.Context, string) (string, error) {
	return "", utils.NewUnsupportedError("gosseract engine is not compiled in", nil)
}
