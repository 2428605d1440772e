package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/nodewee/ruling-to-text/pkg/interfaces"
	"github.com/nodewee/ruling-to-text/pkg/logger"
	"github.com/nodewee/ruling-to-text/pkg/types"
	"github.com/nodewee/ruling-to-text/pkg/utils"
)

// BuiltinEngine reads the text layer in-process, for hosts without poppler
type BuiltinEngine struct {
	logger *logger.Logger
}

var _ interfaces.TextLayerEngine = (*BuiltinEngine)(nil)

// NewBuiltinEngine creates the pure Go text-layer engine
func NewBuiltinEngine(log *logger.Logger) *BuiltinEngine {
	return &BuiltinEngine{logger: log}
}

// Name returns the name of the engine
func (e *BuiltinEngine) Name() string {
	return string(types.TextLayerBuiltin)
}

// IsAvailable always returns true
func (e *BuiltinEngine) IsAvailable() bool {
	return true
}

// ExtractText concatenates the plain text of every page in order. Pages
// that cannot be decoded are reported as diagnostics.
func (e *BuiltinEngine) ExtractText(ctx context.Context, pdfPath string) (text string, diagnostics []string, err error) {
	// the parser panics on some malformed streams
	defer func() {
		if r := recover(); r != nil {
			text, err = "", utils.NewExtractError(fmt.Sprintf("pdf parser crashed: %v", r), nil)
		}
	}()

	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return "", nil, utils.NewExtractError("cannot open pdf", err)
	}
	defer f.Close()

	var b strings.Builder
	total := r.NumPage()
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return "", diagnostics, err
		}

		page := r.Page(i)
		if page.V.IsNull() {
			diagnostics = append(diagnostics, fmt.Sprintf("page %d: missing page object", i))
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			diagnostics = append(diagnostics, fmt.Sprintf("page %d: %v", i, err))
			continue
		}
		b.WriteString(pageText)
		if !strings.HasSuffix(pageText, "\n") {
			b.WriteByte('\n')
		}
	}

	e.logger.Debug("Read text layer of %d pages from %s", total, pdfPath)
	return b.String(), diagnostics, nil
}
