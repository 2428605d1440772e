package ocr

import (
	"fmt"
	"sort"

	"github.com/nodewee/ruling-to-text/pkg/config"
	"github.com/nodewee/ruling-to-text/pkg/interfaces"
	"github.com/nodewee/ruling-to-text/pkg/logger"
	"github.com/nodewee/ruling-to-text/pkg/ocr/engines"
	"github.com/nodewee/ruling-to-text/pkg/types"
)

// DefaultOCRSelector implements OCR engine selection
type DefaultOCRSelector struct {
	logger  *logger.Logger
	engines map[types.OCREngineName]interfaces.OCREngine
}

var _ interfaces.OCRSelector = (*DefaultOCRSelector)(nil)

// NewOCRSelector creates a selector with the tesseract, gosseract and openai engines
func NewOCRSelector(cfg *config.Config, log *logger.Logger) *DefaultOCRSelector {
	selector := NewOCRSelectorWithEngines(log)

	// Register available OCR engines
	selector.Register(types.OCREngineTesseract, engines.NewTesseractEngine(cfg, log))
	selector.Register(types.OCREngineGosseract, engines.NewGosseractEngine(cfg, log))
	selector.Register(types.OCREngineOpenAI, engines.NewOpenAIEngine(cfg, log))

	return selector
}

// NewOCRSelectorWithEngines creates an empty selector
func NewOCRSelectorWithEngines(log *logger.Logger, list ...interfaces.OCREngine) *DefaultOCRSelector {
	s := &DefaultOCRSelector{
		logger:  log,
		engines: make(map[types.OCREngineName]interfaces.OCREngine),
	}
	for _, e := range list {
		s.Register(types.OCREngineName(e.Name()), e)
	}
	return s
}

// Register adds or replaces an engine
func (s *DefaultOCRSelector) Register(name types.OCREngineName, engine interfaces.OCREngine) {
	s.engines[name] = engine
}

// SelectEngine returns the named engine if it is available on this system
func (s *DefaultOCRSelector) SelectEngine(name types.OCREngineName) (interfaces.OCREngine, error) {
	engine, exists := s.engines[name]
	if !exists {
		return nil, fmt.Errorf("unknown OCR engine: %s", name)
	}

	// Check if the engine is available
	if !engine.IsAvailable() {
		return nil, fmt.Errorf("OCR engine '%s' is not available on this system", engine.Name())
	}

	s.logger.Debug("Selected OCR engine: %s", engine.GetDescription())
	return engine, nil
}

// GetAvailableEngines returns all available OCR engines, sorted by name
func (s *DefaultOCRSelector) GetAvailableEngines() []types.OCREngineName {
	var available []types.OCREngineName

	for name, engine := range s.engines {
		if engine.IsAvailable() {
			available = append(available, name)
		}
	}

	sort.Slice(available, func(i, j int) bool { return available[i] < available[j] })
	return available
}

// Describe returns a description for every registered engine
func (s *DefaultOCRSelector) Describe() map[types.OCREngineName]string {
	out := make(map[types.OCREngineName]string, len(s.engines))
	for name, engine := range s.engines {
		out[name] = engine.GetDescription()
	}
	return out
}
