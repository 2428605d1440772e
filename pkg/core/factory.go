package core

import (
	"fmt"
	"sort"

	"github.com/nodewee/ruling-to-text/pkg/cache"
	"github.com/nodewee/ruling-to-text/pkg/config"
	"github.com/nodewee/ruling-to-text/pkg/interfaces"
	"github.com/nodewee/ruling-to-text/pkg/logger"
	"github.com/nodewee/ruling-to-text/pkg/ocr"
	"github.com/nodewee/ruling-to-text/pkg/providers"
	"github.com/nodewee/ruling-to-text/pkg/raster"
	"github.com/nodewee/ruling-to-text/pkg/types"
)

// DefaultExtractorFactory implements ExtractorFactory
type DefaultExtractorFactory struct {
	extractors map[types.ExtractionMode]interfaces.Extractor
	logger     *logger.Logger
}

var _ interfaces.ExtractorFactory = (*DefaultExtractorFactory)(nil)

// NewEmptyExtractorFactory creates a factory with nothing registered
func NewEmptyExtractorFactory(log *logger.Logger) *DefaultExtractorFactory {
	return &DefaultExtractorFactory{
		extractors: make(map[types.ExtractionMode]interfaces.Extractor),
		logger:     log,
	}
}

// NewExtractorFactory creates a factory with the text-layer and ocr
// strategies built from cfg. Only the configured mode is constructed, so a
// text-layer run never needs a rasterizer or OCR engine.
func NewExtractorFactory(cfg *config.Config, store *cache.Store, log *logger.Logger) (*DefaultExtractorFactory, error) {
	factory := NewEmptyExtractorFactory(log)

	switch cfg.Mode {
	case types.ModeTextLayer:
		extractor, err := providers.NewTextLayerExtractor(cfg, log)
		if err != nil {
			return nil, err
		}
		factory.RegisterExtractor(types.ModeTextLayer, extractor)

	case types.ModeOCR:
		rasterizer, err := raster.NewRasterizer(cfg, store, log)
		if err != nil {
			return nil, err
		}
		selector := ocr.NewOCRSelector(cfg, log)
		factory.RegisterExtractor(types.ModeOCR, ocr.NewPageExtractor(cfg, rasterizer, selector, log))
	}

	log.Debug("Registered extractors: %v", factory.ListExtractors())
	return factory, nil
}

// CreateExtractor returns the extractor registered for mode
func (f *DefaultExtractorFactory) CreateExtractor(mode types.ExtractionMode) (interfaces.Extractor, error) {
	extractor, ok := f.extractors[mode]
	if !ok {
		return nil, fmt.Errorf("no extractor registered for mode %s", mode)
	}
	return extractor, nil
}

// RegisterExtractor registers a new extractor
func (f *DefaultExtractorFactory) RegisterExtractor(mode types.ExtractionMode, extractor interfaces.Extractor) {
	f.extractors[mode] = extractor
	f.logger.Debug("Registered extractor %s for mode %s", extractor.Name(), mode)
}

// ListExtractors returns all registered modes, sorted
func (f *DefaultExtractorFactory) ListExtractors() []string {
	names := make([]string, 0, len(f.extractors))
	for mode := range f.extractors {
		names = append(names, string(mode))
	}
	sort.Strings(names)
	return names
}
