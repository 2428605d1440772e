package core

import (
	"context"
	"io"

	"github.com/nodewee/ruling-to-text/pkg/cache"
	"github.com/nodewee/ruling-to-text/pkg/config"
	"github.com/nodewee/ruling-to-text/pkg/fetch"
	"github.com/nodewee/ruling-to-text/pkg/input"
	"github.com/nodewee/ruling-to-text/pkg/logger"
	"github.com/nodewee/ruling-to-text/pkg/output"
	"github.com/nodewee/ruling-to-text/pkg/utils"
)

// Pipeline is a fully wired batch for one configuration
type Pipeline struct {
	config    *config.Config
	store     *cache.Store
	fetcher   *fetch.Fetcher
	processor *CaseProcessor
	logger    *logger.Logger
}

// NewPipeline builds the cache, fetcher, extractor and writer for cfg
func NewPipeline(cfg *config.Config, log *logger.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store := cache.NewStore(cfg.CacheDir, log)
	if err := utils.EnsureDir(store.BaseDir()); err != nil {
		return nil, utils.WrapError(err, utils.ErrorTypeIO, "failed to create cache directory")
	}

	factory, err := NewExtractorFactory(cfg, store, log)
	if err != nil {
		return nil, err
	}
	extractor, err := factory.CreateExtractor(cfg.Mode)
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrorTypeValidation, "no extractor for mode")
	}

	fetcher := fetch.NewFetcher(cfg, log)
	writer := output.NewWriter(cfg.OutputDir, log)

	log.Info("Pipeline: %s", cfg.String())
	return &Pipeline{
		config:    cfg,
		store:     store,
		fetcher:   fetcher,
		processor: NewCaseProcessor(cfg, store, fetcher, extractor, writer, log),
		logger:    log,
	}, nil
}

// Run processes batch and returns the finished report, writing the report
// file when one is configured
func (p *Pipeline) Run(ctx context.Context, batch *input.Batch, out io.Writer) (*BatchReport, error) {
	report := NewBatchReport(p.config.Mode)
	p.processor.WithRunID(report.RunID)

	var printer *StatusPrinter
	if out != nil {
		printer = NewStatusPrinter(out, p.config.NoColor)
	}
	runner := NewBatchRunner(p.processor, p.config.Mode, p.config.Concurrency, printer, p.logger)
	report = runner.Run(ctx, report, batch.Cases, batch.Rejected)

	if p.config.ReportPath != "" {
		if err := report.WriteFile(p.config.ReportPath); err != nil {
			return report, err
		}
		p.logger.Info("Report written to %s", p.config.ReportPath)
	}
	return report, nil
}

// Close releases network clients
func (p *Pipeline) Close() error {
	return p.fetcher.Close()
}
