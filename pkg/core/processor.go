// Package core drives the per-case pipeline (cache, fetch, extract, write)
// and the batch loop around it.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nodewee/ruling-to-text/pkg/config"
	"github.com/nodewee/ruling-to-text/pkg/interfaces"
	"github.com/nodewee/ruling-to-text/pkg/logger"
	"github.com/nodewee/ruling-to-text/pkg/types"
	"github.com/nodewee/ruling-to-text/pkg/utils"
)

// CaseProcessor runs one case through every stage. It never returns an
// error: whatever goes wrong is recorded on the CaseResult.
type CaseProcessor struct {
	store     interfaces.CacheStore
	fetcher   interfaces.SourceFetcher
	extractor interfaces.Extractor
	writer    interfaces.OutputWriter
	useCache  bool
	force     bool
	timeout   time.Duration
	runID     string
	logger    *logger.Logger
}

// NewCaseProcessor wires the stages for cfg
func NewCaseProcessor(cfg *config.Config, store interfaces.CacheStore, fetcher interfaces.SourceFetcher,
	extractor interfaces.Extractor, writer interfaces.OutputWriter, log *logger.Logger) *CaseProcessor {
	return &CaseProcessor{
		store:     store,
		fetcher:   fetcher,
		extractor: extractor,
		writer:    writer,
		useCache:  cfg.UseCache,
		force:     cfg.ForceRerun,
		timeout:   cfg.CaseTimeout(),
		logger:    log,
	}
}

// WithRunID tags log lines and diagnostics with the run id
func (p *CaseProcessor) WithRunID(id string) *CaseProcessor {
	p.runID = id
	return p
}

// Process runs rec to a terminal state
func (p *CaseProcessor) Process(ctx context.Context, rec types.CaseRecord) (result CaseResult) {
	start := time.Now()
	log := p.logger.With("case", rec.ID, "run", p.runID)
	stage := types.StageFetch
	result = CaseResult{
		Index:      rec.Index,
		ID:         rec.ID,
		CaseNumber: rec.CaseNumber,
		Output:     p.writer.Path(rec),
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic while processing %s: %v", rec.ID, r)
			result.Status = types.StatusFailed
			result.Stage = stage
			result.Reason = fmt.Sprintf("internal error: %v", r)
		}
		result.DurationMS = time.Since(start).Milliseconds()
	}()

	// Completed cases do no work at all; this is what makes reruns resume
	if !p.force && p.writer.Exists(rec) {
		log.Debug("Output for %s exists, skipping", rec.ID)
		result.Status = types.StatusSkipped
		return result
	}

	caseCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		caseCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	fail := func(err error) CaseResult {
		result.Status = types.StatusFailed
		result.Stage = stage
		result.Reason = p.reason(ctx, caseCtx, err)
		log.Warn("%s failed at %s: %s", rec.ID, stage, result.Reason)
		return result
	}

	// Fetch
	pdfPath, cached := p.store.Resolve(rec, p.useCache)
	result.Cached = cached
	if !cached {
		if err := p.store.EnsureCaseDir(rec); err != nil {
			return fail(utils.NewIOError("cannot create cache directory", err))
		}
		log.Progress("⬇️", "Fetching %s", rec.Source)
		if err := p.fetcher.Fetch(caseCtx, rec.Source, pdfPath); err != nil {
			return fail(err)
		}
		// page images belong to the previous copy of the source
		if err := p.store.ClearPages(rec); err != nil {
			return fail(utils.NewIOError("cannot clear cached pages", err))
		}
	}

	if sum, err := utils.CalculateFileSHA256(pdfPath); err == nil {
		result.SourceSHA = sum
	}

	// Extract
	stage = types.StageExtract
	extraction, err := p.extractor.Extract(caseCtx, rec, pdfPath)
	if err != nil {
		if utils.GetErrorType(err) == utils.ErrorTypeConversion {
			stage = types.StageRaster
		}
		return fail(err)
	}
	result.Extractor = extraction.ExtractorUsed
	result.PagesTotal = extraction.PagesTotal
	result.PagesFailed = extraction.PagesFailed
	result.Warnings = extraction.Warnings
	p.writeDiagnostics(rec, extraction.Warnings, log)

	// Write
	stage = types.StageWrite
	if err := caseCtx.Err(); err != nil {
		return fail(err)
	}
	status, path, err := p.writer.Write(rec, extraction.Text, p.force)
	if err != nil {
		return fail(err)
	}
	result.Status = status
	result.Output = path
	result.Stage = ""
	log.Progress("✅", "%s: %s (%dms)", rec.ID, status, time.Since(start).Milliseconds())
	return result
}

// reason turns err into the report text. Interruption wins over whatever
// the interrupted stage happened to return.
func (p *CaseProcessor) reason(parent, caseCtx context.Context, err error) string {
	switch {
	case parent.Err() != nil || errors.Is(err, context.Canceled):
		return "cancelled"
	case caseCtx.Err() != nil && errors.Is(caseCtx.Err(), context.DeadlineExceeded):
		return fmt.Sprintf("timed out after %s", p.timeout)
	default:
		return utils.Describe(err)
	}
}

// writeDiagnostics replaces the case's diagnostics log with this run's
// warnings. Failures are logged only; diagnostics never fail a case.
func (p *CaseProcessor) writeDiagnostics(rec types.CaseRecord, warnings []string, log *logger.Logger) {
	if len(warnings) == 0 {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# run %s at %s\n", p.runID, time.Now().Format(time.RFC3339))
	for _, w := range warnings {
		b.WriteString(w)
		b.WriteByte('\n')
	}
	path := p.store.DiagnosticsPath(rec)
	if err := utils.WriteFileAtomic(path, []byte(b.String())); err != nil {
		log.Warn("Cannot write diagnostics for %s: %v", rec.ID, err)
		return
	}
	log.Debug("Wrote %d warnings to %s", len(warnings), path)
}
