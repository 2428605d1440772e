package core

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/nodewee/ruling-to-text/pkg/constants"
	"github.com/nodewee/ruling-to-text/pkg/input"
	"github.com/nodewee/ruling-to-text/pkg/logger"
	"github.com/nodewee/ruling-to-text/pkg/types"
)

// CaseRunner processes one case to a terminal result
type CaseRunner interface {
	Process(ctx context.Context, rec types.CaseRecord) CaseResult
}

// BatchRunner runs every case of a batch with bounded parallelism
type BatchRunner struct {
	runner      CaseRunner
	concurrency int
	mode        types.ExtractionMode
	printer     *StatusPrinter
	logger      *logger.Logger
}

// NewBatchRunner creates a runner. printer may be nil.
func NewBatchRunner(runner CaseRunner, mode types.ExtractionMode, concurrency int, printer *StatusPrinter, log *logger.Logger) *BatchRunner {
	if concurrency < 1 {
		concurrency = constants.DefaultConcurrency
	}
	if concurrency > constants.MaxConcurrency {
		concurrency = constants.MaxConcurrency
	}
	return &BatchRunner{
		runner:      runner,
		concurrency: concurrency,
		mode:        mode,
		printer:     printer,
		logger:      log,
	}
}

// Run processes cases and returns the finished report. A case failure never
// stops the batch; cancelling ctx stops new cases from starting and reports
// them as cancelled.
func (b *BatchRunner) Run(ctx context.Context, report *BatchReport, cases []types.CaseRecord, rejected []input.Rejection) *BatchReport {
	if report == nil {
		report = NewBatchReport(b.mode)
	}

	for _, rej := range rejected {
		res := CaseResult{
			Index:      rej.Index,
			ID:         rej.ID,
			CaseNumber: rej.CaseNumber,
			Status:     types.StatusFailed,
			Stage:      types.StageInput,
			Reason:     rej.Reason,
		}
		report.Results = append(report.Results, res)
		b.printer.Case(res)
	}

	b.logger.Info("Processing %d cases with concurrency %d (%s)", len(cases), b.concurrency, b.mode)

	results := make([]CaseResult, len(cases))
	started := make([]bool, len(cases))

	// plain Group: one case's failure must not cancel its siblings
	var g errgroup.Group
	g.SetLimit(b.concurrency)
	for i, rec := range cases {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			started[i] = true
			results[i] = b.runner.Process(ctx, rec)
			b.printer.Case(results[i])
			return nil
		})
	}
	_ = g.Wait()

	for i, rec := range cases {
		if !started[i] {
			results[i] = failedResult(rec, types.StageCancel, "cancelled")
			b.printer.Case(results[i])
		}
	}

	report.Results = append(report.Results, results...)
	report.Interrupted = ctx.Err() != nil
	report.Finish()
	b.printer.Summary(report)

	b.logger.Info("Run %s finished: %d written, %d skipped, %d failed",
		report.RunID, report.Counts.Written, report.Counts.Skipped, report.Counts.Failed)
	return report
}
