package core

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodewee/ruling-to-text/pkg/input"
	"github.com/nodewee/ruling-to-text/pkg/logger"
	"github.com/nodewee/ruling-to-text/pkg/types"
	"github.com/nodewee/ruling-to-text/pkg/utils"
)

func TestBatchIsolatesPermanentFailure(t *testing.T) {
	h := newHarness(t)
	cases := []types.CaseRecord{caseRecord(0), caseRecord(1), caseRecord(2)}
	h.fetcher.errs[cases[1].Source] = utils.NewFetchError("HTTP 404 Not Found", nil, false)

	report := NewBatchRunner(h.processor(), types.ModeTextLayer, 2, nil, logger.NewNop()).
		Run(context.Background(), nil, cases, nil)

	require.Len(t, report.Results, 3)
	assert.Equal(t, types.StatusWritten, report.Results[0].Status)
	assert.Equal(t, types.StatusFailed, report.Results[1].Status)
	assert.Equal(t, types.StageFetch, report.Results[1].Stage)
	assert.Equal(t, types.StatusWritten, report.Results[2].Status)
	assert.Equal(t, Counts{Total: 3, Written: 2, Failed: 1}, report.Counts)
	assert.Equal(t, 1, report.ExitCode())
	assert.True(t, h.writer.Exists(cases[0]))
	assert.True(t, h.writer.Exists(cases[2]))
}

func TestBatchRecordsRejectedInputAndSortsByIndex(t *testing.T) {
	h := newHarness(t)
	cases := []types.CaseRecord{caseRecord(0), caseRecord(2)}
	rejected := []input.Rejection{{Index: 1, ID: "bad", Reason: "case_number is empty"}}

	report := NewBatchRunner(h.processor(), types.ModeTextLayer, 4, nil, logger.NewNop()).
		Run(context.Background(), nil, cases, rejected)

	require.Len(t, report.Results, 3)
	for i, res := range report.Results {
		assert.Equal(t, i, res.Index)
	}
	assert.Equal(t, types.StageInput, report.Results[1].Stage)
	assert.Equal(t, "case_number is empty", report.Results[1].Reason)
}

func TestBatchResumesAfterPartialRun(t *testing.T) {
	h := newHarness(t)
	cases := []types.CaseRecord{caseRecord(0), caseRecord(1)}
	h.fetcher.errs[cases[1].Source] = utils.NewFetchError("connection reset", nil, true)

	first := NewBatchRunner(h.processor(), types.ModeTextLayer, 1, nil, logger.NewNop()).
		Run(context.Background(), nil, cases, nil)
	assert.Equal(t, 1, first.Counts.Failed)

	delete(h.fetcher.errs, cases[1].Source)
	second := NewBatchRunner(h.processor(), types.ModeTextLayer, 1, nil, logger.NewNop()).
		Run(context.Background(), nil, cases, nil)

	assert.Equal(t, types.StatusSkipped, second.Results[0].Status)
	assert.Equal(t, types.StatusWritten, second.Results[1].Status)
	assert.Equal(t, 1, h.fetcher.count(cases[0].Source))
	assert.Equal(t, 0, second.ExitCode())
}

// gatedRunner blocks every case until the context ends
type gatedRunner struct {
	started atomic.Int32
}

func (g *gatedRunner) Process(ctx context.Context, rec types.CaseRecord) CaseResult {
	g.started.Add(1)
	<-ctx.Done()
	return failedResult(rec, types.StageFetch, "cancelled")
}

func TestBatchCancellationReportsUnstartedCases(t *testing.T) {
	cases := make([]types.CaseRecord, 5)
	for i := range cases {
		cases[i] = caseRecord(i)
	}
	runner := &gatedRunner{}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for runner.started.Load() < 2 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	report := NewBatchRunner(runner, types.ModeOCR, 2, nil, logger.NewNop()).Run(ctx, nil, cases, nil)

	require.Len(t, report.Results, 5)
	assert.True(t, report.Interrupted)
	assert.Equal(t, 130, report.ExitCode())
	assert.Equal(t, 5, report.Counts.Failed)
	assert.Equal(t, int32(2), runner.started.Load())
	for _, res := range report.Results[2:] {
		assert.Equal(t, types.StageCancel, res.Stage)
		assert.Equal(t, "cancelled", res.Reason)
	}
}

func TestBatchPrintsStatusLines(t *testing.T) {
	h := newHarness(t)
	cases := []types.CaseRecord{caseRecord(0), caseRecord(1)}
	h.fetcher.errs[cases[1].Source] = utils.NewFetchError("HTTP 410 Gone", nil, false)

	var out bytes.Buffer
	NewBatchRunner(h.processor(), types.ModeTextLayer, 1, NewStatusPrinter(&out, true), logger.NewNop()).
		Run(context.Background(), nil, cases, nil)

	text := out.String()
	assert.Contains(t, text, "[WRITTEN] #0 case-a")
	assert.Contains(t, text, "[FAILED] #1 case-b [fetch] HTTP 410 Gone")
	assert.Contains(t, text, "2 cases: 1 written (0 partial), 0 skipped, 1 failed")
	assert.Contains(t, text, "Failed cases:\n  #1 case-b [fetch] HTTP 410 Gone\n")
}
