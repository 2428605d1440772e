package core

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/nodewee/ruling-to-text/pkg/constants"
	"github.com/nodewee/ruling-to-text/pkg/types"
	"github.com/nodewee/ruling-to-text/pkg/utils"
)

// CaseResult is the outcome of one case in a run
type CaseResult struct {
	Index       int              `json:"index" yaml:"index"`
	ID          string           `json:"id" yaml:"id"`
	CaseNumber  string           `json:"case_number" yaml:"case_number"`
	Output      string           `json:"output,omitempty" yaml:"output,omitempty"`
	Status      types.CaseStatus `json:"status" yaml:"status"`
	Stage       types.Stage      `json:"stage,omitempty" yaml:"stage,omitempty"`
	Reason      string           `json:"reason,omitempty" yaml:"reason,omitempty"`
	Extractor   string           `json:"extractor,omitempty" yaml:"extractor,omitempty"`
	Cached      bool             `json:"cached,omitempty" yaml:"cached,omitempty"`
	SourceSHA   string           `json:"source_sha256,omitempty" yaml:"source_sha256,omitempty"`
	Warnings    []string         `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	PagesTotal  int              `json:"pages_total,omitempty" yaml:"pages_total,omitempty"`
	PagesFailed int              `json:"pages_failed,omitempty" yaml:"pages_failed,omitempty"`
	DurationMS  int64            `json:"duration_ms" yaml:"duration_ms"`
}

// Partial reports a written case with placeholder pages
func (r CaseResult) Partial() bool {
	return r.Status == types.StatusWritten && r.PagesFailed > 0
}

// Failed reports whether the case ended in failure
func (r CaseResult) Failed() bool {
	return r.Status == types.StatusFailed
}

func failedResult(rec types.CaseRecord, stage types.Stage, reason string) CaseResult {
	return CaseResult{
		Index:      rec.Index,
		ID:         rec.ID,
		CaseNumber: rec.CaseNumber,
		Status:     types.StatusFailed,
		Stage:      stage,
		Reason:     reason,
	}
}

// Counts aggregates case outcomes
type Counts struct {
	Total   int `json:"total" yaml:"total"`
	Written int `json:"written" yaml:"written"`
	Skipped int `json:"skipped" yaml:"skipped"`
	Failed  int `json:"failed" yaml:"failed"`
	Partial int `json:"partial" yaml:"partial"`
}

// BatchReport summarizes one run
type BatchReport struct {
	RunID       string               `json:"run_id" yaml:"run_id"`
	Mode        types.ExtractionMode `json:"mode" yaml:"mode"`
	StartedAt   time.Time            `json:"started_at" yaml:"started_at"`
	FinishedAt  time.Time            `json:"finished_at" yaml:"finished_at"`
	Interrupted bool                 `json:"interrupted,omitempty" yaml:"interrupted,omitempty"`
	Counts      Counts               `json:"counts" yaml:"counts"`
	Results     []CaseResult         `json:"results" yaml:"results"`
}

// NewBatchReport starts a report with a fresh run id
func NewBatchReport(mode types.ExtractionMode) *BatchReport {
	return &BatchReport{
		RunID:     uuid.NewString(),
		Mode:      mode,
		StartedAt: time.Now(),
	}
}

// Finish sorts the results by input index and computes the counts
func (r *BatchReport) Finish() {
	r.FinishedAt = time.Now()
	sort.SliceStable(r.Results, func(i, j int) bool {
		return r.Results[i].Index < r.Results[j].Index
	})

	c := Counts{Total: len(r.Results)}
	for _, res := range r.Results {
		switch res.Status {
		case types.StatusWritten:
			c.Written++
			if res.Partial() {
				c.Partial++
			}
		case types.StatusSkipped:
			c.Skipped++
		case types.StatusFailed:
			c.Failed++
		}
	}
	r.Counts = c
}

// ExitCode maps the run outcome to the process exit status
func (r *BatchReport) ExitCode() int {
	switch {
	case r.Interrupted:
		return constants.ExitCodeInterrupted
	case r.Counts.Failed > 0:
		return constants.ExitCodeCaseFailure
	default:
		return constants.ExitCodeSuccess
	}
}

// FailedResults returns the failed cases in index order
func (r *BatchReport) FailedResults() []CaseResult {
	var failed []CaseResult
	for _, res := range r.Results {
		if res.Failed() {
			failed = append(failed, res)
		}
	}
	return failed
}

// Encode renders the report as JSON or YAML based on format ("json", "yaml")
func (r *BatchReport) Encode(w io.Writer, format string) error {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(r)
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}

// WriteFile stores the report at path; the extension picks the format
func (r *BatchReport) WriteFile(path string) error {
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	if format != "yaml" && format != "yml" {
		format = "json"
	}

	var b strings.Builder
	if err := r.Encode(&b, format); err != nil {
		return utils.WrapError(err, utils.ErrorTypeIO, "failed to encode report")
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return utils.NewWriteError("cannot create report directory", err)
	}
	if err := utils.WriteFileAtomic(path, []byte(b.String())); err != nil {
		return utils.NewWriteError(fmt.Sprintf("cannot write report %s", path), err)
	}
	return nil
}

// StatusPrinter writes one line per case plus the run summary. It is safe
// for concurrent use.
type StatusPrinter struct {
	mu      sync.Mutex
	out     io.Writer
	written *color.Color
	skipped *color.Color
	partial *color.Color
	failed  *color.Color
}

// NewStatusPrinter creates a printer writing to out. Colors follow
// fatih/color's terminal detection unless noColor is set.
func NewStatusPrinter(out io.Writer, noColor bool) *StatusPrinter {
	p := &StatusPrinter{
		out:     out,
		written: color.New(color.FgGreen, color.Bold),
		skipped: color.New(color.FgCyan),
		partial: color.New(color.FgYellow, color.Bold),
		failed:  color.New(color.FgRed, color.Bold),
	}
	if noColor {
		for _, c := range []*color.Color{p.written, p.skipped, p.partial, p.failed} {
			c.DisableColor()
		}
	}
	return p
}

// Case prints the status line for res
func (p *StatusPrinter) Case(res CaseResult) {
	if p == nil {
		return
	}
	var line string
	switch {
	case res.Partial():
		line = p.partial.Sprint("[PARTIAL]") + fmt.Sprintf(" #%d %s -> %s (%d/%d pages failed)",
			res.Index, res.ID, res.Output, res.PagesFailed, res.PagesTotal)
	case res.Status == types.StatusWritten:
		line = p.written.Sprint("[WRITTEN]") + fmt.Sprintf(" #%d %s -> %s", res.Index, res.ID, res.Output)
	case res.Status == types.StatusSkipped:
		line = p.skipped.Sprint("[SKIPPED]") + fmt.Sprintf(" #%d %s (output exists)", res.Index, res.ID)
	default:
		line = p.failed.Sprint("[FAILED]") + fmt.Sprintf(" #%d %s [%s] %s", res.Index, res.ID, res.Stage, res.Reason)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, line)
}

// Summary prints the aggregate counts
func (p *StatusPrinter) Summary(r *BatchReport) {
	if p == nil {
		return
	}
	c := r.Counts
	failed := fmt.Sprintf("%d failed", c.Failed)
	if c.Failed > 0 {
		failed = p.failed.Sprint(failed)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "\n%d cases: %d written (%d partial), %d skipped, %s in %s\n",
		c.Total, c.Written, c.Partial, c.Skipped, failed,
		r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	if listed := summaryFailures(r); len(listed) > 0 {
		fmt.Fprintln(p.out, "Failed cases:")
		for _, res := range listed {
			fmt.Fprintf(p.out, "  #%d %s [%s] %s\n", res.Index, res.ID, res.Stage, res.Reason)
		}
	}
	if r.Interrupted {
		fmt.Fprintln(p.out, p.partial.Sprint("Run interrupted; rerun to resume the remaining cases."))
	}
}

// summaryFailures leaves out cases that never started because of an interrupt
func summaryFailures(r *BatchReport) []CaseResult {
	var listed []CaseResult
	for _, res := range r.FailedResults() {
		if res.Stage != types.StageCancel {
			listed = append(listed, res)
		}
	}
	return listed
}
