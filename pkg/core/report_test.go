package core

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/nodewee/ruling-to-text/pkg/types"
)

func sampleReport() *BatchReport {
	r := NewBatchReport(types.ModeOCR)
	r.Results = []CaseResult{
		{Index: 2, ID: "c", Status: types.StatusFailed, Stage: types.StageRaster, Reason: "PDF has no pages"},
		{Index: 0, ID: "a", Status: types.StatusWritten, PagesTotal: 3, PagesFailed: 1, Warnings: []string{"page 2: OCR failed"}},
		{Index: 1, ID: "b", Status: types.StatusSkipped},
	}
	r.Finish()
	return r
}

func TestFinishSortsAndCounts(t *testing.T) {
	r := sampleReport()

	ids := []string{r.Results[0].ID, r.Results[1].ID, r.Results[2].ID}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.Equal(t, Counts{Total: 3, Written: 1, Skipped: 1, Failed: 1, Partial: 1}, r.Counts)
	assert.Len(t, r.FailedResults(), 1)
	assert.NotEmpty(t, r.RunID)
}

func TestExitCode(t *testing.T) {
	r := NewBatchReport(types.ModeTextLayer)
	r.Results = []CaseResult{{Status: types.StatusWritten}, {Status: types.StatusSkipped}}
	r.Finish()
	assert.Equal(t, 0, r.ExitCode())

	r.Results = append(r.Results, CaseResult{Status: types.StatusFailed})
	r.Finish()
	assert.Equal(t, 1, r.ExitCode())

	r.Interrupted = true
	assert.Equal(t, 130, r.ExitCode())
}

func TestWriteFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "run.json")
	require.NoError(t, sampleReport().WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded BatchReport
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, types.ModeOCR, decoded.Mode)
	require.Len(t, decoded.Results, 3)
	assert.Equal(t, "a", decoded.Results[0].ID)
	assert.Equal(t, 1, decoded.Results[0].PagesFailed)
	assert.Equal(t, types.StageRaster, decoded.Results[2].Stage)
}

func TestWriteFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, sampleReport().WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "run_id:"))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	counts, ok := decoded["counts"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1, counts["partial"])
}

func TestEncodeRejectsUnknownFormat(t *testing.T) {
	var b strings.Builder
	assert.Error(t, sampleReport().Encode(&b, "xml"))
}
