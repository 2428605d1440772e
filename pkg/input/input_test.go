package input

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodewee/ruling-to-text/pkg/utils"
)

func TestParseArray(t *testing.T) {
	doc := `[
	  {"case_number": "令和3年(あ)第100号", "year": 2021, "month": 4, "day": 1, "url": "https://example.test/a.pdf"},
	  {"case_number": "平成30年(受)第5号", "date": {"year": "2018", "month": "12", "day": "3"}, "full_pdf_link": "https://example.test/b.pdf", "trial_type": "判決"}
	]`
	batch, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, batch.Cases, 2)
	assert.Empty(t, batch.Rejected)

	a := batch.Cases[0]
	assert.Equal(t, 0, a.Index)
	assert.Equal(t, "令和3年(あ)第100号_2021_4_1", a.ID)
	assert.Equal(t, "https://example.test/a.pdf", a.Source)

	b := batch.Cases[1]
	assert.Equal(t, 2018, b.Year)
	assert.Equal(t, 12, b.Month)
	assert.Equal(t, 3, b.Day)
	assert.Equal(t, "判決", b.TrialType)
	assert.Equal(t, "平成30年(受)第5号_2018_12_3.txt", OutputFileName(b))
}

func TestParseObjectPreservesOrderAndUsesKeys(t *testing.T) {
	doc := `{
	  "zeta":  {"case_number": "Z-1", "date": "2020-01-02", "full_pdf_link": "z.pdf"},
	  "alpha": {"case_number": "A-1", "date": "2020-01-03", "full_pdf_link": "a.pdf"}
	}`
	batch, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, batch.Cases, 2)
	assert.Equal(t, "zeta", batch.Cases[0].ID)
	assert.Equal(t, "alpha", batch.Cases[1].ID)
	assert.Equal(t, 1, batch.Cases[1].Index)
}

func TestMalformedRecordsRejectedIndividually(t *testing.T) {
	doc := `[
	  {"case_number": "ok", "year": 2021, "month": 4, "day": 1, "url": "u"},
	  {"case_number": "", "year": 2021, "month": 4, "day": 1, "url": "u2"},
	  {"case_number": "bad-month", "year": 2021, "month": 13, "day": 1, "url": "u3"},
	  {"case_number": "no-url", "year": 2021, "month": 4, "day": 2},
	  {"case_number": 7, "year": 2021, "month": 4, "day": 1, "url": "u4"},
	  "not an object",
	  {"case_number": "float-day", "year": 2021, "month": 4, "day": 1.5, "url": "u5"}
	]`
	batch, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, batch.Cases, 1)
	require.Len(t, batch.Rejected, 6)
	assert.Equal(t, 7, batch.Total())

	reasons := map[int]string{}
	for _, r := range batch.Rejected {
		reasons[r.Index] = r.Reason
	}
	assert.Contains(t, reasons[1], "case_number is empty")
	assert.Contains(t, reasons[2], "month 13 out of range")
	assert.Contains(t, reasons[3], "source url is missing")
	assert.Contains(t, reasons[4], "case_number must be a string")
	assert.Contains(t, reasons[5], "not a JSON object")
	assert.Contains(t, reasons[6], "day must be an integer")
}

func TestDuplicateOutputNameFirstWins(t *testing.T) {
	doc := `{
	  "first":  {"case_number": "X", "year": 2021, "month": 4, "day": 1, "url": "1.pdf"},
	  "second": {"case_number": "X", "year": 2021, "month": 4, "day": 1, "url": "2.pdf"}
	}`
	batch, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, batch.Cases, 1)
	assert.Equal(t, "first", batch.Cases[0].ID)
	require.Len(t, batch.Rejected, 1)
	assert.Contains(t, batch.Rejected[0].Reason, "duplicate output name X_2021_4_1.txt (first seen at index 0)")
}

func TestDuplicateIDRejected(t *testing.T) {
	doc := `[
	  {"id": "same", "case_number": "A", "year": 2021, "month": 4, "day": 1, "url": "1.pdf"},
	  {"id": "same", "case_number": "B", "year": 2021, "month": 4, "day": 1, "url": "2.pdf"}
	]`
	batch, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, batch.Cases, 1)
	assert.Contains(t, batch.Rejected[0].Reason, "duplicate record id")
}

func TestIDsSharingACacheDirectoryRejected(t *testing.T) {
	doc := `{
	  "x/1": {"case_number": "A", "year": 2021, "month": 4, "day": 1, "url": "1.pdf"},
	  "x_1": {"case_number": "B", "year": 2021, "month": 4, "day": 1, "url": "2.pdf"}
	}`
	batch, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, batch.Cases, 1)
	assert.Equal(t, "x/1", batch.Cases[0].ID)
	require.Len(t, batch.Rejected, 1)
	assert.Equal(t, "x_1", batch.Rejected[0].ID)
	assert.Contains(t, batch.Rejected[0].Reason, "first seen at index 0")
}

func TestStructurallyInvalidDocuments(t *testing.T) {
	for name, doc := range map[string]string{
		"scalar":    `42`,
		"string":    `"cases"`,
		"truncated": `[{"case_number": "A"`,
		"trailing":  `[] []`,
		"garbage":   `not json`,
		"empty":     ``,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(doc))
			require.Error(t, err)
			assert.True(t, utils.IsInputError(err))
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.True(t, utils.IsInputError(err))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o644))
	batch, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, batch.Total())
}

func TestSeparatorInCaseNumberIsSanitized(t *testing.T) {
	doc := `[{"case_number": "R3/100", "year": 2021, "month": 4, "day": 1, "url": "u"}]`
	batch, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "R3_100_2021_4_1.txt", OutputFileName(batch.Cases[0]))
}
