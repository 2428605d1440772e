// Package input loads the batch of case records produced by the upstream
// listing tool.
//
// Two document shapes are accepted: a JSON array of records, or a JSON object
// mapping a record name to the record. Each record carries a case number, a
// decision date and the location of the ruling's PDF:
//
//	{"令和3年(あ)第100号": {"case_number": "令和3年(あ)第100号",
//	  "date": {"year": 2021, "month": 4, "day": 1},
//	  "full_pdf_link": "https://www.courts.go.jp/.../091234_hanrei.pdf"}}
//
// A document that is not one of those shapes fails the whole load. A record
// that is malformed is rejected on its own and the rest still load.
package input

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/nodewee/ruling-to-text/pkg/output"
	"github.com/nodewee/ruling-to-text/pkg/types"
	"github.com/nodewee/ruling-to-text/pkg/utils"
)

var (
	sourceKeys     = []string{"url", "full_pdf_link", "pdf_url", "source"}
	trialTypeKeys  = []string{"trial_type", "judgment_type"}
	courtNameKeys  = []string{"court_name", "court"}
	errNotDocument = errors.New("expected a JSON array or object of case records")
)

// Rejection is a record that could not be turned into a CaseRecord
type Rejection struct {
	Index      int    `json:"index"`
	ID         string `json:"id,omitempty"`
	CaseNumber string `json:"case_number,omitempty"`
	Reason     string `json:"reason"`
}

// Batch is the result of loading an input document
type Batch struct {
	Cases    []types.CaseRecord
	Rejected []Rejection
}

// Total returns the number of records in the document
func (b *Batch) Total() int {
	return len(b.Cases) + len(b.Rejected)
}

// Load reads and parses the input document at path
func Load(path string) (*Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, utils.NewInputError(fmt.Sprintf("cannot open input %s", path), err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a batch document, preserving record order
func Parse(r io.Reader) (*Batch, error) {
	dec := json.NewDecoder(bufio.NewReader(r))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, utils.NewInputError("input is not valid JSON", err)
	}
	delim, ok := tok.(json.Delim)
	if !ok || (delim != '[' && delim != '{') {
		return nil, utils.NewInputError("invalid input document", errNotDocument)
	}

	var raws []rawRecord
	for index := 0; dec.More(); index++ {
		rr := rawRecord{index: index}
		if delim == '{' {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, utils.NewInputError("input is not valid JSON", err)
			}
			rr.name, _ = keyTok.(string)
			rr.named = true
		}
		if err := dec.Decode(&rr.body); err != nil {
			return nil, utils.NewInputError(fmt.Sprintf("input is not valid JSON near record %d", index), err)
		}
		raws = append(raws, rr)
	}
	if _, err := dec.Token(); err != nil {
		return nil, utils.NewInputError("input is not valid JSON", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, utils.NewInputError("invalid input document", errors.New("trailing data after the top-level value"))
	}

	return assemble(raws), nil
}

type rawRecord struct {
	index int
	name  string
	named bool
	body  json.RawMessage
}

// assemble converts raw records and applies the uniqueness rules: the first
// record claiming a cache directory or an output file name wins.
func assemble(raws []rawRecord) *Batch {
	batch := &Batch{}
	ids := make(map[string]int)
	names := make(map[string]int)

	for _, rr := range raws {
		rec, err := decodeRecord(rr)
		if err != nil {
			batch.Rejected = append(batch.Rejected, Rejection{
				Index:      rr.index,
				ID:         rec.ID,
				CaseNumber: rec.CaseNumber,
				Reason:     err.Error(),
			})
			continue
		}

		// ids that sanitize to the same name would share a cache directory
		cacheKey := utils.SanitizeFileName(rec.ID)
		if first, dup := ids[cacheKey]; dup {
			batch.Rejected = append(batch.Rejected, Rejection{
				Index: rr.index, ID: rec.ID, CaseNumber: rec.CaseNumber,
				Reason: fmt.Sprintf("duplicate record id %q (first seen at index %d)", rec.ID, first),
			})
			continue
		}
		fileName := OutputFileName(rec)
		if first, dup := names[fileName]; dup {
			batch.Rejected = append(batch.Rejected, Rejection{
				Index: rr.index, ID: rec.ID, CaseNumber: rec.CaseNumber,
				Reason: fmt.Sprintf("duplicate output name %s (first seen at index %d)", fileName, first),
			})
			continue
		}
		ids[cacheKey] = rr.index
		names[fileName] = rr.index
		batch.Cases = append(batch.Cases, rec)
	}
	return batch
}

// OutputFileName is the deterministic file name for rec's text
func OutputFileName(rec types.CaseRecord) string {
	return output.FileName(rec)
}

func decodeRecord(rr rawRecord) (types.CaseRecord, error) {
	rec := types.CaseRecord{Index: rr.index}
	if rr.named {
		rec.ID = rr.name
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(rr.body, &fields); err != nil || fields == nil {
		return rec, fmt.Errorf("record is not a JSON object")
	}

	var problems []string
	caseNumber, err := stringField(fields, "case_number")
	rec.CaseNumber = caseNumber
	if err != nil {
		problems = append(problems, err.Error())
	} else if strings.TrimSpace(caseNumber) == "" {
		problems = append(problems, "case_number is empty")
	}

	if err := decodeDate(fields, &rec); err != nil {
		problems = append(problems, err.Error())
	}

	source, err := firstString(fields, sourceKeys)
	rec.Source = strings.TrimSpace(source)
	if err != nil {
		problems = append(problems, err.Error())
	} else if rec.Source == "" {
		problems = append(problems, "source url is missing (url or full_pdf_link)")
	}

	rec.TrialType, _ = firstString(fields, trialTypeKeys)
	rec.CourtName, _ = firstString(fields, courtNameKeys)

	if !rr.named {
		if id, err := stringField(fields, "id"); err == nil && strings.TrimSpace(id) != "" {
			rec.ID = id
		}
	}

	if len(problems) > 0 {
		return rec, errors.New(strings.Join(problems, "; "))
	}
	if rec.ID == "" {
		rec.ID = rec.OutputStem()
	}
	return rec, nil
}

func decodeDate(fields map[string]json.RawMessage, rec *types.CaseRecord) error {
	parts := fields
	if raw, ok := fields["date"]; ok && !isNull(raw) {
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(raw, &nested); err == nil && nested != nil {
			parts = nested
		} else {
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return fmt.Errorf("date must be an object or YYYY-MM-DD string")
			}
			return parseISODate(s, rec)
		}
	}

	var err error
	var problems []string
	if rec.Year, err = intField(parts, "year"); err != nil {
		problems = append(problems, err.Error())
	}
	if rec.Month, err = intField(parts, "month"); err != nil {
		problems = append(problems, err.Error())
	}
	if rec.Day, err = intField(parts, "day"); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return checkDate(rec.Year, rec.Month, rec.Day)
}

func parseISODate(s string, rec *types.CaseRecord) error {
	p := strings.Split(strings.TrimSpace(s), "-")
	if len(p) != 3 {
		return fmt.Errorf("date %q is not YYYY-MM-DD", s)
	}
	n := make([]int, 3)
	for i, part := range p {
		v, err := strconv.Atoi(part)
		if err != nil {
			return fmt.Errorf("date %q is not YYYY-MM-DD", s)
		}
		n[i] = v
	}
	rec.Year, rec.Month, rec.Day = n[0], n[1], n[2]
	return checkDate(rec.Year, rec.Month, rec.Day)
}

func checkDate(year, month, day int) error {
	switch {
	case year <= 0:
		return fmt.Errorf("year %d out of range", year)
	case month < 1 || month > 12:
		return fmt.Errorf("month %d out of range", month)
	case day < 1 || day > 31:
		return fmt.Errorf("day %d out of range", day)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func stringField(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return "", fmt.Errorf("%s is missing", key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%s must be a string", key)
	}
	return s, nil
}

// firstString returns the first present key of keys; absent keys yield ""
func firstString(fields map[string]json.RawMessage, keys []string) (string, error) {
	for _, k := range keys {
		if raw, ok := fields[k]; ok && !isNull(raw) {
			return stringField(fields, k)
		}
	}
	return "", nil
}

// intField accepts a JSON integer or a string holding one, the listing tool
// emits both
func intField(fields map[string]json.RawMessage, key string) (int, error) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return 0, fmt.Errorf("%s is missing", key)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		v, err := strconv.Atoi(n.String())
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer", key)
		}
		return v, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer", key)
		}
		return v, nil
	}
	return 0, fmt.Errorf("%s must be an integer", key)
}
