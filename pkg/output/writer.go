// Package output persists extracted text under each case's deterministic name.
package output

import (
	"fmt"
	"path/filepath"

	"github.com/nodewee/ruling-to-text/pkg/constants"
	"github.com/nodewee/ruling-to-text/pkg/interfaces"
	"github.com/nodewee/ruling-to-text/pkg/logger"
	"github.com/nodewee/ruling-to-text/pkg/types"
	"github.com/nodewee/ruling-to-text/pkg/utils"
)

// FileName returns {case_number}_{year}_{month}_{day}.txt for rec
func FileName(rec types.CaseRecord) string {
	return utils.SanitizeFileName(rec.OutputStem()) + constants.DefaultTextFileExtension
}

// Writer stores one text file per case in a single directory
type Writer struct {
	dir    string
	logger *logger.Logger
}

var _ interfaces.OutputWriter = (*Writer)(nil)

// NewWriter creates a writer for dir
func NewWriter(dir string, log *logger.Logger) *Writer {
	return &Writer{dir: utils.NormalizePath(dir), logger: log}
}

// Dir returns the output directory
func (w *Writer) Dir() string {
	return w.dir
}

// Path returns the output path for rec
func (w *Writer) Path(rec types.CaseRecord) string {
	return filepath.Join(w.dir, FileName(rec))
}

// Exists reports whether rec's output file is already present
func (w *Writer) Exists(rec types.CaseRecord) bool {
	return utils.FileExists(w.Path(rec))
}

// Write stores text for rec. Existing output is left untouched unless force
// is set; otherwise the file is replaced atomically.
func (w *Writer) Write(rec types.CaseRecord, text string, force bool) (types.CaseStatus, string, error) {
	path := w.Path(rec)
	if !force && utils.FileExists(path) {
		w.logger.Debug("Output exists, skipping: %s", path)
		return types.StatusSkipped, path, nil
	}

	if err := utils.EnsureDir(w.dir); err != nil {
		return types.StatusFailed, path, utils.NewWriteError("cannot create output directory", err)
	}
	if err := utils.WriteFileAtomic(path, []byte(text)); err != nil {
		return types.StatusFailed, path, utils.NewWriteError(fmt.Sprintf("cannot write %s", filepath.Base(path)), err)
	}

	w.logger.Debug("Wrote %d bytes to %s", len(text), path)
	return types.StatusWritten, path, nil
}
