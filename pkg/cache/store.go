package cache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nodewee/ruling-to-text/pkg/constants"
	"github.com/nodewee/ruling-to-text/pkg/interfaces"
	"github.com/nodewee/ruling-to-text/pkg/logger"
	"github.com/nodewee/ruling-to-text/pkg/types"
	"github.com/nodewee/ruling-to-text/pkg/utils"
)

// Store manages intermediate files that persist between runs.
// Directory structure: {cache_dir}/{case_id}/{source.pdf,pages/,diagnostics.log}
//
// Entries survive between runs, which makes an interrupted batch cheap to
// resume. Page images are dropped only when the source PDF is fetched again.
type Store struct {
	baseDir string
	logger  *logger.Logger
}

// Ensure Store implements CacheStore interface
var _ interfaces.CacheStore = (*Store)(nil)

// NewStore creates a cache store rooted at baseDir
func NewStore(baseDir string, log *logger.Logger) *Store {
	return &Store{
		baseDir: utils.NormalizePath(baseDir),
		logger:  log,
	}
}

// BaseDir returns the cache root
func (s *Store) BaseDir() string {
	return s.baseDir
}

// CaseDir returns the directory that belongs to rec
func (s *Store) CaseDir(rec types.CaseRecord) string {
	return filepath.Join(s.baseDir, utils.SanitizeFileName(rec.ID))
}

// SourcePath returns where rec's PDF lives in the cache
func (s *Store) SourcePath(rec types.CaseRecord) string {
	return filepath.Join(s.CaseDir(rec), constants.SourcePDFName)
}

// Resolve returns the cached source path and whether it is a usable hit.
// A missing or zero-byte file is a miss; useCache=false always misses.
func (s *Store) Resolve(rec types.CaseRecord, useCache bool) (string, bool) {
	path := s.SourcePath(rec)
	if !useCache {
		return path, false
	}
	if utils.IsValidFile(path) {
		s.logger.Debug("Cache hit for %s: %s", rec.ID, path)
		return path, true
	}
	return path, false
}

// EnsureCaseDir creates the case's directory tree
func (s *Store) EnsureCaseDir(rec types.CaseRecord) error {
	if err := utils.EnsureDir(s.PagesDir(rec)); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	return nil
}

// ClearPages removes the case's rendered page images
func (s *Store) ClearPages(rec types.CaseRecord) error {
	if err := os.RemoveAll(s.PagesDir(rec)); err != nil {
		return fmt.Errorf("failed to clear page images: %w", err)
	}
	return nil
}

// RenderStampPath returns the file recording the settings the page images
// were rendered with
func (s *Store) RenderStampPath(rec types.CaseRecord) string {
	return filepath.Join(s.PagesDir(rec), constants.RenderStampName)
}

// PagesDir returns the directory for page images
func (s *Store) PagesDir(rec types.CaseRecord) string {
	return filepath.Join(s.CaseDir(rec), constants.PagesDirName)
}

// PageImagePath returns the path for a specific page image
func (s *Store) PageImagePath(rec types.CaseRecord, page int, ext string) string {
	return filepath.Join(s.PagesDir(rec), PageImageName(page, ext))
}

// PageImageName is the file name of a page image, e.g. page-0003.jpg
func PageImageName(page int, ext string) string {
	return fmt.Sprintf(constants.PageImagePattern, page) + "." + ext
}

// DiagnosticsPath returns the per-case log of non-fatal tool output
func (s *Store) DiagnosticsPath(rec types.CaseRecord) string {
	return filepath.Join(s.CaseDir(rec), constants.DiagnosticsFileName)
}

// IsValid reports whether path is a usable cache entry
func (s *Store) IsValid(path string) bool {
	return utils.IsValidFile(path)
}
