// Package raster renders the pages of a case PDF to images for OCR.
package raster

import (
	"context"
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"

	"github.com/nodewee/ruling-to-text/pkg/config"
	"github.com/nodewee/ruling-to-text/pkg/interfaces"
	"github.com/nodewee/ruling-to-text/pkg/logger"
	"github.com/nodewee/ruling-to-text/pkg/raster/crop"
	"github.com/nodewee/ruling-to-text/pkg/types"
	"github.com/nodewee/ruling-to-text/pkg/utils"
)

// PageSequence is the ordered list of page images, numbered 1..N without gaps
type PageSequence = []types.Page

// Rasterizer renders one image per page with pdftoppm
type Rasterizer struct {
	pdftoppm string
	dpi      int
	format   string
	crop     image.Rectangle
	hasCrop  bool

	store   interfaces.CacheStore
	counter interfaces.PageCounter
	run     utils.CommandRunner
	logger  *logger.Logger
}

// Ensure Rasterizer implements Rasterizer interface
var _ interfaces.Rasterizer = (*Rasterizer)(nil)

// NewRasterizer creates a rasterizer from the OCR settings
func NewRasterizer(cfg *config.Config, store interfaces.CacheStore, log *logger.Logger) (*Rasterizer, error) {
	r := &Rasterizer{
		pdftoppm: cfg.Tools.Pdftoppm,
		dpi:      cfg.OCR.DPI,
		format:   cfg.OCR.ImageFormat,
		store:    store,
		counter:  NewPdfcpuCounter(cfg.Tools.Pdfinfo, nil, log),
		run:      utils.RunCommand,
		logger:   log,
	}
	if cfg.OCR.Crop != "" {
		box, err := crop.ParseGeometry(cfg.OCR.Crop)
		if err != nil {
			return nil, utils.NewValidationError("invalid ocr.crop", err)
		}
		r.crop, r.hasCrop = box, true
	}
	return r, nil
}

// WithCounter replaces the page counter
func (r *Rasterizer) WithCounter(c interfaces.PageCounter) *Rasterizer {
	r.counter = c
	return r
}

// WithRunner replaces the command runner used to invoke pdftoppm
func (r *Rasterizer) WithRunner(run utils.CommandRunner) *Rasterizer {
	r.run = run
	return r
}

// Ext returns the file extension pdftoppm uses for the configured format
func (r *Rasterizer) Ext() string {
	if r.format == "png" {
		return "png"
	}
	return "jpg"
}

// Rasterize renders every page of pdfPath into the case's pages directory.
// Valid images from an earlier run are reused when useCache is set and they
// were rendered with the current settings.
func (r *Rasterizer) Rasterize(ctx context.Context, rec types.CaseRecord, pdfPath string, useCache bool) (PageSequence, []string, error) {
	count, err := r.counter.PageCount(ctx, pdfPath)
	if err != nil {
		return nil, nil, utils.NewRasterError("cannot read page count", err)
	}
	if count <= 0 {
		return nil, nil, utils.NewRasterError("PDF has no pages", nil)
	}

	if err := r.store.EnsureCaseDir(rec); err != nil {
		return nil, nil, utils.NewRasterError("cannot create pages directory", err)
	}

	r.logger.Debug("Rasterizing %d pages of %s at %d dpi", count, pdfPath, r.dpi)

	stamp := r.store.RenderStampPath(rec)
	settings := r.renderSettings()
	reuse := useCache && stampMatches(stamp, settings)
	if !reuse {
		// pages rendered from here on no longer match the old settings
		os.Remove(stamp)
	}

	var warnings []string
	pages := make(PageSequence, 0, count)
	reused := 0
	for n := 1; n <= count; n++ {
		if err := ctx.Err(); err != nil {
			return nil, warnings, err
		}

		path := r.store.PageImagePath(rec, n, r.Ext())
		if reuse && utils.IsValidFile(path) {
			pages = append(pages, types.Page{Number: n, Path: path})
			reused++
			continue
		}

		w, err := r.renderPage(ctx, pdfPath, path, n)
		warnings = append(warnings, w...)
		if err != nil {
			return nil, warnings, err
		}
		pages = append(pages, types.Page{Number: n, Path: path})
	}

	if reused > 0 {
		r.logger.Debug("Reused %d/%d cached page images", reused, count)
	}
	if err := utils.WriteFileAtomic(stamp, []byte(settings)); err != nil {
		warnings = append(warnings, fmt.Sprintf("cannot record render settings: %v", err))
	}
	return pages, warnings, nil
}

// renderSettings describes everything that changes the pixels of a page image
func (r *Rasterizer) renderSettings() string {
	s := fmt.Sprintf("dpi=%d format=%s", r.dpi, r.Ext())
	if r.hasCrop {
		s += " crop=" + r.crop.String()
	}
	return s + "\n"
}

func stampMatches(path, settings string) bool {
	data, err := os.ReadFile(path)
	return err == nil && string(data) == settings
}

// renderPage writes page n to dest. The image is rendered under a
// temporary prefix and renamed so dest never holds a partial render.
func (r *Rasterizer) renderPage(ctx context.Context, pdfPath, dest string, n int) ([]string, error) {
	ext := "." + r.Ext()
	prefix := strings.TrimSuffix(dest, ext) + ".part"
	rendered := prefix + ext
	defer os.Remove(rendered)

	page := strconv.Itoa(n)
	args := []string{
		"-" + r.format,
		"-r", strconv.Itoa(r.dpi),
		"-f", page,
		"-l", page,
		"-singlefile",
		pdfPath,
		prefix,
	}

	_, stderr, err := r.run(ctx, r.pdftoppm, args...)
	var warnings []string
	for _, line := range utils.StderrLines(stderr) {
		warnings = append(warnings, fmt.Sprintf("pdftoppm page %d: %s", n, line))
	}
	if err != nil {
		if ctx.Err() != nil {
			return warnings, ctx.Err()
		}
		if utils.IsCommandNotFound(err) {
			return warnings, utils.NewRasterError(fmt.Sprintf("%s is not installed", r.pdftoppm), err)
		}
		return warnings, utils.NewRasterError(fmt.Sprintf("rendering page %d failed", n), err)
	}
	if !utils.IsValidFile(rendered) {
		return warnings, utils.NewRasterError(fmt.Sprintf("no image produced for page %d", n), nil)
	}

	if r.hasCrop {
		ok, err := crop.File(rendered, r.crop)
		if err != nil {
			return warnings, utils.NewRasterError(fmt.Sprintf("cropping page %d failed", n), err)
		}
		if !ok {
			warnings = append(warnings, fmt.Sprintf("page %d: crop box outside image, left uncropped", n))
		}
	}

	if err := os.Rename(rendered, dest); err != nil {
		return warnings, utils.NewRasterError(fmt.Sprintf("storing page %d failed", n), err)
	}
	return warnings, nil
}
