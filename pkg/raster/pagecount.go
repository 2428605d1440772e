package raster

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/nodewee/ruling-to-text/pkg/interfaces"
	"github.com/nodewee/ruling-to-text/pkg/logger"
	"github.com/nodewee/ruling-to-text/pkg/utils"
)

var pdfinfoPages = regexp.MustCompile(`(?m)^Pages:\s*(\d+)`)

// pdfcpu otherwise writes its config into the user's config dir on first use
var disableConfigDir sync.Once

// PdfcpuCounter counts pages with pdfcpu and falls back to pdfinfo for
// files pdfcpu refuses to parse
type PdfcpuCounter struct {
	pdfinfo string
	run     utils.CommandRunner
	logger  *logger.Logger
}

var _ interfaces.PageCounter = (*PdfcpuCounter)(nil)

// NewPdfcpuCounter creates a page counter. pdfinfo may be empty to disable the fallback.
func NewPdfcpuCounter(pdfinfo string, run utils.CommandRunner, log *logger.Logger) *PdfcpuCounter {
	if run == nil {
		run = utils.RunCommand
	}
	disableConfigDir.Do(api.DisableConfigDir)
	return &PdfcpuCounter{pdfinfo: pdfinfo, run: run, logger: log}
}

// PageCount returns the number of pages in pdfPath
func (c *PdfcpuCounter) PageCount(ctx context.Context, pdfPath string) (int, error) {
	n, err := c.pdfcpuCount(pdfPath)
	if err == nil {
		return n, nil
	}
	if c.pdfinfo == "" {
		return 0, err
	}

	c.logger.Debug("pdfcpu could not read %s (%v), trying pdfinfo", pdfPath, err)
	n, infoErr := c.pdfinfoCount(ctx, pdfPath)
	if infoErr != nil {
		return 0, fmt.Errorf("%v; pdfinfo: %w", err, infoErr)
	}
	return n, nil
}

func (c *PdfcpuCounter) pdfcpuCount(pdfPath string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("pdfcpu panicked: %v", r)
		}
	}()

	f, err := os.Open(pdfPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.PageCount(f, conf)
}

func (c *PdfcpuCounter) pdfinfoCount(ctx context.Context, pdfPath string) (int, error) {
	stdout, stderr, err := c.run(ctx, c.pdfinfo, pdfPath)
	if err != nil {
		if lines := utils.StderrLines(stderr); len(lines) > 0 {
			return 0, fmt.Errorf("%w: %s", err, lines[0])
		}
		return 0, err
	}
	return parsePdfinfoPages(stdout)
}

func parsePdfinfoPages(out []byte) (int, error) {
	m := pdfinfoPages.FindSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("no page count in pdfinfo output")
	}
	return strconv.Atoi(string(m[1]))
}
