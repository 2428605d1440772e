package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nodewee/ruling-to-text/pkg/config"
	"github.com/nodewee/ruling-to-text/pkg/logger"
	"github.com/nodewee/ruling-to-text/pkg/ocr"
	"github.com/nodewee/ruling-to-text/pkg/types"
)

// toolUse says which mode needs each external tool
var toolUse = map[string]string{
	"pdftotext": "text-layer mode (text_layer.engine=pdftotext)",
	"pdftoppm":  "ocr mode, page rendering",
	"pdfinfo":   "ocr mode, page count fallback",
	"tesseract": "ocr mode (ocr.engine=tesseract)",
}

// checkCmd reports which external tools and OCR engines are usable
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check external tools and OCR engines",
	Long: `Check which external tools and OCR engines are available on this system.

Tool paths come from the tools.* settings; when a configured path is not found
the usual install locations for this platform are searched as well.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadDotEnv(); err != nil {
			return usageError(err)
		}
		v, err := config.NewViper(configFile)
		if err != nil {
			return usageError(err)
		}
		cfg, err := config.Load(v)
		if err != nil {
			return usageError(err)
		}
		runCheck(cmd.OutOrStdout(), cfg)
		return nil
	},
}

func runCheck(w io.Writer, cfg *config.Config) {
	ok := color.New(color.FgGreen).Sprint("✔")
	missing := color.New(color.FgRed).Sprint("✘")

	fmt.Fprintln(w, "🔧 External tools")
	for _, s := range config.DetectTools(cfg.Tools) {
		if s.Found {
			fmt.Fprintf(w, "  %s %-10s %s\n", ok, s.Name, s.Resolved)
		} else {
			fmt.Fprintf(w, "  %s %-10s not found (%s = %q) needed for %s\n", missing, s.Name, s.Key, s.Path, toolUse[s.Name])
		}
	}

	cfg.Tools = config.ResolveTools(cfg.Tools)
	selector := ocr.NewOCRSelector(cfg, logger.NewNop())
	available := make(map[types.OCREngineName]bool)
	for _, name := range selector.GetAvailableEngines() {
		available[name] = true
	}

	descriptions := selector.Describe()
	names := make([]string, 0, len(descriptions))
	for name := range descriptions {
		names = append(names, string(name))
	}
	sort.Strings(names)

	fmt.Fprintln(w, "\n🔍 OCR engines")
	for _, name := range names {
		mark := missing
		if available[types.OCREngineName(name)] {
			mark = ok
		}
		current := ""
		if types.OCREngineName(name) == cfg.OCR.Engine {
			current = " (configured)"
		}
		fmt.Fprintf(w, "  %s %-10s %s%s\n", mark, name, descriptions[types.OCREngineName(name)], current)
	}
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
