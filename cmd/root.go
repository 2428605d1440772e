package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nodewee/ruling-to-text/pkg/config"
	"github.com/nodewee/ruling-to-text/pkg/constants"
	"github.com/nodewee/ruling-to-text/pkg/core"
	"github.com/nodewee/ruling-to-text/pkg/input"
	"github.com/nodewee/ruling-to-text/pkg/logger"
	"github.com/nodewee/ruling-to-text/pkg/utils"
)

var (
	configFile  string
	noCache     bool
	showVersion bool
)

// flagKeys binds command line flags to configuration keys. A flag only
// overrides the environment and config file when it is given explicitly.
var flagKeys = map[string]string{
	"input":              "input",
	"tmp":                "cache_dir",
	"output":             "output_dir",
	"mode":               "mode",
	"force-re-run":       "force_rerun",
	"concurrency":        "concurrency",
	"timeout":            "timeout_minutes",
	"text-engine":        "text_layer.engine",
	"strip-page-numbers": "text_layer.strip_page_numbers",
	"ocr-engine":         "ocr.engine",
	"ocr-lang":           "ocr.language",
	"report":             "report",
	"verbose":            "log.verbose",
	"log-level":          "log.level",
	"log-file":           "log.file",
	"no-color":           "no_color",
}

// ExitError carries a process exit status out of a command
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func usageError(err error) error {
	return &ExitError{Code: constants.ExitCodeUsage, Err: err}
}

// AppHandler encapsulates application main processing logic
type AppHandler struct {
	config *config.Config
	logger *logger.Logger
}

// NewAppHandler creates an application handler
func NewAppHandler() *AppHandler {
	return &AppHandler{}
}

// Run loads the configuration and the batch, then processes every case.
// The returned error is an *ExitError whenever the exit status is not 0.
func (h *AppHandler) Run(cmd *cobra.Command) error {
	if err := h.initialize(cmd); err != nil {
		return usageError(err)
	}
	defer h.logger.Sync()

	pipeline, err := core.NewPipeline(h.config, h.logger)
	if err != nil {
		return usageError(err)
	}
	defer pipeline.Close()

	batch, err := input.Load(h.config.Input)
	if err != nil {
		return usageError(err)
	}
	h.logger.Info("Loaded %d cases from %s (%d rejected)", len(batch.Cases), h.config.Input, len(batch.Rejected))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := pipeline.Run(ctx, batch, cmd.OutOrStdout())
	if err != nil {
		h.logger.Error("Failed to write report: %s", utils.Describe(err))
		if code := report.ExitCode(); code != constants.ExitCodeSuccess {
			return &ExitError{Code: code, Err: err}
		}
		return &ExitError{Code: constants.ExitCodeCaseFailure, Err: err}
	}

	if code := report.ExitCode(); code != constants.ExitCodeSuccess {
		return &ExitError{Code: code}
	}
	return nil
}

// initialize builds the effective configuration and the logger
func (h *AppHandler) initialize(cmd *cobra.Command) error {
	if err := loadDotEnv(); err != nil {
		return err
	}

	v, err := config.NewViper(configFile)
	if err != nil {
		return err
	}
	if err := bindFlags(cmd, v); err != nil {
		return err
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	if cfg.Input == "" {
		return utils.NewValidationError("an input file is required (--input)", nil)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.Tools = config.ResolveTools(cfg.Tools)

	log, err := logger.NewLoggerWithOptions(logger.Options{
		Level:    cfg.LogLevel,
		Verbose:  cfg.Verbose,
		FilePath: cfg.LogFile,
		Console:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return utils.WrapError(err, utils.ErrorTypeIO, "failed to open log file")
	}

	h.config = cfg
	h.logger = log
	return nil
}

// loadDotEnv applies a .env file in the working directory when there is one
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return utils.WrapError(err, utils.ErrorTypeValidation, "failed to read .env")
	}
	return nil
}

func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	for flag, key := range flagKeys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return utils.WrapError(err, utils.ErrorTypeValidation, fmt.Sprintf("failed to bind --%s", flag))
		}
	}
	if noCache {
		v.Set("use_cache", false)
	}
	return nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ruling-to-text --input cases.json",
	Short: "Convert court-ruling PDFs listed in a JSON batch into text files",
	Long: `Convert the court-ruling PDFs listed in a JSON batch document into one text file per case.

Each case is fetched once into the cache directory, converted with the selected
extraction mode, and written to {case_number}_{year}_{month}_{day}.txt in the
output directory. Cases whose output already exists are skipped, so an
interrupted or partially failed run can simply be started again.

Extraction modes:
- text-layer: read the PDF's embedded text (pdftotext, or the builtin reader)
- ocr:        render every page with pdftoppm and recognize it (tesseract,
              gosseract or an OpenAI vision model)

Sources may be http(s) URLs, local paths, file://, s3:// or gs:// locations.

Configuration precedence: flags > RULING_TEXT_* environment > config file > defaults.

Examples:
  ruling-to-text -i cases.json                               # text layer, output to the current directory
  ruling-to-text -i cases.json -o texts -t cache -j 4        # 4 cases in parallel
  ruling-to-text -i cases.json -m ocr --ocr-lang jpn         # OCR every page with tesseract
  ruling-to-text -i cases.json --force-re-run --report run.json
  ruling-to-text check                                       # show which external tools are installed`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Handle version flag
		if showVersion {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", constants.AppName, version)
			return nil
		}
		return NewAppHandler().Run(cmd)
	},
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	return rootCmd
}

// Execute runs the CLI and returns the process exit status
func Execute() int {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the CLI under ctx and returns the process exit status
func ExecuteContext(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return constants.ExitCodeSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %s\n", utils.Describe(exitErr.Err))
		}
		return exitErr.Code
	}
	// cobra's own flag and argument errors
	fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
	return constants.ExitCodeUsage
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default ~/.ruling-to-text/config.yaml when present)")

	flags := rootCmd.Flags()
	flags.StringP("input", "i", "", "JSON batch document listing the cases")
	flags.StringP("tmp", "t", config.DefaultCacheDir, "Cache directory for downloaded PDFs and page images")
	flags.StringP("output", "o", config.DefaultOutputDir, "Output directory for the text files")
	flags.StringP("mode", "m", string(config.DefaultMode), "Extraction mode (text-layer, ocr)")
	flags.BoolVar(&noCache, "do-not-use-cache", false, "Fetch every source again even when it is cached")
	flags.Bool("force-re-run", false, "Overwrite existing output files")
	flags.IntP("concurrency", "j", constants.DefaultConcurrency, "Number of cases processed in parallel")
	flags.Int("timeout", config.DefaultTimeoutMinutes, "Per-case timeout in minutes (0 disables)")
	flags.String("text-engine", string(config.DefaultTextLayerEngine), "Text layer engine (pdftotext, builtin)")
	flags.Bool("strip-page-numbers", false, "Drop lines that hold only a page number such as \"- 3 -\"; lines that merely start with a number are kept")
	flags.String("ocr-engine", string(config.DefaultOCREngine), "OCR engine (tesseract, gosseract, openai)")
	flags.String("ocr-lang", constants.DefaultOCRLanguage, "OCR language, e.g. jpn or jpn+eng")
	flags.String("report", "", "Write the batch report to this file (.json or .yaml)")
	flags.BoolP("verbose", "v", false, "Enable verbose output to show progress information")
	flags.String("log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	flags.String("log-file", "", "Also write a rotating JSON log to this file")
	flags.Bool("no-color", false, "Disable colored status lines")
	flags.BoolVarP(&showVersion, "version", "V", false, "Show version information")
}
