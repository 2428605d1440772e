package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nodewee/ruling-to-text/pkg/constants"
	"github.com/nodewee/ruling-to-text/pkg/types"
	"github.com/nodewee/ruling-to-text/pkg/utils"
)

// EnvPrefix is prepended to every environment override, e.g. RULING_TEXT_OCR_ENGINE
const EnvPrefix = "RULING_TEXT"

// Default values and constants
const (
	DefaultCacheDir        = "tmp"
	DefaultOutputDir       = "."
	DefaultMode            = types.ModeTextLayer
	DefaultLogLevel        = "info"
	DefaultTimeoutMinutes  = 30
	DefaultTextLayerEngine = types.TextLayerPdftotext
	DefaultOCREngine       = types.OCREngineTesseract
	DefaultOpenAIModel     = "gpt-4o-mini"
	DefaultS3Region        = "ap-northeast-1"

	// Tool paths
	DefaultPdftotextPath = "pdftotext"
	DefaultPdftoppmPath  = "pdftoppm"
	DefaultPdfinfoPath   = "pdfinfo"
	DefaultTesseractPath = "tesseract"
)

// Config holds application configuration
type Config struct {
	Input       string
	CacheDir    string
	OutputDir   string
	Mode        types.ExtractionMode
	UseCache    bool
	ForceRerun  bool
	Concurrency int

	// Per-case budget; zero disables the deadline
	TimeoutMinutes int

	Fetch     FetchConfig
	S3        S3Config
	GCS       GCSConfig
	TextLayer TextLayerConfig
	OCR       OCRConfig
	OpenAI    OpenAIConfig
	Tools     ToolPaths

	LogLevel   string
	LogFile    string
	Verbose    bool
	ReportPath string
	NoColor    bool
}

// FetchConfig controls downloads
type FetchConfig struct {
	MaxAttempts    int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	Timeout        time.Duration
	UserAgent      string
}

// S3Config holds settings for s3:// sources
type S3Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// GCSConfig holds settings for gs:// sources
type GCSConfig struct {
	Anonymous bool
}

// TextLayerConfig selects and tunes the text-layer reader
type TextLayerConfig struct {
	Engine           types.TextLayerEngineName
	StripPageNumbers bool
}

// OCRConfig tunes rasterization and recognition
type OCRConfig struct {
	Engine          types.OCREngineName
	Language        string
	DPI             int
	ImageFormat     string
	Crop            string
	PageConcurrency int
	PageSeparator   string
	JoinLines       bool
}

// OpenAIConfig is used by the openai OCR engine
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// ToolPaths points at the external executables
type ToolPaths struct {
	Pdftotext string
	Pdftoppm  string
	Pdfinfo   string
	Tesseract string
}

// SetDefaults registers every key with its default value
func SetDefaults(v *viper.Viper) {
	v.SetDefault("input", "")
	v.SetDefault("cache_dir", DefaultCacheDir)
	v.SetDefault("output_dir", DefaultOutputDir)
	v.SetDefault("mode", string(DefaultMode))
	v.SetDefault("use_cache", true)
	v.SetDefault("force_rerun", false)
	v.SetDefault("concurrency", constants.DefaultConcurrency)
	v.SetDefault("timeout_minutes", DefaultTimeoutMinutes)

	// Fetch defaults
	v.SetDefault("fetch.max_attempts", constants.DefaultFetchAttempts)
	v.SetDefault("fetch.backoff_initial", constants.DefaultBackoffInitial.String())
	v.SetDefault("fetch.backoff_max", constants.DefaultBackoffMax.String())
	v.SetDefault("fetch.timeout", constants.DefaultFetchTimeout.String())
	v.SetDefault("fetch.user_agent", constants.DefaultUserAgent)

	// Object storage defaults
	v.SetDefault("s3.region", DefaultS3Region)
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("gcs.anonymous", false)

	// Extraction defaults
	v.SetDefault("text_layer.engine", string(DefaultTextLayerEngine))
	v.SetDefault("text_layer.strip_page_numbers", false)
	v.SetDefault("ocr.engine", string(DefaultOCREngine))
	v.SetDefault("ocr.language", constants.DefaultOCRLanguage)
	v.SetDefault("ocr.dpi", constants.DefaultImageDPI)
	v.SetDefault("ocr.image_format", constants.DefaultImageFormat)
	v.SetDefault("ocr.crop", "")
	v.SetDefault("ocr.page_concurrency", constants.DefaultPageConcurrency)
	v.SetDefault("ocr.page_separator", constants.DefaultPageSeparator)
	v.SetDefault("ocr.join_lines", false)
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model", DefaultOpenAIModel)
	v.SetDefault("openai.base_url", "")

	// Tool paths
	v.SetDefault("tools.pdftotext", DefaultPdftotextPath)
	v.SetDefault("tools.pdftoppm", DefaultPdftoppmPath)
	v.SetDefault("tools.pdfinfo", DefaultPdfinfoPath)
	v.SetDefault("tools.tesseract", DefaultTesseractPath)

	// Output and logging
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.file", "")
	v.SetDefault("log.verbose", false)
	v.SetDefault("report", "")
	v.SetDefault("no_color", false)
}

// NewViper returns a viper instance with defaults, environment overrides
// and, when present, the config file. An explicit configFile must exist.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// OpenAI tooling conventionally reads this one unprefixed
	_ = v.BindEnv("openai.api_key", EnvPrefix+"_OPENAI_API_KEY", "OPENAI_API_KEY")

	if err := readConfigFile(v, configFile); err != nil {
		return nil, err
	}
	return v, nil
}

// Load decodes the effective settings from v
func Load(v *viper.Viper) (*Config, error) {
	mode, err := types.ParseExtractionMode(v.GetString("mode"))
	if err != nil {
		return nil, utils.NewValidationError("invalid mode", err)
	}

	cacheDir, err := utils.ExpandPath(v.GetString("cache_dir"))
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrorTypeValidation, "invalid cache_dir")
	}
	outputDir, err := utils.ExpandPath(v.GetString("output_dir"))
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrorTypeValidation, "invalid output_dir")
	}

	cfg := &Config{
		Input:          v.GetString("input"),
		CacheDir:       cacheDir,
		OutputDir:      outputDir,
		Mode:           mode,
		UseCache:       v.GetBool("use_cache"),
		ForceRerun:     v.GetBool("force_rerun"),
		Concurrency:    v.GetInt("concurrency"),
		TimeoutMinutes: v.GetInt("timeout_minutes"),
		LogLevel:       v.GetString("log.level"),
		LogFile:        v.GetString("log.file"),
		Verbose:        v.GetBool("log.verbose"),
		ReportPath:     v.GetString("report"),
		NoColor:        v.GetBool("no_color"),
	}
	cfg.Fetch = FetchConfig{
		MaxAttempts:    v.GetInt("fetch.max_attempts"),
		BackoffInitial: v.GetDuration("fetch.backoff_initial"),
		BackoffMax:     v.GetDuration("fetch.backoff_max"),
		Timeout:        v.GetDuration("fetch.timeout"),
		UserAgent:      v.GetString("fetch.user_agent"),
	}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
	}
	cfg.GCS = GCSConfig{Anonymous: v.GetBool("gcs.anonymous")}
	cfg.TextLayer = TextLayerConfig{
		Engine:           types.TextLayerEngineName(strings.ToLower(v.GetString("text_layer.engine"))),
		StripPageNumbers: v.GetBool("text_layer.strip_page_numbers"),
	}
	cfg.OCR = OCRConfig{
		Engine:          types.OCREngineName(strings.ToLower(v.GetString("ocr.engine"))),
		Language:        v.GetString("ocr.language"),
		DPI:             v.GetInt("ocr.dpi"),
		ImageFormat:     strings.ToLower(v.GetString("ocr.image_format")),
		Crop:            v.GetString("ocr.crop"),
		PageConcurrency: v.GetInt("ocr.page_concurrency"),
		PageSeparator:   v.GetString("ocr.page_separator"),
		JoinLines:       v.GetBool("ocr.join_lines"),
	}
	cfg.OpenAI = OpenAIConfig{
		APIKey:  v.GetString("openai.api_key"),
		Model:   v.GetString("openai.model"),
		BaseURL: v.GetString("openai.base_url"),
	}
	cfg.Tools = ToolPaths{
		Pdftotext: v.GetString("tools.pdftotext"),
		Pdftoppm:  v.GetString("tools.pdftoppm"),
		Pdfinfo:   v.GetString("tools.pdfinfo"),
		Tesseract: v.GetString("tools.tesseract"),
	}

	return cfg, nil
}

// Default returns the configuration built from defaults alone
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	if err != nil {
		// defaults are valid by construction
		panic(err)
	}
	return cfg
}

// Validate validates the configuration
func (c *Config) Validate() error {
	validator := NewConfigValidator()
	return validator.Validate(c)
}

// CaseTimeout returns the per-case deadline, zero when disabled
func (c *Config) CaseTimeout() time.Duration {
	if c.TimeoutMinutes <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutMinutes) * time.Minute
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Cache: %s, Output: %s, UseCache: %v, ForceRerun: %v, Concurrency: %d}",
		c.Mode, c.CacheDir, c.OutputDir, c.UseCache, c.ForceRerun, c.Concurrency)
}
