package config

import (
	"fmt"
	"strings"

	"github.com/nodewee/ruling-to-text/pkg/constants"
	"github.com/nodewee/ruling-to-text/pkg/logger"
	"github.com/nodewee/ruling-to-text/pkg/raster/crop"
	"github.com/nodewee/ruling-to-text/pkg/types"
	"github.com/nodewee/ruling-to-text/pkg/utils"
)

// ConfigValidator 配置验证器
type ConfigValidator struct{}

// NewConfigValidator 创建配置验证器
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// Validate 验证配置, including the run-time input path
func (v *ConfigValidator) Validate(c *Config) error {
	var errors []string
	if strings.TrimSpace(c.Input) == "" {
		errors = append(errors, "input file is required")
	}
	errors = append(errors, v.collect(c)...)
	return v.result(errors)
}

// validateSettings checks everything except the input path
func (v *ConfigValidator) validateSettings(c *Config) error {
	return v.result(v.collect(c))
}

func (v *ConfigValidator) result(errors []string) error {
	if len(errors) > 0 {
		return utils.NewValidationError("configuration validation failed",
			fmt.Errorf("validation errors: %s", strings.Join(errors, "; ")))
	}
	return nil
}

func (v *ConfigValidator) collect(c *Config) []string {
	var errors []string
	add := func(err error) {
		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	add(v.validateMode(c.Mode))
	add(v.validateDirs(c))
	add(v.validateNumericValues(c))
	add(v.validateEngines(c))
	add(v.validateOCR(c.OCR))

	// 验证日志级别
	if !logger.ValidLevel(c.LogLevel) {
		add(fmt.Errorf("invalid log level: %s", c.LogLevel))
	}
	return errors
}

// validateMode 验证提取模式
func (v *ConfigValidator) validateMode(mode types.ExtractionMode) error {
	switch mode {
	case types.ModeTextLayer, types.ModeOCR:
		return nil
	}
	return fmt.Errorf("invalid mode: %s", mode)
}

func (v *ConfigValidator) validateDirs(c *Config) error {
	if strings.TrimSpace(c.CacheDir) == "" {
		return fmt.Errorf("cache_dir must not be empty")
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("output_dir must not be empty")
	}
	return nil
}

// validateNumericValues 验证数值参数
func (v *ConfigValidator) validateNumericValues(c *Config) error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}
	if c.Concurrency > constants.MaxConcurrency {
		return fmt.Errorf("concurrency should not exceed %d", constants.MaxConcurrency)
	}
	if c.TimeoutMinutes < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if c.Fetch.MaxAttempts < 1 {
		return fmt.Errorf("fetch.max_attempts must be at least 1")
	}
	if c.Fetch.BackoffInitial < 0 || c.Fetch.BackoffMax < 0 {
		return fmt.Errorf("fetch backoff must not be negative")
	}
	return nil
}

func (v *ConfigValidator) validateEngines(c *Config) error {
	switch c.TextLayer.Engine {
	case types.TextLayerPdftotext, types.TextLayerBuiltin:
	default:
		return fmt.Errorf("invalid text_layer.engine: %s", c.TextLayer.Engine)
	}

	switch c.OCR.Engine {
	case types.OCREngineTesseract, types.OCREngineGosseract:
	case types.OCREngineOpenAI:
		if c.Mode == types.ModeOCR && c.OpenAI.APIKey == "" {
			return fmt.Errorf("openai.api_key is required for the openai OCR engine")
		}
	default:
		return fmt.Errorf("invalid ocr.engine: %s", c.OCR.Engine)
	}
	return nil
}

func (v *ConfigValidator) validateOCR(o OCRConfig) error {
	if o.DPI < 72 || o.DPI > 1200 {
		return fmt.Errorf("ocr.dpi must be between 72 and 1200")
	}
	switch o.ImageFormat {
	case "jpeg", "png":
	default:
		return fmt.Errorf("invalid ocr.image_format: %s (want jpeg or png)", o.ImageFormat)
	}
	if o.PageConcurrency < 1 || o.PageConcurrency > constants.MaxPageConcurrency {
		return fmt.Errorf("ocr.page_concurrency must be between 1 and %d", constants.MaxPageConcurrency)
	}
	if o.Crop != "" {
		if _, err := crop.ParseGeometry(o.Crop); err != nil {
			return err
		}
	}
	if strings.TrimSpace(o.Language) == "" {
		return fmt.Errorf("ocr.language must not be empty")
	}
	return nil
}
