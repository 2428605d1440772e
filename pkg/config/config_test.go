package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodewee/ruling-to-text/pkg/config"
	"github.com/nodewee/ruling-to-text/pkg/types"
)

// isolate points HOME at an empty dir so no user config file leaks in
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestDefaults(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, "tmp", cfg.CacheDir)
	assert.Equal(t, ".", cfg.OutputDir)
	assert.Equal(t, types.ModeTextLayer, cfg.Mode)
	assert.True(t, cfg.UseCache)
	assert.False(t, cfg.ForceRerun)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, 3, cfg.Fetch.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Fetch.BackoffInitial)
	assert.Equal(t, 30*time.Second, cfg.Fetch.BackoffMax)
	assert.Equal(t, types.TextLayerPdftotext, cfg.TextLayer.Engine)
	assert.Equal(t, types.OCREngineTesseract, cfg.OCR.Engine)
	assert.Equal(t, "jpn", cfg.OCR.Language)
	assert.Equal(t, 300, cfg.OCR.DPI)
	assert.Equal(t, "\n\n", cfg.OCR.PageSeparator)
	assert.Equal(t, 30*time.Minute, cfg.CaseTimeout())
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("RULING_TEXT_CONCURRENCY", "4")
	t.Setenv("RULING_TEXT_MODE", "p2t")
	t.Setenv("RULING_TEXT_OCR_DPI", "200")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	v, err := config.NewViper("")
	require.NoError(t, err)
	cfg, err := config.Load(v)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, types.ModeTextLayer, cfg.Mode)
	assert.Equal(t, 200, cfg.OCR.DPI)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
}

func TestConfigFileAndPrecedence(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: ocr\nconcurrency: 6\nocr:\n  engine: tesseract\n  crop: 1000x1475+150+150\n"), 0o644))
	t.Setenv("RULING_TEXT_CONCURRENCY", "3")

	v, err := config.NewViper(path)
	require.NoError(t, err)
	cfg, err := config.Load(v)
	require.NoError(t, err)

	assert.Equal(t, types.ModeOCR, cfg.Mode)
	assert.Equal(t, 3, cfg.Concurrency, "environment beats file")
	assert.Equal(t, "1000x1475+150+150", cfg.OCR.Crop)
}

func TestMissingExplicitConfigFile(t *testing.T) {
	isolate(t)
	_, err := config.NewViper(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsUnknownMode(t *testing.T) {
	isolate(t)
	t.Setenv("RULING_TEXT_MODE", "vision")
	v, err := config.NewViper("")
	require.NoError(t, err)
	_, err = config.Load(v)
	assert.Error(t, err)
}

func TestValidateAggregatesErrors(t *testing.T) {
	cfg := config.Default()
	cfg.Concurrency = 0
	cfg.OCR.Engine = "cuneiform"
	cfg.LogLevel = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "input file is required")
	assert.Contains(t, msg, "concurrency must be at least 1")
	assert.Contains(t, msg, "invalid ocr.engine")
	assert.Contains(t, msg, "invalid log level")
}

func TestValidateOpenAIRequiresKeyInOCRMode(t *testing.T) {
	cfg := config.Default()
	cfg.Input = "cases.json"
	cfg.OCR.Engine = types.OCREngineOpenAI

	assert.NoError(t, cfg.Validate(), "text-layer runs never call the OCR engine")

	cfg.Mode = types.ModeOCR
	assert.Error(t, cfg.Validate())

	cfg.OpenAI.APIKey = "sk-test"
	assert.NoError(t, cfg.Validate())
}

func TestValidateCrop(t *testing.T) {
	cfg := config.Default()
	cfg.Input = "cases.json"
	cfg.OCR.Crop = "wide"
	assert.Error(t, cfg.Validate())
}

func TestSetConfigValue(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "cfg", "config.yaml")

	written, err := config.SetConfigValue(path, "ocr.language", "jpn+eng")
	require.NoError(t, err)
	assert.Equal(t, path, written)

	_, err = config.SetConfigValue(path, "concurrency", "5")
	require.NoError(t, err)

	v, err := config.NewViper(path)
	require.NoError(t, err)
	cfg, err := config.Load(v)
	require.NoError(t, err)
	assert.Equal(t, "jpn+eng", cfg.OCR.Language)
	assert.Equal(t, 5, cfg.Concurrency)

	got, err := config.GetConfigValue(v, "ocr.language")
	require.NoError(t, err)
	assert.Equal(t, "jpn+eng", got)
}

func TestSetConfigValueRejects(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")

	_, err := config.SetConfigValue(path, "no_such_key", "1")
	assert.Error(t, err)

	_, err = config.SetConfigValue(path, "concurrency", "0")
	assert.Error(t, err)
	assert.NoFileExists(t, path)
}

func TestListConfigKeys(t *testing.T) {
	keys := config.ListConfigKeys()
	assert.Contains(t, keys, "cache_dir")
	assert.Contains(t, keys, "ocr.engine")
	assert.Contains(t, keys, "tools.pdftoppm")
	assert.IsIncreasing(t, keys)
}
