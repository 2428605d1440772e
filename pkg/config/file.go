package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/spf13/viper"

	"github.com/nodewee/ruling-to-text/pkg/constants"
	"github.com/nodewee/ruling-to-text/pkg/utils"
)

const (
	ConfigFileName = "config.yaml"
	AppDirName     = ".ruling-to-text"
)

// GetConfigDir returns the user configuration directory (~/.ruling-to-text)
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", utils.WrapError(err, utils.ErrorTypeIO, "failed to get user home directory")
	}
	return filepath.Join(homeDir, AppDirName), nil
}

// GetConfigFilePath returns the full path to the configuration file
func GetConfigFilePath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ConfigFileName), nil
}

// readConfigFile merges an explicit config file, or the user file when it exists
func readConfigFile(v *viper.Viper, explicit string) error {
	if explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return utils.WrapError(err, utils.ErrorTypeValidation, fmt.Sprintf("failed to read config file %s", explicit))
		}
		return nil
	}

	path, err := GetConfigFilePath()
	if err != nil || !utils.FileExists(path) {
		// no user config, defaults and environment only
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return utils.WrapError(err, utils.ErrorTypeValidation, fmt.Sprintf("failed to read config file %s", path))
	}
	return nil
}

// ListConfigKeys returns all available configuration keys, sorted
func ListConfigKeys() []string {
	v := viper.New()
	SetDefaults(v)
	keys := v.AllKeys()
	sort.Strings(keys)
	return keys
}

func isKnownKey(key string) bool {
	for _, k := range ListConfigKeys() {
		if k == key {
			return true
		}
	}
	return false
}

// GetConfigValue returns the effective value of key from v
func GetConfigValue(v *viper.Viper, key string) (interface{}, error) {
	if !isKnownKey(key) {
		return nil, utils.NewValidationError(fmt.Sprintf("unknown config key: %s", key), nil)
	}
	return v.Get(key), nil
}

// SetConfigValue persists key=value into the config file at path (the user
// file when path is empty). Only the file's own keys are written back.
func SetConfigValue(path, key, value string) (string, error) {
	if !isKnownKey(key) {
		return "", utils.NewValidationError(fmt.Sprintf("unknown config key: %s", key), nil)
	}

	if path == "" {
		var err error
		path, err = GetConfigFilePath()
		if err != nil {
			return "", err
		}
	}

	fileOnly := viper.New()
	fileOnly.SetConfigFile(path)
	if utils.FileExists(path) {
		if err := fileOnly.ReadInConfig(); err != nil {
			return "", utils.WrapError(err, utils.ErrorTypeValidation, "failed to read existing config file")
		}
	}
	fileOnly.Set(key, value)

	// Reject values that would make the effective configuration invalid
	probe := viper.New()
	SetDefaults(probe)
	if err := probe.MergeConfigMap(fileOnly.AllSettings()); err != nil {
		return "", utils.WrapError(err, utils.ErrorTypeValidation, "failed to merge config")
	}
	cfg, err := Load(probe)
	if err != nil {
		return "", err
	}
	if err := NewConfigValidator().validateSettings(cfg); err != nil {
		return "", err
	}

	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return "", utils.WrapError(err, utils.ErrorTypeIO, "failed to create config directory")
	}
	if err := fileOnly.WriteConfigAs(path); err != nil {
		return "", utils.WrapError(err, utils.ErrorTypeIO, "failed to write config file")
	}
	return path, nil
}

// ToolStatus describes one external executable
type ToolStatus struct {
	Name     string
	Key      string
	Path     string
	Resolved string
	Found    bool
}

// DetectTools resolves each configured tool path, falling back to the
// platform's well-known install locations.
func DetectTools(tools ToolPaths) []ToolStatus {
	platform := constants.GetPlatformConfig()
	candidates := []struct {
		name, key, configured string
		fallbacks             []string
	}{
		{"pdftotext", "tools.pdftotext", tools.Pdftotext, platform.PdftotextPaths},
		{"pdftoppm", "tools.pdftoppm", tools.Pdftoppm, platform.PdftoppmPaths},
		{"pdfinfo", "tools.pdfinfo", tools.Pdfinfo, platform.PdfinfoPaths},
		{"tesseract", "tools.tesseract", tools.Tesseract, platform.TesseractPaths},
	}

	statuses := make([]ToolStatus, 0, len(candidates))
	for _, c := range candidates {
		status := ToolStatus{Name: c.name, Key: c.key, Path: c.configured}
		for _, p := range append([]string{c.configured}, c.fallbacks...) {
			if p == "" {
				continue
			}
			if resolved, err := exec.LookPath(p); err == nil {
				status.Resolved = resolved
				status.Found = true
				break
			}
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// ResolveTools replaces each tool path with its detected location when the
// configured one is not on PATH
func ResolveTools(tools ToolPaths) ToolPaths {
	for _, s := range DetectTools(tools) {
		if !s.Found {
			continue
		}
		if _, err := exec.LookPath(s.Path); err == nil {
			continue
		}
		switch s.Name {
		case "pdftotext":
			tools.Pdftotext = s.Resolved
		case "pdftoppm":
			tools.Pdftoppm = s.Resolved
		case "pdfinfo":
			tools.Pdfinfo = s.Resolved
		case "tesseract":
			tools.Tesseract = s.Resolved
		}
	}
	return tools
}
