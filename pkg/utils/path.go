package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nodewee/ruling-to-text/pkg/constants"
)

// PathUtils provides cross-platform path utilities
type PathUtils struct{}

// NewPathUtils creates a new PathUtils instance
func NewPathUtils() *PathUtils {
	return &PathUtils{}
}

// NormalizePath normalizes a path for the current platform
func (p *PathUtils) NormalizePath(path string) string {
	cleaned := filepath.Clean(path)

	// On Windows, ensure proper drive letter formatting
	if constants.IsWindows() && len(cleaned) >= 2 && cleaned[1] == ':' {
		if cleaned[0] >= 'a' && cleaned[0] <= 'z' {
			cleaned = strings.ToUpper(string(cleaned[0])) + cleaned[1:]
		}
	}

	return cleaned
}

// EnsureDir creates a directory if it doesn't exist
func (p *PathUtils) EnsureDir(dirPath string) error {
	if dirPath == "" {
		return fmt.Errorf("directory path cannot be empty")
	}
	if err := os.MkdirAll(p.NormalizePath(dirPath), constants.DefaultDirPermission); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dirPath, err)
	}
	return nil
}

// ExpandPath expands environment variables and user home directory in path
func (p *PathUtils) ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	expanded := os.ExpandEnv(path)

	if strings.HasPrefix(expanded, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}

		if expanded == "~" {
			expanded = homeDir
		} else if strings.HasPrefix(expanded, "~/") {
			expanded = filepath.Join(homeDir, expanded[2:])
		}
	}

	return p.NormalizePath(expanded), nil
}

// SanitizeFileName makes filename safe to use as a single path element.
// Only separators and NUL are replaced on Unix so that case numbers such as
// 令和3年(あ)第100号 survive unchanged.
func (p *PathUtils) SanitizeFileName(filename string) string {
	sanitized := filename

	if constants.IsWindows() {
		invalidChars := []string{"<", ">", ":", "\"", "/", "\\", "|", "?", "*"}
		for _, char := range invalidChars {
			sanitized = strings.ReplaceAll(sanitized, char, "_")
		}
		sanitized = strings.TrimRight(sanitized, ". ")
	} else {
		sanitized = strings.ReplaceAll(sanitized, "/", "_")
		sanitized = strings.ReplaceAll(sanitized, "\x00", "_")
	}

	if strings.TrimSpace(sanitized) == "" || sanitized == "." || sanitized == ".." {
		sanitized = "unnamed_file"
	}

	return sanitized
}

// Global instance for easy access
var DefaultPathUtils = NewPathUtils()

func NormalizePath(path string) string {
	return DefaultPathUtils.NormalizePath(path)
}

func EnsureDir(dirPath string) error {
	return DefaultPathUtils.EnsureDir(dirPath)
}

func ExpandPath(path string) (string, error) {
	return DefaultPathUtils.ExpandPath(path)
}

func SanitizeFileName(filename string) string {
	return DefaultPathUtils.SanitizeFileName(filename)
}
