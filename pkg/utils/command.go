package utils

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os/exec"
	"strings"
)

// CommandRunner runs an external tool and returns what it wrote to stdout and stderr
type CommandRunner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// RunCommand is the CommandRunner backed by os/exec. The process is killed
// when ctx is done.
func RunCommand(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return stdout.Bytes(), stderr.Bytes(), err
}

// IsCommandNotFound reports whether err means the executable does not exist
func IsCommandNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}

// StderrLines splits tool diagnostics into trimmed non-empty lines
func StderrLines(stderr []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(stderr), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
