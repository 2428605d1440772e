package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/nodewee/ruling-to-text/pkg/utils"
)

// FileSource copies PDFs that are already on local disk
type FileSource struct{}

// NewFileSource creates a local file source
func NewFileSource() *FileSource {
	return &FileSource{}
}

// Name returns the name of the source
func (s *FileSource) Name() string {
	return "file"
}

// Download copies the file at location into w
func (s *FileSource) Download(ctx context.Context, location string, w io.Writer) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	path, err := utils.ExpandPath(location)
	if err != nil {
		return 0, utils.NewFetchError(fmt.Sprintf("invalid path %s", location), err, false)
	}
	f, err := os.Open(path)
	if err != nil {
		// a missing or unreadable file will not appear by retrying
		transient := !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, fs.ErrPermission)
		return 0, utils.NewFetchError(fmt.Sprintf("cannot open %s", path), err, transient)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, utils.NewFetchError(fmt.Sprintf("cannot stat %s", path), err, false)
	}
	if info.IsDir() {
		return 0, utils.NewFetchError(fmt.Sprintf("%s is a directory", path), nil, false)
	}

	n, err := io.Copy(w, f)
	if err != nil {
		return n, utils.NewFetchError(fmt.Sprintf("reading %s failed", path), err, true)
	}
	return n, nil
}
