package output

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodewee/ruling-to-text/pkg/logger"
	"github.com/nodewee/ruling-to-text/pkg/types"
	"github.com/nodewee/ruling-to-text/pkg/utils"
)

var rec = types.CaseRecord{ID: "c1", CaseNumber: "令和3年(あ)第100号", Year: 2021, Month: 4, Day: 1}

func TestFileName(t *testing.T) {
	assert.Equal(t, "令和3年(あ)第100号_2021_4_1.txt", FileName(rec))

	slashed := rec
	slashed.CaseNumber = "平成30(ワ)1/2"
	assert.Equal(t, "平成30(ワ)1_2_2021_4_1.txt", FileName(slashed))
}

func TestWriteCreatesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w := NewWriter(dir, logger.NewNop())
	assert.False(t, w.Exists(rec))

	status, path, err := w.Write(rec, "主文\n", false)
	require.NoError(t, err)
	assert.Equal(t, types.StatusWritten, status)
	assert.Equal(t, filepath.Join(dir, "令和3年(あ)第100号_2021_4_1.txt"), path)
	assert.True(t, w.Exists(rec))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "主文\n", string(got))

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestWriteSkipsExistingUnlessForced(t *testing.T) {
	w := NewWriter(t.TempDir(), logger.NewNop())
	require.NoError(t, os.WriteFile(w.Path(rec), []byte("old"), 0o644))

	status, _, err := w.Write(rec, "new", false)
	require.NoError(t, err)
	assert.Equal(t, types.StatusSkipped, status)
	got, _ := os.ReadFile(w.Path(rec))
	assert.Equal(t, "old", string(got))

	status, _, err = w.Write(rec, "new", true)
	require.NoError(t, err)
	assert.Equal(t, types.StatusWritten, status)
	got, _ = os.ReadFile(w.Path(rec))
	assert.Equal(t, "new", string(got))
}

func TestWriteIsIdempotent(t *testing.T) {
	w := NewWriter(t.TempDir(), logger.NewNop())

	_, _, err := w.Write(rec, "主文\n", true)
	require.NoError(t, err)
	first, _ := os.ReadFile(w.Path(rec))
	_, _, err = w.Write(rec, "主文\n", true)
	require.NoError(t, err)
	second, _ := os.ReadFile(w.Path(rec))
	assert.Equal(t, first, second)
}

func TestWriteErrorOnReadOnlyDir(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	status, _, err := NewWriter(dir, logger.NewNop()).Write(rec, "x", false)
	require.Error(t, err)
	assert.Equal(t, types.StatusFailed, status)
	assert.Equal(t, utils.ErrorTypePermission, utils.GetErrorType(err))
}
