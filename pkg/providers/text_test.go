package providers

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodewee/ruling-to-text/pkg/config"
	"github.com/nodewee/ruling-to-text/pkg/logger"
	"github.com/nodewee/ruling-to-text/pkg/types"
	"github.com/nodewee/ruling-to-text/pkg/utils"
)

type stubEngine struct {
	text        string
	diagnostics []string
	err         error
	available   bool
	calls       int
}

func (s *stubEngine) Name() string      { return "stub" }
func (s *stubEngine) IsAvailable() bool { return s.available }
func (s *stubEngine) ExtractText(ctx context.Context, pdfPath string) (string, []string, error) {
	s.calls++
	return s.text, s.diagnostics, s.err
}

var rec = types.CaseRecord{ID: "c1", CaseNumber: "令和3年(あ)第100号", Year: 2021, Month: 4, Day: 1}

func TestTextLayerIsVerbatim(t *testing.T) {
	text := "主文\n\n本件上告を棄却する。\n- 1 -\n"
	engine := &stubEngine{text: text, available: true, diagnostics: []string{"Syntax Warning: bad font"}}
	ex := NewTextLayerExtractorWithEngine(engine, false, logger.NewNop())

	res, err := ex.Extract(context.Background(), rec, "source.pdf")
	require.NoError(t, err)
	assert.Equal(t, text, res.Text)
	assert.Equal(t, "stub", res.ExtractorUsed)
	assert.Equal(t, []string{"Syntax Warning: bad font"}, res.Warnings)
	assert.False(t, res.Partial())
	assert.Equal(t, 1, engine.calls)
	assert.Equal(t, "text-layer", ex.Name())
}

func TestTextLayerStripsPageNumbers(t *testing.T) {
	engine := &stubEngine{text: "主文\n- 1 -\n12\n   \n理由\n\n第1 事案\n", available: true}
	ex := NewTextLayerExtractorWithEngine(engine, true, logger.NewNop())

	res, err := ex.Extract(context.Background(), rec, "source.pdf")
	require.NoError(t, err)
	assert.Equal(t, "主文\n理由\n\n第1 事案\n", res.Text)
}

func TestStripPageNumbersKeepsNumberedSentences(t *testing.T) {
	in := "3 被告人は\n-3-\n平成10年\n 42 \n"
	assert.Equal(t, "3 被告人は\n平成10年\n", StripPageNumbers(in))

	trailing := "主文 \n12 控訴を棄却する。\n - 12 - \n"
	assert.Equal(t, "主文 \n12 控訴を棄却する。\n", StripPageNumbers(trailing))
}

func TestTextLayerEngineUnavailable(t *testing.T) {
	ex := NewTextLayerExtractorWithEngine(&stubEngine{}, false, logger.NewNop())

	_, err := ex.Extract(context.Background(), rec, "source.pdf")
	require.Error(t, err)
	assert.Equal(t, utils.ErrorTypeUnsupported, utils.GetErrorType(err))
}

func TestTextLayerPropagatesEngineError(t *testing.T) {
	boom := utils.NewExtractError("pdftotext failed", errors.New("exit status 1"))
	ex := NewTextLayerExtractorWithEngine(&stubEngine{available: true, err: boom}, false, logger.NewNop())

	_, err := ex.Extract(context.Background(), rec, "source.pdf")
	assert.ErrorIs(t, err, boom)
}

func TestTextLayerCancelled(t *testing.T) {
	engine := &stubEngine{available: true}
	ex := NewTextLayerExtractorWithEngine(engine, false, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ex.Extract(ctx, rec, "source.pdf")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, engine.calls)
}

func TestNewTextLayerExtractorSelectsEngine(t *testing.T) {
	cfg := config.Default()
	ex, err := NewTextLayerExtractor(cfg, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "pdftotext", ex.engine.Name())

	cfg.TextLayer.Engine = types.TextLayerBuiltin
	ex, err = NewTextLayerExtractor(cfg, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "builtin", ex.engine.Name())

	cfg.TextLayer.Engine = "mutool"
	_, err = NewTextLayerExtractor(cfg, logger.NewNop())
	assert.Error(t, err)
}

func TestPdftotextArguments(t *testing.T) {
	var gotName string
	var gotArgs []string
	run := func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		gotName, gotArgs = name, args
		return []byte("本文\n"), []byte("Syntax Error (12): Illegal character\n\n"), nil
	}
	engine := NewPdftotextEngine(config.Default(), logger.NewNop()).WithRunner(run)

	text, diagnostics, err := engine.ExtractText(context.Background(), "/cache/c1/source.pdf")
	require.NoError(t, err)
	assert.Equal(t, "本文\n", text)
	assert.Equal(t, []string{"Syntax Error (12): Illegal character"}, diagnostics)
	assert.Equal(t, "pdftotext", gotName)
	assert.Equal(t, []string{"-raw", "-enc", "UTF-8", "/cache/c1/source.pdf", "-"}, gotArgs)
}

func TestPdftotextFailures(t *testing.T) {
	notFound := func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		return nil, nil, &exec.Error{Name: name, Err: exec.ErrNotFound}
	}
	_, _, err := NewPdftotextEngine(config.Default(), logger.NewNop()).WithRunner(notFound).
		ExtractText(context.Background(), "a.pdf")
	require.Error(t, err)
	assert.Equal(t, utils.ErrorTypeUnsupported, utils.GetErrorType(err))

	broken := func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		return nil, []byte("Syntax Error: Couldn't read xref table\n"), errors.New("exit status 1")
	}
	_, diagnostics, err := NewPdftotextEngine(config.Default(), logger.NewNop()).WithRunner(broken).
		ExtractText(context.Background(), "a.pdf")
	require.Error(t, err)
	assert.Equal(t, utils.ErrorTypeOCR, utils.GetErrorType(err))
	assert.Contains(t, err.Error(), "Couldn't read xref table")
	assert.Len(t, diagnostics, 1)
}

func TestBuiltinEngineRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf at all"), 0o644))

	_, _, err := NewBuiltinEngine(logger.NewNop()).ExtractText(context.Background(), path)
	assert.Error(t, err)
}
