package engines

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodewee/ruling-to-text/pkg/config"
	"github.com/nodewee/ruling-to-text/pkg/logger"
	"github.com/nodewee/ruling-to-text/pkg/utils"
)

func TestTesseractArguments(t *testing.T) {
	var gotArgs []string
	run := func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		gotArgs = args
		return []byte("判決\n"), nil, nil
	}
	e := NewTesseractEngine(config.Default(), logger.NewNop()).WithRunner(run)

	text, err := e.ExtractTextFromImage(context.Background(), "/pages/page-0001.jpg")
	require.NoError(t, err)
	assert.Equal(t, "判決\n", text)
	assert.Equal(t, []string{"/pages/page-0001.jpg", "stdout", "-l", "jpn", "--dpi", "300"}, gotArgs)
}

func TestTesseractFailure(t *testing.T) {
	run := func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		return nil, []byte("Tesseract Open Source OCR Engine\nError opening data file jpn.traineddata\n"), errors.New("exit status 1")
	}
	e := NewTesseractEngine(config.Default(), logger.NewNop()).WithRunner(run)

	_, err := e.ExtractTextFromImage(context.Background(), "page.jpg")
	require.Error(t, err)
	assert.Equal(t, utils.ErrorTypeOCR, utils.GetErrorType(err))
	assert.Contains(t, err.Error(), "jpn.traineddata")
}

func TestGosseractStubWithoutBuildTag(t *testing.T) {
	if GosseractCompiled {
		t.Skip("binary links libtesseract")
	}
	e := NewGosseractEngine(config.Default(), logger.NewNop())
	assert.False(t, e.IsAvailable())
	assert.Equal(t, "gosseract", e.Name())
	_, err := e.ExtractTextFromImage(context.Background(), "page.jpg")
	assert.Error(t, err)
}

func TestOpenAIEngine(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"主文\n本件上告を棄却する。"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.OpenAI.APIKey = "test-key"
	cfg.OpenAI.BaseURL = srv.URL + "/v1"
	e := NewOpenAIEngine(cfg, logger.NewNop())
	require.True(t, e.IsAvailable())

	img := filepath.Join(t.TempDir(), "page-0001.png")
	require.NoError(t, os.WriteFile(img, []byte("\x89PNG fake"), 0o644))

	text, err := e.ExtractTextFromImage(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, "主文\n本件上告を棄却する。", text)

	assert.Equal(t, "gpt-4o-mini", gotBody["model"])
	raw, _ := json.Marshal(gotBody["messages"])
	assert.True(t, strings.Contains(string(raw), "data:image/png;base64,"))
}

func TestOpenAIEngineWithoutKey(t *testing.T) {
	e := NewOpenAIEngine(config.Default(), logger.NewNop())
	assert.False(t, e.IsAvailable())
}

func TestOpenAIEngineServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.OpenAI.APIKey = "test-key"
	cfg.OpenAI.BaseURL = srv.URL + "/v1"
	img := filepath.Join(t.TempDir(), "page-0001.jpg")
	require.NoError(t, os.WriteFile(img, []byte{0xff, 0xd8, 0xff}, 0o644))

	_, err := NewOpenAIEngine(cfg, logger.NewNop()).ExtractTextFromImage(context.Background(), img)
	require.Error(t, err)
	assert.Equal(t, utils.ErrorTypeOCR, utils.GetErrorType(err))
}
