package engines

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nodewee/ruling-to-text/pkg/config"
	"github.com/nodewee/ruling-to-text/pkg/interfaces"
	"github.com/nodewee/ruling-to-text/pkg/logger"
	"github.com/nodewee/ruling-to-text/pkg/types"
	"github.com/nodewee/ruling-to-text/pkg/utils"
)

// transcribePrompt asks for a faithful transcription without commentary
const transcribePrompt = "This image is one page of a Japanese court ruling. " +
	"Transcribe all text on the page exactly as written, in reading order. " +
	"Output only the transcribed text, without commentary or formatting."

// OpenAIEngine transcribes page images with a vision-capable chat model
type OpenAIEngine struct {
	client *openai.Client
	model  string
	apiKey string
	logger *logger.Logger
}

var _ interfaces.OCREngine = (*OpenAIEngine)(nil)

// NewOpenAIEngine creates a new OpenAI vision engine
func NewOpenAIEngine(cfg *config.Config, log *logger.Logger) *OpenAIEngine {
	clientConfig := openai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		clientConfig.BaseURL = cfg.OpenAI.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Fetch.Timeout}

	return &OpenAIEngine{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.OpenAI.Model,
		apiKey: cfg.OpenAI.APIKey,
		logger: log,
	}
}

// Name returns the name of the OCR tool
func (e *OpenAIEngine) Name() string {
	return string(types.OCREngineOpenAI)
}

// GetDescription returns a description of the OCR tool
func (e *OpenAIEngine) GetDescription() string {
	return fmt.Sprintf("OpenAI vision (%s)", e.model)
}

// IsAvailable reports whether an API key is configured
func (e *OpenAIEngine) IsAvailable() bool {
	return e.apiKey != ""
}

// ExtractTextFromImage sends the page as a data URL and returns the reply
func (e *OpenAIEngine) ExtractTextFromImage(ctx context.Context, imagePath string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", utils.WrapError(err, utils.ErrorTypeIO, "failed to read page image")
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", imageMIME(imagePath), base64.StdEncoding.EncodeToString(data))

	e.logger.Debug("Sending %s (%d bytes) to %s", filepath.Base(imagePath), len(data), e.model)
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: transcribePrompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
		Temperature: 0,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", utils.NewOCRError("vision request failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", utils.NewOCRError("vision response has no choices", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

func imageMIME(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	default:
		return "image/jpeg"
	}
}
