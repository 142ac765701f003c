package clients

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	openAIRequestTimeout = 15 * time.Second
)

type OpenAIClient struct {
	Client *openai.Client
	model  string
}

// NewOpenAIClient builds a chat client. baseURL is optional and only set for
// proxies and tests.
func NewOpenAIClient(apiKey, model, baseURL string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("[OpenAIClient] missing OPENAI_API_KEY")
	}
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(openAIRequestTimeout),
		option.WithMaxRetries(1),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	slog.Info("[OpenAIClient] OpenAI client initialized",
		slog.String("model", model),
		slog.Duration("timeout", openAIRequestTimeout))
	return &OpenAIClient{Client: openai.NewClient(opts...), model: model}, nil
}

// Complete runs a single system+user exchange and returns the trimmed reply.
func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.Client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		}),
		Model:       openai.F(openai.ChatModel(c.model)),
		Temperature: openai.F(0.0),
		MaxTokens:   openai.F(int64(16)),
	})
	if err != nil {
		return "", &UpstreamError{Op: "openai chat completion", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &UpstreamError{Op: "openai chat completion", Err: fmt.Errorf("no choices returned")}
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
