package oracle

import (
	"context"
	"os"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"github.com/pkg/errors"

	"github.com/skillbench/skillbench/pkg/logger"
)

// Config holds the connection settings for an OpenAI-compatible endpoint.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string

	// RetryAttempts is the number of attempts for retryable failures.
	// Zero means DefaultRetryAttempts.
	RetryAttempts uint

	// RetryDelay is the initial backoff delay. Zero means DefaultRetryDelay.
	RetryDelay time.Duration
}

const (
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 2 * time.Second
)

// ConfigFromEnv reads the endpoint configuration from the MODEL_BASE_URL,
// MODEL_KEY and MODEL_NAME environment variables.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		BaseURL: os.Getenv("MODEL_BASE_URL"),
		APIKey:  os.Getenv("MODEL_KEY"),
		Model:   os.Getenv("MODEL_NAME"),
	}
	if cfg.BaseURL == "" || cfg.APIKey == "" {
		return Config{}, errors.New("environment variables MODEL_BASE_URL and MODEL_KEY must be set")
	}
	return cfg, nil
}

// OpenAIClient is the production Client backed by an OpenAI-compatible chat
// completions endpoint.
type OpenAIClient struct {
	client *openai.Client
	model  shared.ChatModel

	attempts uint
	delay    time.Duration
}

var _ Client = &OpenAIClient{}

// NewOpenAIClient creates a client for the given endpoint configuration.
func NewOpenAIClient(cfg Config) (*OpenAIClient, error) {
	if cfg.BaseURL == "" || cfg.APIKey == "" {
		return nil, errors.New("both base URL and API key must be provided")
	}

	model := shared.ChatModel(cfg.Model)
	if cfg.Model == "" {
		model = openai.ChatModelGPT4
	}

	client := openai.NewClient(
		option.WithBaseURL(cfg.BaseURL),
		option.WithAPIKey(cfg.APIKey),
	)

	attempts := cfg.RetryAttempts
	if attempts == 0 {
		attempts = DefaultRetryAttempts
	}
	delay := cfg.RetryDelay
	if delay == 0 {
		delay = DefaultRetryDelay
	}

	return &OpenAIClient{
		client:   &client,
		model:    model,
		attempts: attempts,
		delay:    delay,
	}, nil
}

// Generate runs one chat completion under the request's timeout, retrying
// rate-limit and availability failures with backoff.
func (c *OpenAIClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	start := time.Now()

	var text string
	err := retry.Do(
		func() error {
			out, err := c.complete(ctx, req)
			if err != nil {
				return err
			}
			text = out
			return nil
		},
		retry.RetryIf(IsRetryable),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithField("attempt", n+1).WithError(err).Warn("retrying oracle call")
		}),
	)
	if err != nil {
		return nil, c.classify(ctx, err)
	}

	return &GenerateResponse{
		Text:     text,
		Duration: time.Since(start),
	}, nil
}

func (c *OpenAIClient) complete(ctx context.Context, req GenerateRequest) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if req.SystemInstructions != "" {
		messages = append(messages, openai.SystemMessage(req.SystemInstructions))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", c.classify(ctx, err)
	}

	if len(completion.Choices) == 0 {
		return "", NewError(CodeOutputParseError, "no completion choices returned")
	}

	return completion.Choices[0].Message.Content, nil
}

// classify maps transport and API failures onto the oracle error taxonomy.
func (c *OpenAIClient) classify(ctx context.Context, err error) error {
	var oe *Error
	if errors.As(err, &oe) {
		return oe
	}

	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return WrapError(CodeTimeout, err, "generation timed out")
	}

	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == 429:
			return WrapError(CodeRateLimited, err, "rate limited by model endpoint")
		case apierr.StatusCode >= 500:
			return WrapError(CodeModelError, err, "model endpoint error")
		default:
			return WrapError(CodeExecutionError, err, "completion request rejected")
		}
	}

	return WrapError(CodeNotAvailable, err, "model endpoint unavailable")
}
