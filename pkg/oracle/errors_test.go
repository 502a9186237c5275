package oracle

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	tt := map[string]struct {
		err      error
		expected ErrorCode
	}{
		"typed error": {
			err:      NewError(CodeTimeout, "generation timed out"),
			expected: CodeTimeout,
		},
		"wrapped typed error": {
			err:      errors.Wrap(WrapError(CodeRateLimited, errors.New("429"), "rate limited"), "oracle call failed"),
			expected: CodeRateLimited,
		},
		"untyped error": {
			err:      errors.New("connection refused"),
			expected: CodeNotAvailable,
		},
	}

	for tn, tc := range tt {
		t.Run(tn, func(t *testing.T) {
			assert.Equal(t, tc.expected, CodeOf(tc.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewError(CodeRateLimited, "429")))
	assert.True(t, IsRetryable(NewError(CodeNotAvailable, "connection refused")))
	assert.True(t, IsRetryable(errors.New("untyped failures count as unavailable")))

	assert.False(t, IsRetryable(NewError(CodeTimeout, "deadline exceeded")))
	assert.False(t, IsRetryable(NewError(CodeModelError, "500")))
	assert.False(t, IsRetryable(NewError(CodeExecutionError, "bad request")))
	assert.False(t, IsRetryable(NewError(CodeOutputParseError, "no choices")))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := WrapError(CodeNotAvailable, cause, "model endpoint unavailable")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "NOT_AVAILABLE")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("MODEL_BASE_URL", "http://localhost:8080/v1")
	t.Setenv("MODEL_KEY", "test-key")
	t.Setenv("MODEL_NAME", "test-model")

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/v1", cfg.BaseURL)
	assert.Equal(t, "test-key", cfg.APIKey)
	assert.Equal(t, "test-model", cfg.Model)

	t.Setenv("MODEL_KEY", "")
	_, err = ConfigFromEnv()
	assert.Error(t, err)
}

func TestNewOpenAIClientValidation(t *testing.T) {
	_, err := NewOpenAIClient(Config{})
	assert.Error(t, err)

	client, err := NewOpenAIClient(Config{
		BaseURL: "http://localhost:8080/v1",
		APIKey:  "test-key",
	})
	require.NoError(t, err)
	assert.EqualValues(t, DefaultRetryAttempts, client.attempts)
	assert.Equal(t, DefaultRetryDelay, client.delay)
}
