// Package llm provides the Gemini chat client used for SQL generation
// and the credential handling around it.
//
// Errors are classified into two sentinel kinds: ErrAuthentication
// (the credential was rejected, the user must supply a new one) and
// ErrGeneration (anything else — rate limits, timeouts, malformed
// responses — safe to retry with the same question). Neither is
// retried here; retry policy belongs to the caller.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/queryloom/queryloom/internal/log"
)

var (
	// ErrInvalidKeyFormat indicates the credential fails the format
	// pre-check and was rejected before any network call.
	ErrInvalidKeyFormat = errors.New("invalid API key format")

	// ErrAuthentication indicates the provider rejected the credential.
	ErrAuthentication = errors.New("authentication failed")

	// ErrGeneration indicates a transient completion failure.
	ErrGeneration = errors.New("generation failed")
)

// apiKeyPrefix is the expected prefix of Gemini API keys. Checking it
// up front saves a network round trip on obviously malformed input.
const apiKeyPrefix = "AIza"

// ValidateAPIKey performs a format pre-check on a credential.
func ValidateAPIKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key is empty", ErrInvalidKeyFormat)
	}
	if !strings.HasPrefix(key, apiKeyPrefix) {
		return fmt.Errorf("%w: expected %q prefix", ErrInvalidKeyFormat, apiKeyPrefix)
	}
	return nil
}

// Client is a Gemini chat client. Stateless per call and safe for
// concurrent use.
type Client struct {
	client      *genai.Client
	model       string
	temperature float32
	logger      log.Logger
}

// NewClient creates a chat client for the given credential and model.
// The key must already have passed ValidateAPIKey.
func NewClient(ctx context.Context, apiKey, model string, temperature float32, logger log.Logger) (*Client, error) {
	if err := ValidateAPIKey(apiKey); err != nil {
		return nil, err
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if logger == nil {
		logger = log.NewNop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating genai client: %v", ErrGeneration, err)
	}

	return &Client{
		client:      client,
		model:       model,
		temperature: temperature,
		logger:      logger,
	}, nil
}

// Complete sends a prompt with a system instruction and returns the
// model's text response. The context deadline bounds the call.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	temp := c.temperature
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
			Temperature:       &temp,
		})
	if err != nil {
		return "", classify(err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty model response", ErrGeneration)
	}

	c.logger.Debug("chat completion", "model", c.model, "response_length", len(text))
	return text, nil
}

// classify maps a provider error onto the package's sentinel kinds.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 401, 403:
			return fmt.Errorf("%w: %s", ErrAuthentication, apiErr.Message)
		}
	}
	// The API reports malformed keys as 400 INVALID_ARGUMENT with this
	// message, which is still a credential problem for the user.
	if strings.Contains(err.Error(), "API key not valid") {
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	return fmt.Errorf("%w: %v", ErrGeneration, err)
}
