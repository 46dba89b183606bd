package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/datemate/taskpoll/internal/config"
	"github.com/datemate/taskpoll/internal/generation"
	"github.com/datemate/taskpoll/internal/redact"
	"github.com/datemate/taskpoll/internal/task"
	"google.golang.org/genai"
)

// modelAPI is the slice of genai.Models the generator calls.
type modelAPI interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Generator implements generation.Generator with the Gemini API.
type Generator struct {
	logger     *slog.Logger
	models     modelAPI
	model      string
	maxRetries int
	retryDelay time.Duration
}

var _ generation.Generator = (*Generator)(nil)

// NewGenerator creates a Gemini-backed generator from cfg.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %s",
			generation.ErrInvalidConfig, redact.Error(err))
	}

	return newGenerator(logger, client.Models, cfg), nil
}

func newGenerator(logger *slog.Logger, models modelAPI, cfg config.LLMConfig) *Generator {
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Generator{
		logger:     logger.With("component", "gemini_generator", "model", cfg.ModelName),
		models:     models,
		model:      cfg.ModelName,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// GenerateItinerary implements generation.Generator.
func (g *Generator) GenerateItinerary(ctx context.Context, in task.ItineraryPayload) ([]generation.Itinerary, error) {
	prompt, err := generation.ItineraryPrompt(in)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}

	text, err := g.callWithRetry(ctx, prompt, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, err
	}

	items, err := generation.ParseItineraries(text)
	if err != nil {
		g.logger.WarnContext(ctx, "unparseable itinerary response",
			"error", err,
			"response_length", len(text))
		return nil, err
	}
	g.logger.InfoContext(ctx, "itinerary generated", "suggestions", len(items))
	return items, nil
}

// GenerateReportSummary implements generation.Generator.
func (g *Generator) GenerateReportSummary(ctx context.Context, in task.ReportPayload) (string, error) {
	prompt, err := generation.ReportPrompt(in)
	if err != nil {
		return "", fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}

	text, err := g.callWithRetry(ctx, prompt, nil)
	if err != nil {
		return "", err
	}
	summary := strings.TrimSpace(text)
	if summary == "" {
		return "", fmt.Errorf("%w: empty report summary", generation.ErrInvalidResponse)
	}
	return summary, nil
}

// callWithRetry sends prompt to the model, retrying transient failures with
// exponential backoff and jitter. Safety blocks and malformed responses are
// returned immediately.
func (g *Generator) callWithRetry(
	ctx context.Context,
	prompt string,
	genConfig *genai.GenerateContentConfig,
) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	for attempt := 0; ; attempt++ {
		g.logger.DebugContext(ctx, "calling Gemini API",
			"attempt", attempt+1,
			"max_attempts", g.maxRetries+1)

		text, err := g.call(ctx, prompt, genConfig)
		if err == nil {
			return text, nil
		}

		if !errors.Is(err, generation.ErrTransientFailure) {
			g.logger.WarnContext(ctx, "Gemini API call failed permanently",
				"attempt", attempt+1,
				"error", redact.Error(err))
			return "", err
		}
		if attempt >= g.maxRetries {
			g.logger.WarnContext(ctx, "maximum retry attempts reached",
				"max_retries", g.maxRetries,
				"error", redact.Error(err))
			return "", fmt.Errorf("%w: exceeded maximum retry attempts (%d)", err, g.maxRetries)
		}

		delay := g.backoff(attempt)
		g.logger.InfoContext(ctx, "retrying Gemini API call",
			"attempt", attempt+1,
			"delay", delay,
			"error", redact.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return "", fmt.Errorf("%w: %w", generation.ErrTransientFailure, ctx.Err())
		}
	}
}

// backoff returns retryDelay * 2^attempt scaled by a jitter factor in [0.5, 1).
func (g *Generator) backoff(attempt int) time.Duration {
	base := float64(g.retryDelay) * math.Pow(2, float64(attempt))
	jitter := 0.5 + rand.Float64()*0.5
	return time.Duration(base * jitter)
}

func (g *Generator) call(
	ctx context.Context,
	prompt string,
	genConfig *genai.GenerateContentConfig,
) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), genConfig)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %w", generation.ErrGenerationFailed, ctx.Err())
		}
		if isTransient(err) {
			return "", fmt.Errorf("%w: %s", generation.ErrTransientFailure, redact.Error(err))
		}
		return "", fmt.Errorf("%w: %s", generation.ErrGenerationFailed, redact.Error(err))
	}
	return responseText(resp)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked (%s)", generation.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: content blocked by safety filters", generation.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: response has no text", generation.ErrInvalidResponse)
	}
	return sb.String(), nil
}

// isTransient reports whether err is worth retrying: rate limiting, server
// errors and network timeouts.
func isTransient(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}
