package gemini

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/datemate/taskpoll/internal/config"
	"github.com/datemate/taskpoll/internal/generation"
	"github.com/datemate/taskpoll/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	configs []*genai.GenerateContentConfig
	results []fakeResult
}

type fakeResult struct {
	resp *genai.GenerateContentResponse
	err  error
}

func (f *fakeModels) GenerateContent(
	_ context.Context,
	_ string,
	contents []*genai.Content,
	cfg *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	for _, c := range contents {
		for _, p := range c.Parts {
			f.prompts = append(f.prompts, p.Text)
		}
	}
	f.configs = append(f.configs, cfg)
	if len(f.results) == 0 {
		return nil, errors.New("no scripted response")
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r.resp, r.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func testGenerator(models *fakeModels, maxRetries int) *Generator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newGenerator(logger, models, config.LLMConfig{
		ModelName:  "gemini-test",
		MaxRetries: maxRetries,
		RetryDelay: time.Millisecond,
	})
}

func TestNewGeneratorValidatesConfig(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewGenerator(context.Background(), nil, config.LLMConfig{GeminiAPIKey: "k", ModelName: "m"})
	assert.Error(t, err)

	_, err = NewGenerator(context.Background(), logger, config.LLMConfig{ModelName: "m"})
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	_, err = NewGenerator(context.Background(), logger, config.LLMConfig{GeminiAPIKey: "k"})
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}

func TestGenerateItinerary(t *testing.T) {
	models := &fakeModels{results: []fakeResult{{
		resp: textResponse("```json\n[{\"title\":\"Palace night walk\",\"description\":\"d\",\"suggested_places\":[\"Gyeongbokgung\"],\"tips\":[\"Wear hanbok\"],\"estimated_total_cost\":20000}]\n```"),
	}}}
	g := testGenerator(models, 0)

	items, err := g.GenerateItinerary(context.Background(), task.ItineraryPayload{
		Emotion:  "romantic",
		Location: "Jongno-gu",
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Palace night walk", items[0].Title)
	assert.Equal(t, 20000, items[0].EstimatedTotalCost)

	require.Len(t, models.prompts, 1)
	assert.Contains(t, models.prompts[0], "Area: Jongno-gu")
	require.NotNil(t, models.configs[0])
	assert.Equal(t, "application/json", models.configs[0].ResponseMIMEType)
}

func TestGenerateItineraryInvalidJSON(t *testing.T) {
	models := &fakeModels{results: []fakeResult{{resp: textResponse(`{"title":"only one"}`)}}}
	g := testGenerator(models, 3)

	_, err := g.GenerateItinerary(context.Background(), task.ItineraryPayload{Location: "Busan"})
	assert.ErrorIs(t, err, generation.ErrInvalidResponse)
	assert.Equal(t, 1, models.calls, "malformed output is not retried")
}

func TestGenerateReportSummary(t *testing.T) {
	models := &fakeModels{results: []fakeResult{{resp: textResponse("  A lovely month! 🎉\n")}}}
	g := testGenerator(models, 0)

	summary, err := g.GenerateReportSummary(context.Background(), task.ReportPayload{Month: "2026-04"})
	require.NoError(t, err)
	assert.Equal(t, "A lovely month! 🎉", summary)
	assert.Nil(t, models.configs[0])
}

func TestResponseErrors(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		want error
	}{
		{name: "nil response", resp: nil, want: generation.ErrInvalidResponse},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}, want: generation.ErrInvalidResponse},
		{
			name: "safety finish",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				FinishReason: genai.FinishReasonSafety,
			}}},
			want: generation.ErrContentBlocked,
		},
		{
			name: "prompt blocked",
			resp: &genai.GenerateContentResponse{
				PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
			},
			want: generation.ErrContentBlocked,
		},
		{
			name: "empty content",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}},
			want: generation.ErrInvalidResponse,
		},
		{name: "blank text", resp: textResponse(""), want: generation.ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			models := &fakeModels{results: []fakeResult{{resp: tt.resp}}}
			g := testGenerator(models, 2)

			_, err := g.GenerateReportSummary(context.Background(), task.ReportPayload{Month: "2026-04"})
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 1, models.calls)
		})
	}
}

func TestRetriesTransientErrors(t *testing.T) {
	models := &fakeModels{results: []fakeResult{
		{err: genai.APIError{Code: 503, Message: "overloaded"}},
		{err: genai.APIError{Code: 429, Message: "rate limited"}},
		{resp: textResponse("Great month.")},
	}}
	g := testGenerator(models, 2)

	summary, err := g.GenerateReportSummary(context.Background(), task.ReportPayload{Month: "2026-04"})
	require.NoError(t, err)
	assert.Equal(t, "Great month.", summary)
	assert.Equal(t, 3, models.calls)
}

func TestGivesUpAfterMaxRetries(t *testing.T) {
	models := &fakeModels{results: []fakeResult{
		{err: genai.APIError{Code: 500}},
		{err: genai.APIError{Code: 500}},
	}}
	g := testGenerator(models, 1)

	_, err := g.GenerateReportSummary(context.Background(), task.ReportPayload{Month: "2026-04"})
	assert.ErrorIs(t, err, generation.ErrTransientFailure)
	assert.Equal(t, 2, models.calls)
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	models := &fakeModels{results: []fakeResult{{err: genai.APIError{Code: 400, Message: "bad request"}}}}
	g := testGenerator(models, 3)

	_, err := g.GenerateReportSummary(context.Background(), task.ReportPayload{Month: "2026-04"})
	assert.ErrorIs(t, err, generation.ErrGenerationFailed)
	assert.NotErrorIs(t, err, generation.ErrTransientFailure)
	assert.Equal(t, 1, models.calls)
}

func TestRetryStopsOnCancel(t *testing.T) {
	models := &fakeModels{results: []fakeResult{{err: genai.APIError{Code: 503}}}}
	g := testGenerator(models, 5)
	g.retryDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := g.GenerateReportSummary(ctx, task.ReportPayload{Month: "2026-04"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, models.calls)
}

func TestBackoffGrowsWithJitter(t *testing.T) {
	g := testGenerator(&fakeModels{}, 0)
	g.retryDelay = time.Second

	for attempt := 0; attempt < 4; attempt++ {
		d := g.backoff(attempt)
		ceiling := time.Second << attempt
		assert.GreaterOrEqual(t, d, ceiling/2)
		assert.Less(t, d, ceiling)
	}
}

func TestStaticGenerator(t *testing.T) {
	g := StaticGenerator{}

	items, err := g.GenerateItinerary(context.Background(), task.ItineraryPayload{
		Emotion:     "cozy",
		Preferences: "cafe, bookstore",
		Location:    "Hongdae",
	})
	require.NoError(t, err)
	require.Len(t, items, 3)
	for _, it := range items {
		assert.NotEmpty(t, it.Title)
		assert.LessOrEqual(t, len([]rune(it.Title)), generation.MaxTitleRunes)
		assert.Contains(t, it.Description, "Hongdae")
	}
	assert.Contains(t, items[0].SuggestedPlaces, "cafe spot near Hongdae")

	summary, err := g.GenerateReportSummary(context.Background(), task.ReportPayload{
		Month:      "2026-05",
		VisitCount: 4,
		TopTags:    []string{"walk"},
		ChallengeProgress: []task.ChallengeProgress{
			{Title: "a", Completed: true},
			{Title: "b"},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, summary, "**4**")
	assert.Contains(t, summary, "**walk**")
	assert.Contains(t, summary, "1 of 2 challenges")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.GenerateItinerary(ctx, task.ItineraryPayload{Location: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}
