package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tatianab/transit-ace/internal/catalog"
	"github.com/tatianab/transit-ace/internal/models"
	"go.uber.org/zap"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *mockCompleter) Close() error {
	return m.Called().Error(0)
}

const storyYAML = `story:
  title: Strike day
  description: Everything is closed.
  initial_budget: 30
  initial_morale: 60
scenarios:
  - id: platform
    title: Empty platform
    correct_option_id: walk
    options:
      - id: walk
        text: Walk
        morale_impact: -5
      - id: cab
        text: Taxi
        budget_impact: -25
`

func TestGenerateParsesFencedYAML(t *testing.T) {
	c := new(mockCompleter)
	c.On("Complete", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "a day of strikes") &&
			strings.Contains(p, "French") &&
			strings.Contains(p, "RULES-DATA")
	})).Return("```yaml\n"+storyYAML+"```", nil).Once()

	e := newEngine(c, Config{Retries: 2}, zap.NewNop())
	gs, err := e.Generate(context.Background(), "RULES-DATA", models.LanguageFrench, " a day of strikes ")
	require.NoError(t, err)

	assert.Equal(t, "Strike day", gs.Story.Title)
	assert.Equal(t, 30.0, gs.Story.InitialBudget)
	assert.False(t, gs.Story.CreatedAt.IsZero())
	require.Len(t, gs.Scenarios, 1)
	assert.Equal(t, -25.0, gs.Scenarios[0].Options[1].BudgetImpact)
	c.AssertExpectations(t)
}

func TestGenerateRetriesThenSucceeds(t *testing.T) {
	c := new(mockCompleter)
	c.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("503")).Once()
	c.On("Complete", mock.Anything, mock.Anything).Return("not: [valid", nil).Once()
	c.On("Complete", mock.Anything, mock.Anything).Return(storyYAML, nil).Once()

	e := newEngine(c, Config{Retries: 2}, nil)
	gs, err := e.Generate(context.Background(), catalog.Rules(), models.LanguageEnglish, "strike")
	require.NoError(t, err)
	assert.Equal(t, "Strike day", gs.Story.Title)
	c.AssertNumberOfCalls(t, "Complete", 3)
}

func TestGenerateReportsMalformed(t *testing.T) {
	c := new(mockCompleter)
	c.On("Complete", mock.Anything, mock.Anything).Return("story:\n  title: No scenarios\nscenarios: []\n", nil)

	e := newEngine(c, Config{Retries: 1}, nil)
	gs, err := e.Generate(context.Background(), "", models.LanguageEnglish, "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.ErrorIs(t, err, catalog.ErrInvalid)
	assert.Empty(t, gs.Scenarios)

	var gerr *GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, 2, gerr.Attempts)
	c.AssertNumberOfCalls(t, "Complete", 2)
}

func TestGenerateReportsUnavailable(t *testing.T) {
	c := new(mockCompleter)
	c.On("Complete", mock.Anything, mock.Anything).Return("   ", nil)

	e := newEngine(c, Config{}, nil)
	_, err := e.Generate(context.Background(), "", models.LanguageEnglish, "x")
	assert.ErrorIs(t, err, ErrUnavailable)
	c.AssertNumberOfCalls(t, "Complete", 1)
}

func TestGenerateStopsWhenCancelled(t *testing.T) {
	c := new(mockCompleter)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newEngine(c, Config{Retries: 3}, nil)
	_, err := e.Generate(ctx, "", models.LanguageEnglish, "x")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
	c.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestAttemptTimeout(t *testing.T) {
	c := new(mockCompleter)
	c.On("Complete", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		ctx := args.Get(0).(context.Context)
		_, ok := ctx.Deadline()
		assert.True(t, ok, "attempt should carry a deadline")
	}).Return(storyYAML, nil)

	e := newEngine(c, Config{Timeout: time.Minute}, nil)
	_, err := e.Generate(context.Background(), "", models.LanguageEnglish, "x")
	require.NoError(t, err)
}

func TestCloseClosesCompleter(t *testing.T) {
	c := new(mockCompleter)
	c.On("Close").Return(errors.New("already closed")).Once()
	newEngine(c, Config{}, nil).Close()
	c.AssertExpectations(t)
}

func TestNewEngineValidatesProvider(t *testing.T) {
	_, err := NewEngine(context.Background(), Config{Provider: "llama"}, nil)
	assert.ErrorContains(t, err, "unknown LLM provider")

	_, err = NewEngine(context.Background(), Config{Provider: ProviderOpenAI}, nil)
	assert.ErrorContains(t, err, "OPENAI_API_KEY")

	_, err = NewEngine(context.Background(), Config{Provider: ProviderGemini}, nil)
	assert.ErrorContains(t, err, "GEMINI_API_KEY")
}

func TestOpenAICompleter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tiny-model", req.Model)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   req.Model,
			"choices": []map[string]any{{"index": 0, "message": map[string]string{"role": "assistant", "content": storyYAML}}},
		})
	}))
	defer srv.Close()

	c, err := newOpenAICompleter("test-key", srv.URL, "tiny-model")
	require.NoError(t, err)
	e := newEngine(c, Config{}, nil)
	gs, err := e.Generate(context.Background(), "", models.LanguageEnglish, "strike")
	require.NoError(t, err)
	assert.Equal(t, "Strike day", gs.Story.Title)
}

func TestCleanYAML(t *testing.T) {
	assert.Equal(t, "a: 1", cleanYAML("```yaml\na: 1\n```"))
	assert.Equal(t, "a: 1", cleanYAML("```\na: 1\n```\n"))
	assert.Equal(t, "a: 1", cleanYAML("  a: 1  "))
}
