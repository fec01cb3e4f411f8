package recommender

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/animuse/animuse/internal/domain/profile"
	"github.com/animuse/animuse/internal/domain/recommend"
	"github.com/animuse/animuse/internal/infra/llm/chatgpt"
	apperrors "github.com/animuse/animuse/pkg/errors"
)

type stubChat struct {
	reply string
	err   error
	calls int
	last  chatgpt.ChatCompletionRequest
}

func (s *stubChat) CreateChatCompletion(_ context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error) {
	s.calls++
	s.last = req
	if s.err != nil {
		return chatgpt.ChatCompletionResponse{}, s.err
	}
	var resp chatgpt.ChatCompletionResponse
	resp.Choices = append(resp.Choices, struct {
		Message      chatgpt.Message `json:"message"`
		FinishReason string          `json:"finish_reason"`
	}{Message: chatgpt.Message{Role: "assistant", Content: s.reply}})
	resp.Usage = chatgpt.Usage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150}
	return resp, nil
}

// charCounter treats every byte as a token.
type charCounter struct{}

func (charCounter) Count(text string) int { return len(text) }

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRequest() recommend.FetchRequest {
	return recommend.FetchRequest{
		Profile: profile.Snapshot{
			UserID:              "user-1",
			Moods:               []string{"Cozy"},
			Genres:              []string{"Slice of Life"},
			OnboardingCompleted: true,
		},
		Activity: []profile.Activity{
			{Title: "Mushishi", Status: profile.StatusCompleted},
			{Title: "Frieren", Status: profile.StatusWatching},
		},
		Count:     3,
		MessageID: "msg-1",
	}
}

func TestFetcher_NoClientReturnsConfigurationWarning(t *testing.T) {
	f := NewFetcher(Config{}, nil, charCounter{}, newTestLogger())

	res, err := f.FetchRecommendations(context.Background(), testRequest())
	require.NoError(t, err)
	require.Equal(t, recommend.ConfigurationWarning, res.Error)
	require.Empty(t, res.Recommendations)
	require.True(t, recommend.IsConfigurationWarning(res.Error))
}

func TestFetcher_ParsesObjectResponse(t *testing.T) {
	chat := &stubChat{reply: "```json\n{\"recommendations\":[{\"title\":\"Natsume's Book of Friends\",\"rating\":8.7},{\"title\":\"Aria\"},\"junk\",{\"title\":\"Yuru Camp\"},{\"title\":\"Extra\"}]}\n```"}
	f := NewFetcher(Config{Model: "gpt-4o-mini", Prompt: "Be gentle."}, chat, charCounter{}, newTestLogger())

	res, err := f.FetchRecommendations(context.Background(), testRequest())
	require.NoError(t, err)
	require.Empty(t, res.Error)
	require.Len(t, res.Recommendations, 3)
	require.Equal(t, "Natsume's Book of Friends", res.Recommendations[0]["title"])

	items := recommend.Normalize(res.Recommendations)
	require.NotNil(t, items[0].Rating)
	require.InDelta(t, 8.7, *items[0].Rating, 1e-9)

	require.Equal(t, 1, chat.calls)
	require.Equal(t, "json_object", chat.last.ResponseFormat.Type)
	require.True(t, strings.HasPrefix(chat.last.Messages[0].Content, "Be gentle."))
	require.Contains(t, chat.last.Messages[1].Content, "Mushishi")
}

func TestFetcher_ParsesBareArray(t *testing.T) {
	chat := &stubChat{reply: `[{"title":"Aria"}]`}
	f := NewFetcher(Config{}, chat, charCounter{}, newTestLogger())

	res, err := f.FetchRecommendations(context.Background(), testRequest())
	require.NoError(t, err)
	require.Len(t, res.Recommendations, 1)
}

func TestFetcher_InvalidResponseFails(t *testing.T) {
	chat := &stubChat{reply: "Sorry, I cannot help with that."}
	f := NewFetcher(Config{}, chat, charCounter{}, newTestLogger())

	_, err := f.FetchRecommendations(context.Background(), testRequest())
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeLLMError))
}

func TestFetcher_BreakerOpensAfterFailures(t *testing.T) {
	chat := &stubChat{err: &chatgpt.StatusError{StatusCode: 503, Body: "unavailable"}}
	f := NewFetcher(Config{BreakerFailures: 2, BreakerTimeout: time.Minute}, chat, charCounter{}, newTestLogger())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.FetchRecommendations(ctx, testRequest())
		require.Error(t, err)
	}
	_, err := f.FetchRecommendations(ctx, testRequest())
	require.Error(t, err)
	require.Equal(t, 2, chat.calls)
	require.Contains(t, err.Error(), "temporarily unavailable")
}

func TestFetcher_ClientErrorsDoNotTripBreaker(t *testing.T) {
	chat := &stubChat{err: &chatgpt.StatusError{StatusCode: 400, Body: "bad request"}}
	f := NewFetcher(Config{BreakerFailures: 1}, chat, charCounter{}, newTestLogger())

	for i := 0; i < 3; i++ {
		_, err := f.FetchRecommendations(context.Background(), testRequest())
		require.Error(t, err)
	}
	require.Equal(t, 3, chat.calls)
}

func TestUserPromptTrimsActivityToBudget(t *testing.T) {
	req := testRequest()
	full, fullTokens := userPrompt(req, charCounter{}, 0)
	require.Contains(t, full, "Frieren")

	trimmed, tokens := userPrompt(req, charCounter{}, fullTokens-1)
	require.Less(t, tokens, fullTokens)
	require.NotContains(t, trimmed, "Frieren")
	require.Contains(t, trimmed, "Mushishi")

	// the profile is kept even when nothing fits
	minimal, _ := userPrompt(req, charCounter{}, 1)
	require.Contains(t, minimal, "Slice of Life")
	require.NotContains(t, minimal, "Mushishi")
}

func TestParseRecommendationsRejectsWrongShape(t *testing.T) {
	_, err := parseRecommendations(`{"items":[]}`)
	require.ErrorIs(t, err, errMalformedResponse)

	_, err = parseRecommendations(`"text"`)
	require.ErrorIs(t, err, errMalformedResponse)

	_, err = parseRecommendations("")
	require.Error(t, err)

	items, err := parseRecommendations(`{"recommendations":[]}`)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestEstimateTokens(t *testing.T) {
	require.Equal(t, 0, estimateTokens(""))
	require.Equal(t, 1, estimateTokens("abcd"))
	require.Equal(t, 2, estimateTokens("abcde"))
}
