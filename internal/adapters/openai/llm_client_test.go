package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/inbox-digest/internal/adapters/scoring"
	"github.com/mikey/inbox-digest/internal/core"
)

type fakeChat struct {
	req  openai.ChatCompletionRequest
	resp openai.ChatCompletionResponse
	err  error
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.req = req
	return f.resp, f.err
}

func reply(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		ID: "chatcmpl-1",
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
		},
	}
}

func TestOpenAIScorer(t *testing.T) {
	chat := &fakeChat{resp: reply(`{"priority":"MEDIUM","score":60,"one_liner":"Landlord asks about the lease","actions":["Reply"]}`)}
	s := NewOpenAIScorer(chat, "gpt-4o-mini", 200, 0.1, 1, scoring.NewPromptBuilder(nil, 500), nil)

	v, err := s.ScoreAmbiguous(context.Background(), core.Group{
		NormalizedItem: core.NormalizedItem{Subject: "Lease", Sender: "landlord@example.com"},
		Count:          1,
	})
	require.NoError(t, err)
	assert.Equal(t, "MEDIUM", v.Label)
	assert.Equal(t, 60, v.Score)
	assert.Equal(t, "gpt-4o-mini", v.Model)

	require.Len(t, chat.req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, chat.req.Messages[0].Role)
	assert.Contains(t, chat.req.Messages[1].Content, "Subject: Lease")
	require.NotNil(t, chat.req.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, chat.req.ResponseFormat.Type)
}

func TestOpenAIScorerErrors(t *testing.T) {
	item := core.Group{}
	prompts := scoring.NewPromptBuilder(nil, 0)

	_, err := NewOpenAIScorer(&fakeChat{err: errors.New("429")}, "m", 10, 0, 1, prompts, nil).ScoreAmbiguous(context.Background(), item)
	assert.Error(t, err)

	_, err = NewOpenAIScorer(&fakeChat{}, "m", 10, 0, 1, prompts, nil).ScoreAmbiguous(context.Background(), item)
	assert.Error(t, err)

	_, err = NewOpenAIScorer(&fakeChat{resp: reply("not json")}, "m", 10, 0, 1, prompts, nil).ScoreAmbiguous(context.Background(), item)
	assert.ErrorIs(t, err, core.ErrMalformedVerdict)
}
