package scoring

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/inbox-digest/internal/core"
)

func TestParseReply(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    core.Verdict
		wantErr bool
	}{
		{
			name: "plain json",
			text: `{"priority":"HIGH","score":88,"one_liner":"Invoice due Friday","actions":["Pay it"]}`,
			want: core.Verdict{Label: "HIGH", Score: 88, Rationale: "Invoice due Friday", Actions: []string{"Pay it"}, Model: "m"},
		},
		{
			name: "wrapped in prose and fences",
			text: "Sure! Here it is:\n```json\n{\"priority\": \"media\", \"score\": \"60\", \"one_liner\": \"Booking change\"}\n```",
			want: core.Verdict{Label: "media", Score: 60, Rationale: "Booking change", Model: "m"},
		},
		{
			name: "fractional score and single action",
			text: `{"priority":"LOW","score":0.3,"rationale":"Newsletter","actions":"Read later"}`,
			want: core.Verdict{Label: "LOW", Score: 30, Rationale: "Newsletter", Actions: []string{"Read later"}, Model: "m"},
		},
		{
			name: "out of range score dropped",
			text: `{"priority":"HIGH","score":250}`,
			want: core.Verdict{Label: "HIGH", Model: "m"},
		},
		{name: "no priority", text: `{"score":80}`, wantErr: true},
		{name: "no json", text: "I cannot help with that", wantErr: true},
		{name: "broken json", text: `{"priority": "HIGH",`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseReply(tt.text, "m")
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrMalformedVerdict)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *v)
		})
	}
}

func TestParsedReplyFeedsVerdictScore(t *testing.T) {
	v, err := ParseReply(`{"priority":"ALTA","score":99,"one_liner":"x"}`, "m")
	require.NoError(t, err)
	score, err := core.VerdictScore(v)
	require.NoError(t, err)
	assert.Equal(t, 85, score)
}

func TestPromptBuilder(t *testing.T) {
	b := NewPromptBuilder(nil, 20)
	prompt := b.Build(core.Group{
		NormalizedItem: core.NormalizedItem{
			Subject: "Reunião amanhã",
			Sender:  "Ana <ana@example.com>",
			Snippet: strings.Repeat("long snippet ", 10),
		},
		Count: 3,
	})

	assert.Contains(t, prompt, "From: Ana <ana@example.com>")
	assert.Contains(t, prompt, "Subject: Reunião amanhã")
	assert.Contains(t, prompt, "Received: 3 time(s)")
	assert.NotContains(t, prompt, strings.Repeat("long snippet ", 3))

	empty := b.Build(core.Group{})
	assert.Contains(t, empty, "Received: 1 time(s)")
	assert.Contains(t, empty, "(empty)")
}

type countingScorer struct {
	calls int
}

func (c *countingScorer) ScoreAmbiguous(_ context.Context, _ core.Group) (*core.Verdict, error) {
	c.calls++
	return &core.Verdict{Label: "LOW"}, nil
}

func TestRateLimitedDelegates(t *testing.T) {
	next := &countingScorer{}
	limited := NewRateLimited(next, 0, 1, nil)

	for i := 0; i < 5; i++ {
		v, err := limited.ScoreAmbiguous(context.Background(), core.Group{})
		require.NoError(t, err)
		assert.Equal(t, "LOW", v.Label)
	}
	assert.Equal(t, 5, next.calls)
}

func TestRateLimitedHonoursContext(t *testing.T) {
	next := &countingScorer{}
	limited := NewRateLimited(next, 0.01, 1, nil)

	_, err := limited.ScoreAmbiguous(context.Background(), core.Group{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = limited.ScoreAmbiguous(ctx, core.Group{})
	assert.True(t, errors.Is(err, core.ErrScorerUnavailable))
	assert.Equal(t, 1, next.calls)
}
