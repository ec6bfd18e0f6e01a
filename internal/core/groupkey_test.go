package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGroupKeyStripsVolatileTokens(t *testing.T) {
	tests := []struct {
		name string
		a, b [2]string
	}{
		{
			name: "numeric ids",
			a:    [2]string{"Build #4521 failed", "ci@example.com"},
			b:    [2]string{"Build #4533 failed", "ci@example.com"},
		},
		{
			name: "hex hashes",
			a:    [2]string{"Deployment abc123f crashed", "Vercel <notifications@vercel.com>"},
			b:    [2]string{"Deployment 9f8e7d6c0b crashed", "Vercel <notifications@vercel.com>"},
		},
		{
			name: "letter-only hex ids",
			a:    [2]string{"Session deadbeef expired", "auth@example.com"},
			b:    [2]string{"Session cafebabe expired", "auth@example.com"},
		},
		{
			name: "timestamps and case",
			a:    [2]string{"Alert at 2024-05-01 10:22", "Monitor <m@x.io>"},
			b:    [2]string{"ALERT at 2024-06-11 23:59", "monitor <M@x.io>"},
		},
		{
			name: "whitespace",
			a:    [2]string{"Order   12 shipped", "shop@x.com"},
			b:    [2]string{" Order 99 shipped ", "shop@x.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, BuildGroupKey(tt.a[0], tt.a[1]), BuildGroupKey(tt.b[0], tt.b[1]))
		})
	}
}

func TestBuildGroupKeyShortTokens(t *testing.T) {
	key := BuildGroupKey("Bad cafe report 42", "a@b.com")
	assert.Equal(t, "bad cafe report <n> | a@b.com", key)

	key = BuildGroupKey("Decade review", "a@b.com")
	assert.Equal(t, "<hex> review | a@b.com", key)
}

func TestBuildGroupKeyPlaceholders(t *testing.T) {
	key := BuildGroupKey("Invoice 7f3a9c21 for order 1234", "billing@x.com")
	assert.Equal(t, "invoice <hex> for order <n> | billing@x.com", key)
	assert.Equal(t, key, BuildGroupKey("Invoice 7f3a9c21 for order 1234", "billing@x.com"))
}

func TestAggregate(t *testing.T) {
	n := NewNormalizer(nil, 0)
	items := n.NormalizeAll([]RawRecord{
		{"subject": "Deployment a1b2c3d crashed", "from": "alerts@vercel.com", "snippet": "short"},
		{"subject": "Fatura vence em 2 dias", "from": "banco@banco.com.br"},
		{"subject": "Deployment 0f9e8d7 crashed", "from": "alerts@vercel.com", "snippet": "a much longer snippet"},
		{"subject": "Deployment 123abcd crashed", "from": "alerts@vercel.com", "snippet": "mid snippet"},
	})

	groups := Aggregate(items)
	require.Len(t, groups, 2)
	assert.Equal(t, 3, groups[0].Count)
	assert.Equal(t, "a much longer snippet", groups[0].Snippet)
	assert.Equal(t, "Deployment a1b2c3d crashed", groups[0].Subject)
	assert.Equal(t, 1, groups[1].Count)
}
