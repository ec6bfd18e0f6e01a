package core

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAliasesAndCasing(t *testing.T) {
	n := NewNormalizer(nil, 0)

	item := n.Normalize(RawRecord{
		"Subject": "  Fatura   disponível\n",
		"SENDER":  "Banco <fatura@banco.com.br>",
		"body":    "Sua fatura de março &amp; abril",
		"Date":    "Mon, 02 Jan 2006 15:04:05 -0300",
	})

	assert.Equal(t, "Fatura disponível", item.Subject)
	assert.Equal(t, "Banco <fatura@banco.com.br>", item.Sender)
	assert.Equal(t, "Sua fatura de março & abril", item.Snippet)
	assert.Equal(t, 2006, item.Date.Year())
	assert.NotEmpty(t, item.GroupKey)
}

func TestNormalizeNeverFails(t *testing.T) {
	n := NewNormalizer(nil, 0)

	records := []RawRecord{
		nil,
		{},
		{"subject": nil, "from": 42, "snippet": []interface{}{nil, "second"}},
		{"subject": map[string]interface{}{"odd": true}},
		{"date": "not a date", "body": struct{}{}},
		{"internalDate": "1700000000000"},
	}

	for _, rec := range records {
		assert.NotPanics(t, func() {
			item := n.Normalize(rec)
			assert.True(t, utf8.ValidString(item.Subject))
		})
	}

	item := n.Normalize(records[2])
	assert.Equal(t, "", item.Subject)
	assert.Equal(t, "42", item.Sender)
	assert.Equal(t, "second", item.Snippet)

	epoch := n.Normalize(records[5])
	assert.Equal(t, time.UnixMilli(1700000000000).Unix(), epoch.Date.Unix())
}

func TestNormalizeHeaderList(t *testing.T) {
	n := NewNormalizer(nil, 0)

	item := n.Normalize(RawRecord{
		"snippet": "hello",
		"headers": []interface{}{
			map[string]interface{}{"name": "Subject", "value": "=?UTF-8?Q?Reuni=C3=A3o_de_pais?="},
			map[string]interface{}{"name": "From", "value": "Escola <secretaria@escola.edu.br>"},
		},
	})

	assert.Equal(t, "Reunião de pais", item.Subject)
	assert.Equal(t, "Escola <secretaria@escola.edu.br>", item.Sender)
}

func TestNormalizeAddressObject(t *testing.T) {
	n := NewNormalizer(nil, 0)

	item := n.Normalize(RawRecord{"from": map[string]interface{}{"name": "Ana", "email": "ana@example.com"}})
	assert.Equal(t, "Ana <ana@example.com>", item.Sender)
}

func TestNormalizeBoundsSnippet(t *testing.T) {
	n := NewNormalizer(nil, 100)

	item := n.Normalize(RawRecord{"snippet": strings.Repeat("word ", 200)})
	assert.LessOrEqual(t, len(item.Snippet), 100+len("…"))

	items := n.NormalizeAll([]RawRecord{{"subject": "a"}, {"subject": "b"}})
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].Subject)
}
