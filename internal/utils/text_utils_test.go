package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateText(t *testing.T) {
	tp := NewTextProcessor(nil)

	assert.Equal(t, "short", tp.TruncateText("short", 10))
	assert.Equal(t, "unbounded", tp.TruncateText("unbounded", 0))

	out := tp.TruncateText(strings.Repeat("ação ", 300), 801)
	assert.True(t, utf8.ValidString(out))
	assert.True(t, strings.HasSuffix(out, Ellipsis))
	assert.LessOrEqual(t, len(out), 801+len(Ellipsis))
}

func TestProcessTextCollapsesWhitespace(t *testing.T) {
	tp := NewTextProcessor(nil)

	assert.Equal(t, "Fatura vence amanhã", tp.ProcessText("  Fatura\n\tvence   amanhã \r\n", 100))
	assert.Equal(t, "ab", tp.ProcessText("a\xffb", 100))
}

func TestFold(t *testing.T) {
	tp := NewTextProcessor(nil)

	assert.Equal(t, "matricula escolar", tp.Fold("Matrícula Escolar"))
	assert.Equal(t, "amanha vence o boleto", tp.Fold("Amanhã VENCE o boleto"))
	assert.Equal(t, "media", tp.Fold("MÉDIA"))
}
