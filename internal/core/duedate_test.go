package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDaysUntilDue(t *testing.T) {
	today := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		text   string
		days   int
		wantOK bool
	}{
		{"fatura vence em 2 dias", 2, true},
		{"your bill is due in 5 days", 5, true},
		{"3 days left to renew", 3, true},
		{"boleto vence hoje", 0, true},
		{"pagamento vence amanha", 1, true},
		{"fatura vencida", -1, true},
		{"vencimento 12/03", 2, true},
		{"vencimento 12-03-2025", 2, true},
		{"vencimento 20.03.25", 10, true},
		{"due 2025-03-17", 7, true},
		{"vencimento 05/01", 301, true},
		{"valor r$ 10.50 sem data", 0, false},
		{"31/02 nao existe", 0, false},
		{"nothing here", 0, false},
		{"vence amanha ou em 9 dias", 1, true},
		{"your invoice is due today", 0, true},
		{"pague ate amanha", 1, true},
		{"hoje e o ultimo dia para pagar", 0, true},
		{"payment received today", 0, false},
		{"pagamento recebido hoje", 0, false},
		{"reuniao amanha as 10h", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			days, ok := DaysUntilDue(tt.text, today)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.days, days)
			}
		})
	}
}

func TestDueScore(t *testing.T) {
	assert.Equal(t, 100, DueScore(-3))
	assert.Equal(t, 100, DueScore(0))
	assert.Equal(t, 95, DueScore(1))
	assert.Equal(t, 95, DueScore(2))
	assert.Equal(t, 90, DueScore(7))
	assert.Equal(t, 85, DueScore(8))
}
