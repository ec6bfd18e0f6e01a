package scoring

import (
	"fmt"

	"github.com/mikey/inbox-digest/internal/core"
	"github.com/mikey/inbox-digest/internal/utils"
)

// SystemPrompt is sent as the system role where the provider supports one
const SystemPrompt = "You triage a personal mailbox. Respond only with JSON."

// PromptFormat takes sender, subject, repeat count and snippet
const PromptFormat = `You triage e-mail for a busy person who reads a short digest three times a day.
Decide how much attention the following message deserves.
Respond with a JSON object containing:
- priority: one of HIGH, MEDIUM, LOW or IGNORE
- score: integer between 0 and 100 consistent with the priority (HIGH >= 75, MEDIUM 45-74, LOW < 45)
- one_liner: one short sentence saying what the message is about and why it matters
- actions: up to three short suggested actions, empty for LOW and IGNORE

Message:
From: %s
Subject: %s
Received: %d time(s)
Snippet:
%s

Respond only with the JSON object and nothing else.`

// PromptBuilder renders the scorer prompt for one group
type PromptBuilder struct {
	text        *utils.TextProcessor
	maxBodySize int
}

// NewPromptBuilder creates a prompt builder; maxBodySize bounds the snippet
func NewPromptBuilder(text *utils.TextProcessor, maxBodySize int) *PromptBuilder {
	if text == nil {
		text = utils.NewTextProcessor(nil)
	}
	return &PromptBuilder{text: text, maxBodySize: maxBodySize}
}

// Build formats the prompt
func (b *PromptBuilder) Build(item core.Group) string {
	count := item.Count
	if count < 1 {
		count = 1
	}
	snippet := b.text.ProcessText(item.Snippet, b.maxBodySize)
	if snippet == "" {
		snippet = "(empty)"
	}
	return fmt.Sprintf(PromptFormat, item.Sender, item.Subject, count, snippet)
}
