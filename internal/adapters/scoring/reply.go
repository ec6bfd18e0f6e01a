package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mikey/inbox-digest/internal/core"
)

// reply is the JSON object scorers are asked for. Models are loose with
// types, so score and actions are decoded leniently.
type reply struct {
	Priority  string          `json:"priority"`
	Score     json.RawMessage `json:"score"`
	OneLiner  string          `json:"one_liner"`
	Rationale string          `json:"rationale"`
	Actions   json.RawMessage `json:"actions"`
}

// ParseReply extracts a verdict from a model reply. When the reply is not
// pure JSON, the span between the first '{' and the last '}' is tried.
func ParseReply(responseText, model string) (*core.Verdict, error) {
	var r reply
	if err := json.Unmarshal([]byte(responseText), &r); err != nil {
		jsonStart := strings.Index(responseText, "{")
		jsonEnd := strings.LastIndex(responseText, "}")
		if jsonStart < 0 || jsonEnd <= jsonStart {
			return nil, fmt.Errorf("%w: no JSON object in reply: %v", core.ErrMalformedVerdict, err)
		}
		if err := json.Unmarshal([]byte(responseText[jsonStart:jsonEnd+1]), &r); err != nil {
			return nil, fmt.Errorf("%w: failed to parse reply as JSON: %v", core.ErrMalformedVerdict, err)
		}
	}

	if strings.TrimSpace(r.Priority) == "" {
		return nil, fmt.Errorf("%w: reply has no priority", core.ErrMalformedVerdict)
	}

	rationale := r.OneLiner
	if strings.TrimSpace(rationale) == "" {
		rationale = r.Rationale
	}

	return &core.Verdict{
		Label:     strings.TrimSpace(r.Priority),
		Score:     parseScore(r.Score),
		Rationale: strings.TrimSpace(rationale),
		Actions:   parseActions(r.Actions),
		Model:     model,
	}, nil
}

// parseScore accepts 72, 72.4, "72" or a 0-1 fraction; anything else is 0
func parseScore(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		if f, err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return 0
		}
	}
	if f > 0 && f < 1 {
		f *= 100
	}
	if f < 0 || f > 100 || math.IsNaN(f) {
		return 0
	}
	return int(math.Round(f))
}

func parseActions(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && strings.TrimSpace(single) != "" {
		return []string{single}
	}
	return nil
}
