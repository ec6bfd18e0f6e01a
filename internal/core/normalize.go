package core

import (
	"encoding/json"
	"fmt"
	"html"
	"mime"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/emersion/go-message/charset"
	"github.com/mikey/inbox-digest/internal/utils"
)

// DefaultSnippetLimit bounds snippets when no limit is configured
const DefaultSnippetLimit = 800

const subjectLimit = 300

var (
	subjectAliases = []string{"subject", "title", "assunto", "topic"}
	senderAliases  = []string{"from", "sender", "from_email", "email_from", "author", "remetente"}
	snippetAliases = []string{"snippet", "body", "text", "preview", "content", "summary", "body_text", "plain"}
	dateAliases    = []string{"date", "received", "received_at", "internaldate", "internal_date", "timestamp", "sent_at", "datetime"}
)

// Normalizer turns loosely shaped raw records into NormalizedItems
type Normalizer struct {
	text         *utils.TextProcessor
	snippetLimit int
	decoder      *mime.WordDecoder
}

// NewNormalizer creates a normalizer; a non-positive limit uses DefaultSnippetLimit
func NewNormalizer(text *utils.TextProcessor, snippetLimit int) *Normalizer {
	if snippetLimit <= 0 {
		snippetLimit = DefaultSnippetLimit
	}
	if text == nil {
		text = utils.NewTextProcessor(nil)
	}
	return &Normalizer{
		text:         text,
		snippetLimit: snippetLimit,
		decoder:      &mime.WordDecoder{CharsetReader: charset.Reader},
	}
}

// Normalize extracts subject, sender, snippet and date from a raw record.
// Missing or malformed fields become empty values; it never fails.
func (n *Normalizer) Normalize(rec RawRecord) NormalizedItem {
	fields := flatten(rec)

	subject := n.text.ProcessText(n.decodeHeader(lookup(fields, subjectAliases)), subjectLimit)
	sender := n.text.ProcessText(n.decodeHeader(lookup(fields, senderAliases)), subjectLimit)
	snippet := n.text.ProcessText(html.UnescapeString(lookup(fields, snippetAliases)), n.snippetLimit)

	return NormalizedItem{
		Subject:  subject,
		Sender:   sender,
		Snippet:  snippet,
		Date:     parseDate(lookupRaw(fields, dateAliases)),
		GroupKey: BuildGroupKey(subject, sender),
	}
}

// NormalizeAll normalizes a batch, preserving order
func (n *Normalizer) NormalizeAll(records []RawRecord) []NormalizedItem {
	items := make([]NormalizedItem, 0, len(records))
	for _, rec := range records {
		items = append(items, n.Normalize(rec))
	}
	return items
}

func (n *Normalizer) decodeHeader(value string) string {
	if !strings.Contains(value, "=?") {
		return value
	}
	decoded, err := n.decoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// flatten lowercases keys and lifts header lists ("headers": [{"name","value"}]
// or "headers": {"Subject": ...}) to the top level without overriding direct keys.
func flatten(rec RawRecord) map[string]interface{} {
	fields := make(map[string]interface{}, len(rec))
	for k, v := range rec {
		fields[strings.ToLower(strings.TrimSpace(k))] = v
	}

	lift := func(name string, value interface{}) {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, exists := fields[key]; !exists && key != "" {
			fields[key] = value
		}
	}

	switch headers := fields["headers"].(type) {
	case map[string]interface{}:
		for k, v := range headers {
			lift(k, v)
		}
	case map[string]string:
		for k, v := range headers {
			lift(k, v)
		}
	case map[string][]string:
		for k, v := range headers {
			lift(k, v)
		}
	case []interface{}:
		for _, h := range headers {
			if pair, ok := h.(map[string]interface{}); ok {
				lift(stringValue(pair["name"]), pair["value"])
			}
		}
	}
	return fields
}

func lookupRaw(fields map[string]interface{}, aliases []string) interface{} {
	for _, alias := range aliases {
		if v, ok := fields[alias]; ok && stringValue(v) != "" {
			return v
		}
	}
	return nil
}

func lookup(fields map[string]interface{}, aliases []string) string {
	return stringValue(lookupRaw(fields, aliases))
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case []string:
		for _, s := range val {
			if s != "" {
				return s
			}
		}
		return ""
	case []interface{}:
		for _, item := range val {
			if s := stringValue(item); s != "" {
				return s
			}
		}
		return ""
	case map[string]interface{}:
		return addressValue(val)
	case json.Number:
		return val.String()
	case time.Time:
		if val.IsZero() {
			return ""
		}
		return val.Format(time.RFC3339)
	case fmt.Stringer:
		return val.String()
	case int, int32, int64, uint, uint32, uint64, float32, float64, bool:
		return fmt.Sprint(val)
	default:
		return ""
	}
}

// addressValue renders {"name": ..., "email"/"address": ...} objects
func addressValue(m map[string]interface{}) string {
	name := stringValue(m["name"])
	address := stringValue(m["email"])
	if address == "" {
		address = stringValue(m["address"])
	}
	switch {
	case name != "" && address != "":
		return fmt.Sprintf("%s <%s>", name, address)
	case address != "":
		return address
	default:
		return name
	}
}

func parseDate(v interface{}) time.Time {
	switch val := v.(type) {
	case time.Time:
		return val
	case int64:
		return fromEpoch(val)
	case int:
		return fromEpoch(int64(val))
	case float64:
		return fromEpoch(int64(val))
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return fromEpoch(i)
		}
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return time.Time{}
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return fromEpoch(i)
		}
		if t, err := mail.ParseDate(s); err == nil {
			return t
		}
		if t, err := dateparse.ParseAny(s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// fromEpoch accepts seconds or milliseconds (Gmail internalDate)
func fromEpoch(v int64) time.Time {
	if v <= 0 {
		return time.Time{}
	}
	if v > 1e12 {
		return time.UnixMilli(v)
	}
	return time.Unix(v, 0)
}
