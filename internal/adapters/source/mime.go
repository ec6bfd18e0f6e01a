package source

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message"
	// Register charset decoders for non UTF-8 bodies and headers.
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"golang.org/x/net/html"

	"github.com/mikey/inbox-digest/internal/core"
)

// maxBodyRead bounds how much of one text part is read
const maxBodyRead = 64 * 1024

// hiddenTags hold no visible text
var hiddenTags = map[string]bool{"head": true, "script": true, "style": true, "title": true, "noscript": true, "template": true}

// inlineTags do not separate words
var inlineTags = map[string]bool{"a": true, "b": true, "i": true, "u": true, "em": true, "strong": true, "span": true, "small": true, "font": true}

// ParseMessage reads an RFC 5322 message and returns the fields the digest
// needs as a raw record. The body is reduced to text: text/plain is
// preferred, HTML is stripped when it is the only inline part.
func ParseMessage(r io.Reader) (core.RawRecord, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	rec := core.RawRecord{}
	if subject, err := mr.Header.Subject(); err == nil {
		rec["subject"] = subject
	} else {
		rec["subject"] = mr.Header.Get("Subject")
	}
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		rec["from"] = formatAddress(from[0])
	} else {
		rec["from"] = mr.Header.Get("From")
	}
	if date, err := mr.Header.Date(); err == nil && !date.IsZero() {
		rec["date"] = date
	} else if raw := mr.Header.Get("Date"); raw != "" {
		rec["date"] = raw
	}
	if id := mr.Header.Get("Message-Id"); id != "" {
		rec["id"] = strings.Trim(id, "<> ")
	}

	body, err := readText(mr)
	if err != nil {
		return rec, nil
	}
	rec["snippet"] = body
	return rec, nil
}

// ParseMessageWithDate is ParseMessage with a fallback date, used when the
// transport knows the delivery time better than the headers
func ParseMessageWithDate(r io.Reader, received time.Time) (core.RawRecord, error) {
	rec, err := ParseMessage(r)
	if err != nil {
		return nil, err
	}
	if _, ok := rec["date"]; !ok && !received.IsZero() {
		rec["date"] = received
	}
	return rec, nil
}

func readText(mr *mail.Reader) (string, error) {
	var plain, htmlText string
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !(message.IsUnknownCharset(err) && p != nil) {
			break
		}

		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()

		data, err := io.ReadAll(io.LimitReader(p.Body, maxBodyRead))
		if err != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain") || contentType == "":
			if plain == "" {
				plain = string(data)
			}
		case strings.HasPrefix(contentType, "text/html"):
			if htmlText == "" {
				htmlText = string(data)
			}
		}
		if plain != "" {
			break
		}
	}

	switch {
	case plain != "":
		return plain, nil
	case htmlText != "":
		return StripHTML(htmlText), nil
	default:
		return "", errors.New("no text part found")
	}
}

func formatAddress(a *mail.Address) string {
	if a.Name == "" {
		return a.Address
	}
	return a.Name + " <" + a.Address + ">"
}

// StripHTML reduces an HTML body to its visible text. Comments, including
// Outlook conditional blocks, and hidden elements are dropped.
func StripHTML(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	hidden := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			if hidden == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			switch {
			case tag == "body":
				hidden = 0
			case hiddenTags[tag] && tt == html.StartTagToken:
				hidden++
			case hiddenTags[tag] && tt == html.EndTagToken && hidden > 0:
				hidden--
			}
			if !inlineTags[tag] {
				b.WriteByte(' ')
			}
		}
	}
}
