package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/mikey/inbox-digest/internal/config"
	"github.com/mikey/inbox-digest/internal/core"
)

const (
	gmailMetadataFormat = "metadata"
	gmailConcurrentGets = 5
)

// GmailSource fetches recent messages through the Gmail API using metadata
// only; the snippet Gmail returns is enough for classification
type GmailSource struct {
	srv    *gmail.Service
	user   string
	query  string
	logger *zap.Logger
}

// NewGmailSource authenticates with an OAuth2 user token. The token comes
// from token_json when set, otherwise from token_file.
func NewGmailSource(ctx context.Context, cfg config.GmailConfig, logger *zap.Logger) (*GmailSource, error) {
	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	oauthCfg, err := google.ConfigFromJSON(b, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}

	tok, err := loadToken(cfg)
	if err != nil {
		return nil, err
	}

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(oauthCfg.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Gmail client: %w", err)
	}

	return NewGmailSourceFromService(srv, cfg.User, cfg.Query, logger), nil
}

// NewGmailSourceFromService wraps an existing service
func NewGmailSourceFromService(srv *gmail.Service, user, query string, logger *zap.Logger) *GmailSource {
	if user == "" {
		user = "me"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GmailSource{srv: srv, user: user, query: query, logger: logger}
}

func loadToken(cfg config.GmailConfig) (*oauth2.Token, error) {
	raw := strings.TrimSpace(cfg.TokenJSON)
	if raw == "" {
		if cfg.TokenFile == "" {
			return nil, errors.New("gmail source needs source.gmail.token_json or source.gmail.token_file")
		}
		b, err := os.ReadFile(cfg.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("unable to read token file: %w", err)
		}
		raw = string(b)
	}

	tok := &oauth2.Token{}
	if err := json.Unmarshal([]byte(raw), tok); err != nil {
		return nil, fmt.Errorf("unable to parse oauth token: %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, errors.New("oauth token has neither access nor refresh token")
	}
	return tok, nil
}

// FetchRecent lists the newest messages matching the query and fetches
// their metadata, preserving the newest-first order of the listing
func (g *GmailSource) FetchRecent(ctx context.Context, maxResults int) ([]core.RawRecord, error) {
	call := g.srv.Users.Messages.List(g.user).Context(ctx)
	if g.query != "" {
		call = call.Q(g.query)
	}
	if maxResults > 0 {
		call = call.MaxResults(int64(maxResults))
	}

	list, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list gmail messages: %w", err)
	}

	ids := make([]string, 0, len(list.Messages))
	for _, m := range list.Messages {
		ids = append(ids, m.Id)
	}
	if maxResults > 0 && len(ids) > maxResults {
		ids = ids[:maxResults]
	}

	records := make([]core.RawRecord, len(ids))
	errs := make([]error, len(ids))

	in := make(chan int)
	var wg sync.WaitGroup
	wg.Add(gmailConcurrentGets)
	for w := 0; w < gmailConcurrentGets; w++ {
		go func() {
			defer wg.Done()
			for i := range in {
				msg, err := g.srv.Users.Messages.Get(g.user, ids[i]).
					Format(gmailMetadataFormat).
					MetadataHeaders("From", "Subject", "Date").
					Context(ctx).
					Do()
				if err != nil {
					errs[i] = err
					continue
				}
				records[i] = gmailRecord(msg)
			}
		}()
	}
	for i := range ids {
		in <- i
	}
	close(in)
	wg.Wait()

	out := make([]core.RawRecord, 0, len(records))
	var failed int
	var firstErr error
	for i, rec := range records {
		if errs[i] != nil {
			failed++
			if firstErr == nil {
				firstErr = errs[i]
			}
			g.logger.Warn("Failed to fetch gmail message", zap.String("id", ids[i]), zap.Error(errs[i]))
			continue
		}
		out = append(out, rec)
	}
	if failed > 0 && len(out) == 0 {
		return nil, fmt.Errorf("failed to fetch gmail messages: %w", firstErr)
	}

	g.logger.Debug("Fetched gmail messages", zap.Int("count", len(out)), zap.Int("failed", failed))
	return out, nil
}

func gmailRecord(msg *gmail.Message) core.RawRecord {
	headers := make(map[string]interface{})
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			headers[h.Name] = h.Value
		}
	}
	return core.RawRecord{
		"id":            msg.Id,
		"snippet":       msg.Snippet,
		"internal_date": msg.InternalDate,
		"headers":       headers,
	}
}
