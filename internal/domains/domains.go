package domains

import (
	"net/mail"
	"strings"

	"go.uber.org/zap"
)

// Checker matches sender addresses against a list of domains.
// A listed domain also matches its subdomains.
type Checker struct {
	name    string
	domains []string
	logger  *zap.Logger
}

// NewChecker creates a new domain checker; name only labels log lines
func NewChecker(name string, domains []string, logger *zap.Logger) *Checker {
	normalizedDomains := make([]string, 0, len(domains))
	for _, domain := range domains {
		domain = strings.Trim(strings.ToLower(strings.TrimSpace(domain)), ".@")
		if domain != "" {
			normalizedDomains = append(normalizedDomains, domain)
		}
	}

	if len(normalizedDomains) > 0 && logger != nil {
		logger.Info("Initialized domain checker",
			zap.String("list", name),
			zap.Strings("domains", normalizedDomains))
	}

	return &Checker{
		name:    name,
		domains: normalizedDomains,
		logger:  logger,
	}
}

// Domains returns the normalized domain list
func (c *Checker) Domains() []string {
	return c.domains
}

// Matches reports whether the sender's domain, or a parent of it, is listed
func (c *Checker) Matches(from string) bool {
	if c == nil || len(c.domains) == 0 {
		return false
	}

	domain := SenderDomain(from)
	if domain == "" {
		return false
	}

	for _, listed := range c.domains {
		if domain == listed || strings.HasSuffix(domain, "."+listed) {
			if c.logger != nil {
				c.logger.Debug("Sender domain matched",
					zap.String("list", c.name),
					zap.String("domain", domain),
					zap.String("email", from))
			}
			return true
		}
	}

	return false
}

// SenderDomain extracts the lowercased domain from a bare address or a
// "Display Name <user@host>" header value. It returns "" when there is none.
func SenderDomain(from string) string {
	address := strings.TrimSpace(from)
	if parsed, err := mail.ParseAddress(address); err == nil {
		address = parsed.Address
	} else if open := strings.LastIndex(address, "<"); open >= 0 {
		address = strings.TrimSuffix(address[open+1:], ">")
	}

	at := strings.LastIndex(address, "@")
	if at < 0 || at == len(address)-1 {
		return ""
	}
	return strings.ToLower(strings.Trim(address[at+1:], " >."))
}
