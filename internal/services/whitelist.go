package services

import (
	"context"
	"net/url"
	"strings"

	"github.com/qaplus/widget-backend/internal/models"
	"github.com/qaplus/widget-backend/internal/storage"
)

// WhitelistGuard decides whether an embedding page may talk to a chatbot,
// based on the request's Origin/Referer hostname and the chatbot's domain
// whitelist. Pure reads, no mutable state.
type WhitelistGuard struct {
	store storage.Store
}

// NewWhitelistGuard creates a new whitelist guard
func NewWhitelistGuard(store storage.Store) *WhitelistGuard {
	return &WhitelistGuard{store: store}
}

// CheckOrigin loads the chatbot and checks the embedding hostname against
// its whitelist. Returns nil when allowed; ErrMissingOrigin,
// ErrDomainForbidden, or storage.ErrChatbotNotFound otherwise. The
// not-found case stays distinct from the forbidden case so an embedding
// developer can tell "wrong domain" from "wrong ID".
func (g *WhitelistGuard) CheckOrigin(ctx context.Context, chatbotID, origin, referer string) error {
	bot, err := g.store.GetChatbot(ctx, chatbotID)
	if err != nil {
		return err
	}
	return g.Check(bot, origin, referer)
}

// Check applies the whitelist policy to an already-loaded chatbot.
func (g *WhitelistGuard) Check(bot *models.Chatbot, origin, referer string) error {
	hostname := extractHostname(origin)
	if hostname == "" {
		// Some browsers omit Origin on embedded iframe requests.
		hostname = extractHostname(referer)
	}
	if hostname == "" {
		return ErrMissingOrigin
	}

	whitelist := bot.AllowedHostnames()
	if len(whitelist) == 0 {
		// Whitelist not configured yet: fail closed. An unconfigured bot
		// must not be embeddable anywhere, localhost included.
		return ErrDomainForbidden
	}

	if isLocalhost(hostname) {
		return nil
	}
	for _, entry := range whitelist {
		if hostnameMatches(hostname, entry) {
			return nil
		}
	}
	return ErrDomainForbidden
}

// extractHostname pulls the lowercased hostname out of an Origin or
// Referer header value. Returns "" when nothing usable is present
// (missing header, "null" origin, unparsable URL).
func extractHostname(header string) string {
	header = strings.TrimSpace(header)
	if header == "" || header == "null" {
		return ""
	}
	parsed, err := url.Parse(header)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

// hostnameMatches compares a request hostname against one whitelist entry.
// Matching is exact; subdomains only match entries that explicitly start
// with "*." (e.g. "*.qaplus.com" matches "docs.qaplus.com" but a bare
// "qaplus.com" entry does not).
func hostnameMatches(hostname, entry string) bool {
	entry = strings.ToLower(strings.TrimSpace(entry))
	if entry == "" {
		return false
	}
	if suffix, ok := strings.CutPrefix(entry, "*."); ok {
		return hostname == suffix || strings.HasSuffix(hostname, "."+suffix)
	}
	return hostname == entry
}

// isLocalhost exempts local development hosts from whitelist matching.
// Only applies once a whitelist is configured.
func isLocalhost(hostname string) bool {
	return hostname == "localhost" ||
		hostname == "127.0.0.1" ||
		hostname == "::1" ||
		strings.HasSuffix(hostname, ".localhost")
}
