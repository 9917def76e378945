package websocket

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/HMasataka/relay/internal/logging"
)

// OriginPolicy decides which browser origins may open a connection.
// Requests without an Origin header come from non-browser clients and
// are always allowed.
type OriginPolicy struct {
	allowAll bool
	allowed  map[string]struct{}
	logger   *logging.Logger
}

// NewOriginPolicy builds a policy from configured origins. "*" allows any
// origin; invalid entries are logged and skipped.
func NewOriginPolicy(origins []string, logger *logging.Logger) *OriginPolicy {
	p := &OriginPolicy{
		allowed: make(map[string]struct{}),
		logger:  logger,
	}

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}

		if trimmed == "*" {
			p.allowAll = true
			continue
		}

		normalized, ok := normalizeOrigin(trimmed)
		if !ok {
			logger.Warn("ignoring invalid origin in configuration", "origin", origin)
			continue
		}
		p.allowed[normalized] = struct{}{}
	}

	return p
}

// Check is a websocket.Upgrader CheckOrigin function
func (p *OriginPolicy) Check(r *http.Request) bool {
	header := r.Header.Get("Origin")
	if header == "" || p.allowAll {
		return true
	}

	if normalized, ok := normalizeOrigin(header); ok {
		if _, exists := p.allowed[normalized]; exists {
			return true
		}
	}

	p.logger.Warn("blocked websocket connection from disallowed origin", "origin", header)
	return false
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}

	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}
