package channel

import (
	"strings"

	"github.com/AngelCh415/attribution-etl/internal/models"
)

var (
	referrerSearch = []string{"google.com", "bing.com", "yahoo.com", "duckduckgo.com"}
	referrerSocial = []string{"facebook.com", "instagram.com", "twitter.com", "linkedin.com"}
	payloadOrganic = []string{"search", "organic", "seo", "unpaid", "natural", "shopify"}
	payloadSocial  = []string{"social", "facebook", "instagram", "fb", "ig", "igshopping"}
)

func present(s string, extra ...string) bool {
	t := strings.TrimSpace(s)
	if t == "" || t == "null" || t == "None" {
		return false
	}
	for _, e := range extra {
		if t == e {
			return false
		}
	}
	return true
}

// InferFromOrderPatterns guesses a channel from raw order text when no
// extractor produced an attribution id. Referrer first, then the journey
// and custom-attribute payloads as plain text.
func InferFromOrderPatterns(o models.Order) models.Channel {
	if present(o.ReferrerURL) {
		ref := strings.ToLower(o.ReferrerURL)
		switch {
		case containsAny(ref, referrerSearch):
			return models.ChannelOrganic
		case containsAny(ref, referrerSocial):
			return models.ChannelMeta
		case strings.Contains(ref, "shopify.com"):
			return models.ChannelOrganic
		case containsAny(ref, []string{".com", ".co.", ".org", ".net"}):
			return models.ChannelOrganic
		}
	}
	if present(o.CustomerJourney) {
		if ch, ok := inferFromPayload(o.CustomerJourney); ok {
			return ch
		}
	}
	if present(o.CustomAttributes, "[]") {
		if ch, ok := inferFromPayload(o.CustomAttributes); ok {
			return ch
		}
	}
	return models.ChannelDirect
}

func inferFromPayload(raw string) (models.Channel, bool) {
	s := strings.ToLower(raw)
	if containsAny(s, payloadOrganic) {
		return models.ChannelOrganic, true
	}
	if containsAny(s, payloadSocial) {
		return models.ChannelMeta, true
	}
	return "", false
}
