// Package channel maps UTM signals to a marketing channel.
package channel

import (
	"strings"

	"github.com/AngelCh415/attribution-etl/internal/models"
)

var (
	organicTokens  = []string{"organic", "search", "natural", "seo", "unpaid"}
	searchEngines  = []string{"bing", "yahoo", "duckduckgo", "baidu", "yandex", "qwant"}
	metaTokens     = []string{"facebook", "fb", "instagram", "ig", "meta", "igshopping"}
	googleTokens   = []string{"google", "an"}
	domainSuffixes = []string{".com", ".co.", ".org", ".net", ".in", ".uk"}
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// blank covers the values trackers write when a field is really absent.
func blank(s string) bool { return s == "" || s == "null" || s == "none" }

func isDirectToken(s string) bool { return s == "direct" || blank(s) }

// Classify is a pure function of its five inputs. The first matching rule wins.
func Classify(source, medium, campaign, content, term string) models.Channel {
	src, med, camp := norm(source), norm(medium), norm(campaign)
	cont, trm := norm(content), norm(term)

	// A campaign means paid traffic; Meta unless Google says otherwise.
	if !blank(camp) {
		if strings.Contains(src, "google") || strings.Contains(med, "google") || strings.Contains(src, "googleadservices") {
			return models.ChannelGoogle
		}
		return models.ChannelMeta
	}

	if containsAny(med, organicTokens) || containsAny(src, organicTokens) {
		return models.ChannelOrganic
	}
	if containsAny(src, searchEngines) {
		return models.ChannelOrganic
	}

	if strings.Contains(src, "google") || strings.Contains(med, "google") {
		if cont != "" || trm != "" {
			return models.ChannelGoogle
		}
		return models.ChannelOrganic
	}
	if strings.Contains(src, "googleadservices") || strings.Contains(med, "googleadservices") {
		return models.ChannelGoogle
	}

	if containsAny(src, metaTokens) || src == "{{site_source_name}}" {
		return models.ChannelMeta
	}
	if containsAny(src, googleTokens) {
		return models.ChannelGoogle
	}

	if isDirectToken(src) || isDirectToken(med) {
		// a real-looking source tagged as direct is untracked organic
		if !blank(src) && !isDirectToken(src) && len(src) > 1 {
			return models.ChannelOrganic
		}
		return models.ChannelDirect
	}

	if med == "referral" {
		return models.ChannelOrganic
	}

	if !blank(src) {
		if containsAny(src, domainSuffixes) {
			if containsAny(src, searchEngines) || strings.Contains(src, "google") {
				return models.ChannelOrganic
			}
			if containsAny(src, metaTokens) {
				return models.ChannelMeta
			}
			return models.ChannelOrganic
		}
	}

	if !blank(med) {
		switch med {
		case "search", "organic", "natural", "seo", "unpaid", "referral":
			return models.ChannelOrganic
		case "social", "social-media", "socialmedia":
			return models.ChannelMeta
		case "email":
			return models.ChannelDirect
		case "cpc":
			if containsAny(src, metaTokens) {
				return models.ChannelMeta
			}
			return models.ChannelGoogle
		}
	}

	if blank(src) {
		return models.ChannelDirect
	}
	return models.ChannelOrganic
}

// ClassifyRecord classifies a possibly-nil record; nil yields the
// classifier's default for empty input (Direct).
func ClassifyRecord(rec *models.AttributionRecord) models.Channel {
	if rec == nil {
		return Classify("", "", "", "", "")
	}
	return Classify(rec.Source, rec.Medium, rec.Campaign, rec.Content, rec.Term)
}

var legacyTable = map[string]string{
	"google":               "Google",
	"an":                   "Google",
	"facebook":             "Facebook",
	"fb":                   "Facebook",
	"instagram":            "Instagram",
	"ig":                   "Instagram",
	"igshopping":           "Instagram",
	"duckduckgo":           "DuckDuckGo",
	"direct":               "Direct",
	"{{site_source_name}}": "Facebook",
	"null":                 "Direct/Unknown",
	"":                     "Direct/Unknown",
}

// LegacyLookup is the earlier static source table, kept for reports that
// still group by platform rather than channel.
func LegacyLookup(source string) string {
	if v, ok := legacyTable[norm(source)]; ok {
		return v
	}
	return "Unknown"
}
