// Package matcher resolves an order's attribution id to the ad, adset or
// campaign it points at in the daily ad rollup.
package matcher

import (
	"strings"
	"time"

	"github.com/AngelCh415/attribution-etl/internal/ads"
	"github.com/AngelCh415/attribution-etl/internal/models"
)

// Kind tags a Mapping.
type Kind int

const (
	None    Kind = iota // nothing to report for this order
	Matched             // a daily ad row matched the attribution id
	Unknown             // placeholder for a trackable channel with no match
)

func (k Kind) String() string {
	switch k {
	case Matched:
		return "matched"
	case Unknown:
		return "unknown"
	}
	return "none"
}

// CampaignRef names the ad hierarchy an order was mapped to.
type CampaignRef struct {
	CampaignID   string
	CampaignName string
	AdsetID      string
	AdsetName    string
	AdID         string
	AdName       string
}

type Mapping struct {
	Kind    Kind
	Ref     CampaignRef
	Metrics models.AdMetrics
	Date    time.Time // day of the matched rollup row
}

// Placeholder is the Unknown mapping for ch, or a None mapping when the
// channel is not worth tracking.
func Placeholder(ch models.Channel) Mapping {
	if !ch.Trackable() {
		return Mapping{Kind: None}
	}
	return Mapping{Kind: Unknown, Ref: CampaignRef{
		CampaignName: "Unknown Campaign - " + string(ch),
		AdsetName:    "Unknown Adset - " + string(ch),
		AdName:       "Unknown Ad - " + string(ch),
	}}
}

type Matcher struct {
	daily    []models.DailyAd
	byAd     map[string][]int
	byAdset  map[string][]int
	byCampgn map[string][]int
}

// New indexes daily rows by canonical and raw-trimmed ids.
func New(daily []models.DailyAd) *Matcher {
	m := &Matcher{
		daily:    daily,
		byAd:     map[string][]int{},
		byAdset:  map[string][]int{},
		byCampgn: map[string][]int{},
	}
	for i, d := range daily {
		index(m.byAd, d.AdID, i)
		index(m.byAdset, d.AdsetID, i)
		index(m.byCampgn, d.CampaignID, i)
	}
	return m
}

func index(idx map[string][]int, id string, i int) {
	for _, k := range keys(id) {
		idx[k] = append(idx[k], i)
	}
}

func keys(id string) []string {
	raw := strings.TrimSpace(id)
	canon, ok := ads.NormalizeID(raw)
	if !ok {
		return nil
	}
	if canon == raw {
		return []string{raw}
	}
	return []string{raw, canon}
}

// Match maps rec to a daily ad row. A nil rec or an id nothing matches falls
// back to Placeholder(ch).
func (m *Matcher) Match(rec *models.AttributionRecord, ch models.Channel) Mapping {
	if rec == nil || strings.TrimSpace(rec.AttributionID) == "" {
		return Placeholder(ch)
	}
	var idx map[string][]int
	switch rec.AttributionType {
	case models.AttributionCampaign:
		idx = m.byCampgn
	case models.AttributionMedium:
		idx = m.byAdset
	default:
		idx = m.byAd
	}

	best := -1
	seen := map[int]struct{}{}
	for _, k := range keys(rec.AttributionID) {
		for _, i := range idx[k] {
			if _, dup := seen[i]; dup {
				continue
			}
			seen[i] = struct{}{}
			if best < 0 || better(m.daily[i], m.daily[best]) {
				best = i
			}
		}
	}
	if best < 0 {
		return Placeholder(ch)
	}
	d := m.daily[best]
	return Mapping{
		Kind: Matched,
		Ref: CampaignRef{
			CampaignID: d.CampaignID, CampaignName: d.CampaignName,
			AdsetID: d.AdsetID, AdsetName: d.AdsetName,
			AdID: d.AdID, AdName: d.AdName,
		},
		Metrics: d.AdMetrics,
		Date:    d.Date,
	}
}

// better breaks ties between rows matching one id: highest spend, then most
// recent day, then smallest (campaign, adset, ad) id.
func better(a, b models.DailyAd) bool {
	if a.Spend != b.Spend {
		return a.Spend > b.Spend
	}
	if !a.Date.Equal(b.Date) {
		return a.Date.After(b.Date)
	}
	if a.CampaignID != b.CampaignID {
		return a.CampaignID < b.CampaignID
	}
	if a.AdsetID != b.AdsetID {
		return a.AdsetID < b.AdsetID
	}
	return a.AdID < b.AdID
}
