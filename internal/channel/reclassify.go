package channel

import (
	"strings"

	"github.com/AngelCh415/attribution-etl/internal/models"
)

// Row is anything carrying a channel plus reclassification signals.
type Row interface {
	GetChannel() models.Channel
	SetChannel(models.Channel)
	Signals() models.Signals
}

func filled(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && s != "null"
}

// hasCampaignEvidence: a real campaign name (not an "Unknown ..." placeholder),
// any successful extractor, or a utm_campaign value.
func hasCampaignEvidence(s models.Signals) bool {
	return (filled(s.CampaignName) && !strings.Contains(s.CampaignName, "Unknown")) ||
		s.AttributionSource != models.SourceNone ||
		filled(s.UTMCampaign)
}

func hasSourceEvidence(s models.Signals) bool {
	return filled(s.UTMSource) || filled(s.UTMMedium)
}

// Reclassify runs the two global Direct corrections in order: Direct rows
// with campaign evidence become Meta, then the remaining Direct rows with a
// utm source or medium become Organic. Both passes are idempotent.
func Reclassify[R Row](rows []R) (toMeta, toOrganic int) {
	for _, r := range rows {
		if r.GetChannel() == models.ChannelDirect && hasCampaignEvidence(r.Signals()) {
			r.SetChannel(models.ChannelMeta)
			toMeta++
		}
	}
	for _, r := range rows {
		if r.GetChannel() == models.ChannelDirect && hasSourceEvidence(r.Signals()) {
			r.SetChannel(models.ChannelOrganic)
			toOrganic++
		}
	}
	return toMeta, toOrganic
}
