package models

// Signals are the fields the Direct reclassification passes look at.
type Signals struct {
	CampaignName      string
	AttributionSource AttributionSource
	UTMCampaign       string
	UTMSource         string
	UTMMedium         string
}

func (r *AttributionResult) GetChannel() Channel { return r.Channel }

// SetChannel keeps IsPaidChannel in step with the channel.
func (r *AttributionResult) SetChannel(c Channel) {
	r.Channel = c
	r.IsPaidChannel = c.IsPaid()
}

func (r *AttributionResult) Signals() Signals {
	return Signals{
		CampaignName:      r.CampaignName,
		AttributionSource: r.AttributionSource,
		UTMCampaign:       r.UTMCampaign,
		UTMSource:         r.UTMSource,
		UTMMedium:         r.UTMMedium,
	}
}

func (g *GranularRow) GetChannel() Channel  { return g.Channel }
func (g *GranularRow) SetChannel(c Channel) { g.Channel = c }

func (g *GranularRow) Signals() Signals {
	return Signals{
		CampaignName:      g.CampaignName,
		AttributionSource: g.AttributionSource,
		UTMCampaign:       g.UTMCampaign,
		UTMSource:         g.UTMSource,
		UTMMedium:         g.UTMMedium,
	}
}
