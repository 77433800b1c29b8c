package models

// Channel is the marketing channel an order is attributed to.
type Channel string

const (
	ChannelMeta    Channel = "Meta"
	ChannelGoogle  Channel = "Google"
	ChannelOrganic Channel = "Organic"
	ChannelDirect  Channel = "Direct"
)

// Channels lists every channel in reporting order.
var Channels = []Channel{ChannelMeta, ChannelGoogle, ChannelOrganic, ChannelDirect}

// IsPaid reports whether ad spend can exist for the channel.
func (c Channel) IsPaid() bool { return c == ChannelMeta || c == ChannelGoogle }

// Trackable channels get an "Unknown Campaign" placeholder when no ad matches.
func (c Channel) Trackable() bool {
	return c == ChannelMeta || c == ChannelGoogle || c == ChannelOrganic
}

// AttributionType says which UTM field supplied the attribution id.
type AttributionType string

const (
	AttributionContent  AttributionType = "content"
	AttributionCampaign AttributionType = "campaign"
	AttributionMedium   AttributionType = "medium"
)

// AttributionSource names the extractor that produced an order's attribution.
// The zero value means no extractor succeeded.
type AttributionSource string

const (
	SourceNone             AttributionSource = ""
	SourceCustomerJourney  AttributionSource = "customer_journey"
	SourceCustomAttributes AttributionSource = "custom_attributes"
	SourceDirectUTM        AttributionSource = "direct_utm"
)
