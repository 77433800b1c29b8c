package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/attribution-etl/internal/models"
)

func result(id string, ch models.Channel, src models.AttributionSource, value float64, campaign string) models.AttributionResult {
	return models.AttributionResult{
		OrderID: id, Channel: ch, AttributionSource: src, OrderValue: value, TotalCOGS: value / 4,
		IsAttributed: src != models.SourceNone,
		CampaignName: campaign, AdsetName: "set", AdName: "ad",
	}
}

func TestSummarize(t *testing.T) {
	results := []models.AttributionResult{
		result("1", models.ChannelMeta, models.SourceCustomerJourney, 100, "Summer"),
		result("2", models.ChannelMeta, models.SourceCustomerJourney, 300, "Summer"),
		result("3", models.ChannelGoogle, models.SourceDirectUTM, 50, "Search"),
		result("4", models.ChannelDirect, models.SourceNone, 50, ""),
	}
	daily := []models.DailyAd{
		{CampaignName: "Summer", AdsetName: "set", AdName: "ad", AdMetrics: models.AdMetrics{Spend: 100, Impressions: 1000, Clicks: 10}},
		{CampaignName: "Summer", AdsetName: "set", AdName: "ad", AdMetrics: models.AdMetrics{Spend: 100, Impressions: 1000, Clicks: 10}},
	}

	s := Summarize(results, daily)
	assert.Equal(t, 4, s.TotalOrders)
	assert.InDelta(t, 500.0, s.TotalRevenue, 1e-9)
	assert.Equal(t, 3, s.AttributedOrders)
	assert.InDelta(t, 75.0, s.AttributionRate, 1e-9)

	require.Len(t, s.ChannelBreakdown, 3)
	assert.Equal(t, models.Breakdown{Key: "Meta", Orders: 2, Revenue: 400, Percentage: 50}, s.ChannelBreakdown[0])

	require.Len(t, s.SourceBreakdown, 2)
	assert.Equal(t, "customer_journey", s.SourceBreakdown[0].Key)
	assert.InDelta(t, 25.0, s.SourceBreakdown[1].Percentage, 1e-9)

	require.Len(t, s.CampaignPerformance, 2)
	p := s.CampaignPerformance[0]
	assert.Equal(t, "Summer", p.CampaignName)
	assert.Equal(t, 2, p.Orders)
	assert.InDelta(t, 400.0, p.TotalSales, 1e-9)
	assert.InDelta(t, 100.0, p.TotalCOGS, 1e-9)
	assert.InDelta(t, 200.0, p.AdSpend, 1e-9)
	assert.InDelta(t, 2.0, p.ROAS, 1e-9)
	assert.InDelta(t, 1.0, p.CTR, 1e-9)
	assert.InDelta(t, 10.0, p.ConversionRate, 1e-9)
	assert.InDelta(t, 200.0, p.AvgOrderValue, 1e-9)

	noAds := s.CampaignPerformance[1]
	assert.Equal(t, "Search", noAds.CampaignName)
	assert.Zero(t, noAds.ROAS)
	assert.Zero(t, noAds.CTR)
	assert.Zero(t, noAds.ConversionRate)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, nil)
	assert.Zero(t, s.TotalOrders)
	assert.Zero(t, s.AttributionRate)
	assert.NotNil(t, s.ChannelBreakdown)
	assert.NotNil(t, s.SourceBreakdown)
	assert.NotNil(t, s.CampaignPerformance)
}
