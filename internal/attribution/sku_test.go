package attribution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/attribution-etl/internal/models"
)

func TestDetailedSKUAttribution(t *testing.T) {
	o := models.Order{ID: "1", Name: "#1", TotalPrice: 300, CustomerJourney: fbJourney, LineItems: []models.LineItem{
		{SKU: "TEE", ProductTitle: "Tee", Quantity: 2, DiscountedUnitPrice: 100, UnitCost: 40},
		{SKU: "CAP", ProductTitle: "Cap", Quantity: 1, OriginalUnitPrice: 100, UnitCost: 80},
	}}
	unattributed := models.Order{ID: "2", LineItems: []models.LineItem{{SKU: "TEE", Quantity: 1, DiscountedUnitPrice: 100}}}
	orders := []models.Order{o, unattributed}

	results, _ := NewProcessor(nil).Process(orders, []models.DailyAd{adDay("12345", 100)})
	require.Len(t, results, 2)

	raw := []models.AdPerformance{
		{CampaignName: "Summer Sale", AdsetName: "Broad", AdName: "Video 1", AdMetrics: models.AdMetrics{Spend: 30}},
		{CampaignName: "Summer Sale", AdsetName: "Broad", AdName: "Video 1", AdMetrics: models.AdMetrics{Spend: 20}},
		{CampaignName: "Other", AdsetName: "Broad", AdName: "Video 1", AdMetrics: models.AdMetrics{Spend: 999}},
	}
	rows := DetailedSKUAttribution(results, orders, raw)
	require.Len(t, rows, 2)

	capRow, teeRow := rows[0], rows[1]
	assert.Equal(t, "CAP", capRow.SKU)
	assert.InDelta(t, 20.0, capRow.SKUProfit, 1e-9)
	assert.InDelta(t, 20.0, capRow.SKUProfitMargin, 1e-9)
	assert.InDelta(t, 50.0, capRow.AdSpend, 1e-9)
	assert.InDelta(t, 2.0, capRow.SKUROAS, 1e-9)
	assert.InDelta(t, -30.0, capRow.SKUNetProfit, 1e-9)

	assert.Equal(t, "TEE", teeRow.SKU)
	assert.Equal(t, 2, teeRow.Quantity)
	assert.InDelta(t, 200.0, teeRow.SKURevenue, 1e-9)
	assert.InDelta(t, 80.0, teeRow.SKUCOGS, 1e-9)
	assert.Equal(t, models.ChannelMeta, teeRow.Channel)
	assert.Equal(t, "12345", teeRow.AdID)
}

func TestDetailedSKUAttribution_Empty(t *testing.T) {
	rows := DetailedSKUAttribution(nil, nil, nil)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestInvestigationSamples(t *testing.T) {
	orders := make([]models.Order, 120)
	for i := range orders {
		orders[i] = models.Order{ID: string(rune('a' + i%26))}
	}
	orders[0].CustomerJourney = `{"moments":[]}`
	orders[0].CustomAttributes = "[]"

	s := InvestigationSamples(orders)
	require.Len(t, s, 50)
	assert.True(t, s[0].HasCustomerJourney)
	assert.Equal(t, "{\n  \"moments\": []\n}", s[0].CustomerJourney)
	assert.False(t, s[0].HasCustomAttributes)
	assert.Equal(t, "No data", s[0].CustomAttributes)
	assert.Equal(t, "No data", s[1].CustomerJourney)
}
