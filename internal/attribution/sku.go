package attribution

import (
	"strings"

	"github.com/AngelCh415/attribution-etl/internal/models"
	"github.com/AngelCh415/attribution-etl/internal/utils"
)

type nameKey struct{ campaign, adset, ad string }

type skuLine struct {
	product, variant string
	qty              int
	unitPrice        float64
	unitCost         float64
	revenue, cogs    float64
}

// DetailedSKUAttribution expands every attributed order into one row per
// SKU. Ad spend is the total spend of the order's ad across the run, looked
// up by campaign/adset/ad name. Lines sharing a SKU are summed.
func DetailedSKUAttribution(results []models.AttributionResult, orders []models.Order, raw []models.AdPerformance) []models.SKUAttribution {
	out := []models.SKUAttribution{}
	if len(results) == 0 {
		return out
	}

	spend := map[nameKey]float64{}
	for _, a := range raw {
		spend[nameKey{a.CampaignName, a.AdsetName, a.AdName}] += utils.MaxF(a.Spend)
	}
	byID := make(map[string]*models.Order, len(orders))
	for i := range orders {
		byID[orders[i].ID] = &orders[i]
	}

	for _, r := range results {
		if r.SKUs == "" || !r.IsAttributed {
			continue
		}
		o, ok := byID[r.OrderID]
		if !ok {
			continue
		}
		lines := map[string]*skuLine{}
		for _, li := range o.LineItems {
			sku := strings.TrimSpace(li.SKU)
			if sku == "" {
				continue
			}
			l, ok := lines[sku]
			if !ok {
				l = &skuLine{product: li.ProductTitle, variant: li.VariantTitle, unitPrice: li.UnitPrice(), unitCost: li.UnitCost}
				lines[sku] = l
			}
			l.qty += li.Quantity
			l.revenue += li.Revenue()
			l.cogs += li.COGS()
		}

		adSpend := 0.0
		if r.AdID != "" && r.CampaignName != "" && r.AdsetName != "" && r.AdName != "" {
			adSpend = spend[nameKey{r.CampaignName, r.AdsetName, r.AdName}]
		}

		for _, sku := range strings.Split(r.SKUs, ", ") {
			l, ok := lines[sku]
			if !ok {
				continue
			}
			profit := l.revenue - l.cogs
			margin := 0.0
			if l.revenue > 0 {
				margin = profit / l.revenue * 100
			}
			out = append(out, models.SKUAttribution{
				OrderID:         r.OrderID,
				OrderName:       r.OrderName,
				OrderDate:       r.OrderDate,
				OrderValue:      r.OrderValue,
				SKU:             sku,
				ProductTitle:    l.product,
				VariantTitle:    l.variant,
				Quantity:        l.qty,
				UnitPrice:       l.unitPrice,
				UnitCost:        l.unitCost,
				SKURevenue:      l.revenue,
				SKUCOGS:         l.cogs,
				SKUProfit:       profit,
				SKUProfitMargin: margin,
				CampaignID:      r.CampaignID,
				CampaignName:    r.CampaignName,
				AdsetID:         r.AdsetID,
				AdsetName:       r.AdsetName,
				AdID:            r.AdID,
				AdName:          r.AdName,
				AdSpend:         adSpend,
				SKUROAS:         utils.SafeDiv(l.revenue, adSpend),
				SKUNetProfit:    profit - adSpend,
				Channel:         r.Channel,

				AttributionSource: r.AttributionSource,
				UTMSource:         r.UTMSource,
				UTMMedium:         r.UTMMedium,
				UTMCampaign:       r.UTMCampaign,
				UTMContent:        r.UTMContent,
				UTMTerm:           r.UTMTerm,
			})
		}
	}
	return out
}
