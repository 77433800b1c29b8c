package metrics

import (
	"sort"

	"github.com/AngelCh415/attribution-etl/internal/models"
	"github.com/AngelCh415/attribution-etl/internal/utils"
)

type perfKey struct {
	campaign, adset, ad string
	channel             models.Channel
}

type namesKey struct{ campaign, adset, ad string }

// Summarize builds the run report. The source breakdown lists attributed
// orders only, with percentages of all orders. Campaign performance covers attributed
// orders with a campaign name; ad delivery is joined by campaign/adset/ad
// name. Platform-reported purchases are not used.
func Summarize(results []models.AttributionResult, daily []models.DailyAd) models.Summary {
	s := models.Summary{
		ChannelBreakdown:    []models.Breakdown{},
		SourceBreakdown:     []models.Breakdown{},
		CampaignPerformance: []models.CampaignPerformance{},
	}
	s.TotalOrders = len(results)
	if s.TotalOrders == 0 {
		return s
	}

	channels := map[string]*models.Breakdown{}
	sources := map[string]*models.Breakdown{}
	perf := map[perfKey]*models.CampaignPerformance{}
	for _, r := range results {
		s.TotalRevenue += r.OrderValue
		bump(channels, string(r.Channel), r.OrderValue)
		if !r.IsAttributed {
			continue
		}
		bump(sources, string(r.AttributionSource), r.OrderValue)
		s.AttributedOrders++
		if r.CampaignName == "" {
			continue
		}
		k := perfKey{r.CampaignName, r.AdsetName, r.AdName, r.Channel}
		p, ok := perf[k]
		if !ok {
			p = &models.CampaignPerformance{CampaignName: k.campaign, AdsetName: k.adset, AdName: k.ad, Channel: k.channel}
			perf[k] = p
		}
		p.Orders++
		p.TotalSales += r.OrderValue
		p.TotalCOGS += r.TotalCOGS
	}
	s.AttributionRate = utils.SafeDiv(float64(s.AttributedOrders), float64(s.TotalOrders)) * 100
	s.ChannelBreakdown = breakdowns(channels, s.TotalOrders)
	s.SourceBreakdown = breakdowns(sources, s.TotalOrders)

	delivery := map[namesKey]models.AdMetrics{}
	for _, d := range daily {
		k := namesKey{d.CampaignName, d.AdsetName, d.AdName}
		m := delivery[k]
		m.Impressions += d.Impressions
		m.Clicks += d.Clicks
		m.Spend += d.Spend
		delivery[k] = m
	}
	for _, p := range perf {
		m := delivery[namesKey{p.CampaignName, p.AdsetName, p.AdName}]
		p.AdImpressions = m.Impressions
		p.AdClicks = m.Clicks
		p.AdSpend = m.Spend
		p.ROAS = utils.SafeDiv(p.TotalSales, p.AdSpend)
		p.CTR = utils.SafeDiv(float64(p.AdClicks), float64(p.AdImpressions)) * 100
		p.ConversionRate = utils.SafeDiv(float64(p.Orders), float64(p.AdClicks)) * 100
		p.AvgOrderValue = utils.SafeDiv(p.TotalSales, float64(p.Orders))
		s.CampaignPerformance = append(s.CampaignPerformance, *p)
	}
	sort.Slice(s.CampaignPerformance, func(i, j int) bool {
		a, b := s.CampaignPerformance[i], s.CampaignPerformance[j]
		if a.TotalSales != b.TotalSales {
			return a.TotalSales > b.TotalSales
		}
		if a.CampaignName != b.CampaignName {
			return a.CampaignName < b.CampaignName
		}
		if a.AdsetName != b.AdsetName {
			return a.AdsetName < b.AdsetName
		}
		if a.AdName != b.AdName {
			return a.AdName < b.AdName
		}
		return a.Channel < b.Channel
	})
	return s
}

func bump(m map[string]*models.Breakdown, key string, revenue float64) {
	b, ok := m[key]
	if !ok {
		b = &models.Breakdown{Key: key}
		m[key] = b
	}
	b.Orders++
	b.Revenue += revenue
}

// breakdowns sorts by orders descending, then key.
func breakdowns(m map[string]*models.Breakdown, total int) []models.Breakdown {
	out := make([]models.Breakdown, 0, len(m))
	for _, b := range m {
		b.Percentage = utils.SafeDiv(float64(b.Orders), float64(total)) * 100
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Orders != out[j].Orders {
			return out[i].Orders > out[j].Orders
		}
		return out[i].Key < out[j].Key
	})
	return out
}
