package metrics

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/AngelCh415/attribution-etl/internal/models"
	"github.com/AngelCh415/attribution-etl/internal/store"
	"github.com/AngelCh415/attribution-etl/internal/utils"
)

// Service answers read queries over the latest stored run.
type Service struct{ st *store.MemoryStore }

func NewService(st *store.MemoryStore) *Service { return &Service{st: st} }
func norm(s string) string                      { return strings.ToLower(strings.TrimSpace(s)) }

func csvSet(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, p := range strings.Split(s, ",") {
		p = norm(p)
		if p != "" {
			out[p] = struct{}{}
		}
	}
	return out
}

// QueryGranular filters granular rows by from/to (YYYY-MM-DD), a
// comma-separated channel list and limit/offset.
func (s *Service) QueryGranular(v url.Values) []models.GranularRow {
	from, _ := time.Parse("2006-01-02", v.Get("from"))
	to, _ := time.Parse("2006-01-02", v.Get("to"))
	chSet := csvSet(v.Get("channel"))
	limit := atoiDef(v.Get("limit"), 100)
	offset := atoiDef(v.Get("offset"), 0)

	rows := s.st.Query(from, to, func(g models.GranularRow) bool {
		if len(chSet) > 0 {
			if _, ok := chSet[norm(string(g.Channel))]; !ok {
				return false
			}
		}
		return true
	})
	// deterministic order
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.HourLabel != b.HourLabel {
			return a.HourLabel < b.HourLabel
		}
		if a.ShopifyRevenue != b.ShopifyRevenue {
			return a.ShopifyRevenue > b.ShopifyRevenue
		}
		if a.CampaignID != b.CampaignID {
			return a.CampaignID < b.CampaignID
		}
		return a.AdID < b.AdID
	})

	limit, offset = clampLimitOffset(limit, offset, len(rows))
	return paginate(rows, limit, offset)
}

type funnelKey struct{ date, campaign, source, medium string }

// QueryFunnel groups granular rows by day and UTM triple. utm_* params
// filter case-insensitively.
func (s *Service) QueryFunnel(v url.Values) []models.FunnelMetrics {
	from, _ := time.Parse("2006-01-02", v.Get("from"))
	to, _ := time.Parse("2006-01-02", v.Get("to"))
	utmC := norm(v.Get("utm_campaign"))
	utmS := norm(v.Get("utm_source"))
	utmM := norm(v.Get("utm_medium"))
	limit := atoiDef(v.Get("limit"), 100)
	offset := atoiDef(v.Get("offset"), 0)

	rows := s.st.Query(from, to, func(g models.GranularRow) bool {
		if utmC != "" && norm(g.UTMCampaign) != utmC {
			return false
		}
		if utmS != "" && norm(g.UTMSource) != utmS {
			return false
		}
		if utmM != "" && norm(g.UTMMedium) != utmM {
			return false
		}
		return true
	})

	idx := map[funnelKey]int{}
	var out []models.FunnelMetrics
	for _, g := range rows {
		k := funnelKey{g.Date, g.UTMCampaign, g.UTMSource, g.UTMMedium}
		i, ok := idx[k]
		if !ok {
			out = append(out, models.FunnelMetrics{Date: k.date, UTMCampaign: k.campaign, UTMSource: k.source, UTMMedium: k.medium})
			i = len(out) - 1
			idx[k] = i
		}
		f := &out[i]
		f.Impressions += g.Impressions
		f.Clicks += g.Clicks
		f.Spend += g.Spend
		f.Orders += g.ShopifyOrders
		f.Revenue += g.ShopifyRevenue
		f.COGS += g.ShopifyCOGS
	}
	for i := range out {
		f := &out[i]
		f.Spend = utils.Round2(f.Spend)
		f.Revenue = utils.Round2(f.Revenue)
		f.COGS = utils.Round2(f.COGS)
		f.CPC = utils.Round3(utils.SafeDiv(f.Spend, float64(f.Clicks)))
		f.ROAS = utils.Round2(utils.SafeDiv(f.Revenue, f.Spend))
		f.AOV = utils.Round2(utils.SafeDiv(f.Revenue, float64(f.Orders)))
		f.CVR = utils.Round3(utils.SafeDiv(float64(f.Orders), float64(f.Clicks)))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.UTMCampaign != b.UTMCampaign {
			return a.UTMCampaign < b.UTMCampaign
		}
		if a.UTMSource != b.UTMSource {
			return a.UTMSource < b.UTMSource
		}
		return a.UTMMedium < b.UTMMedium
	})

	limit, offset = clampLimitOffset(limit, offset, len(out))
	return paginate(out, limit, offset)
}

func paginate[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func atoiDef(s string, d int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

func clampLimitOffset(limit, offset, n int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = n
	}
	if limit > 1000 {
		limit = 1000
	} // upper bound per page
	if offset > n {
		offset = n
	}
	return limit, offset
}
