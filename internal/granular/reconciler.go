// Package granular joins hourly ad delivery with order activity into one row
// per (campaign, adset, ad, date, hour) key.
package granular

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/AngelCh415/attribution-etl/internal/ads"
	"github.com/AngelCh415/attribution-etl/internal/channel"
	"github.com/AngelCh415/attribution-etl/internal/models"
	"github.com/AngelCh415/attribution-etl/internal/utils"
)

// Stats describes one Reconcile call.
type Stats struct {
	Rows      int
	Joined    int // keys with both ads and orders
	AdOnly    int
	OrderOnly int
	Untimed   int // orders with no usable timestamp, left out
	Collapsed int // duplicate keys merged by the final guard
	ToMeta    int
	ToOrganic int
}

type Reconciler struct {
	log *slog.Logger
	loc *time.Location
}

// NewReconciler buckets order timestamps in loc (the store's timezone).
func NewReconciler(log *slog.Logger, loc *time.Location) *Reconciler {
	if log == nil {
		log = utils.NopLogger()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Reconciler{log: log, loc: loc}
}

// orderAgg accumulates the orders that share one key.
type orderAgg struct {
	row *models.GranularRow
	ids map[string]struct{}
}

// Reconcile returns at most one row per granular key. orders is only read to
// recover timestamps for results whose OrderDate is unset.
func (r *Reconciler) Reconcile(results []models.AttributionResult, hourly []models.HourlyAd, orders []models.Order) ([]models.GranularRow, Stats) {
	var st Stats
	if len(results) == 0 && len(hourly) == 0 {
		r.log.Warn("no orders or hourly ads to reconcile")
		return []models.GranularRow{}, st
	}

	raw := make(map[string]string, len(orders))
	for _, o := range orders {
		raw[o.ID] = o.CreatedAtRaw
	}

	// orders, aggregated once per key
	byKey := map[models.GranularKey]*orderAgg{}
	var keys []models.GranularKey
	for _, res := range results {
		ts, ok := r.orderTime(res, raw)
		if !ok {
			st.Untimed++
			r.log.Warn("order has no usable timestamp", slog.String("order_id", res.OrderID))
			continue
		}
		k := models.GranularKey{
			CampaignID:   ads.KeyID(res.CampaignID),
			CampaignName: strings.TrimSpace(res.CampaignName),
			AdsetID:      ads.KeyID(res.AdsetID),
			AdsetName:    strings.TrimSpace(res.AdsetName),
			AdID:         ads.KeyID(res.AdID),
			AdName:       strings.TrimSpace(res.AdName),
			Date:         ts.Format(ads.DateLayout),
			HourLabel:    ads.TimeHourLabel(ts),
		}
		a, ok := byKey[k]
		if !ok {
			a = &orderAgg{row: &models.GranularRow{GranularKey: k, HasOrders: true}, ids: map[string]struct{}{}}
			byKey[k] = a
			keys = append(keys, k)
		}
		addOrder(a, res)
	}

	// full outer join on the key
	rows := make([]*models.GranularRow, 0, len(hourly)+len(keys))
	joined := map[models.GranularKey]bool{}
	for _, h := range hourly {
		g := &models.GranularRow{GranularKey: h.GranularKey, HasAdData: true}
		setAdMetrics(g, h.AdMetrics)
		if a, ok := byKey[h.GranularKey]; ok && !joined[h.GranularKey] {
			mergeOrders(g, a)
			joined[h.GranularKey] = true
			st.Joined++
		} else {
			st.AdOnly++
		}
		rows = append(rows, g)
	}
	var orderOnly []*models.GranularRow
	for _, k := range keys {
		if joined[k] {
			continue
		}
		g := byKey[k].row
		finishOrders(g, byKey[k])
		rows = append(rows, g)
		orderOnly = append(orderOnly, g)
	}
	st.OrderOnly = len(orderOnly)

	// second classification pass, then the Direct corrections
	for _, g := range rows {
		if !g.HasOrders {
			continue
		}
		if c := channel.Classify(g.UTMSource, g.UTMMedium, g.UTMCampaign, g.UTMContent, g.UTMTerm); c != models.ChannelDirect {
			g.Channel = c
		}
	}
	st.ToMeta, st.ToOrganic = channel.Reclassify(rows)

	for _, g := range orderOnly {
		renameUnmatched(g)
	}

	out, collapsed := dedupe(rows)
	st.Collapsed = collapsed
	if collapsed > 0 {
		r.log.Info("duplicate granular keys collapsed", slog.Int("collapsed", collapsed))
	}
	sortRows(out)
	st.Rows = len(out)

	r.log.Info("granular reconcile complete",
		slog.Int("rows", st.Rows),
		slog.Int("joined", st.Joined),
		slog.Int("ad_only", st.AdOnly),
		slog.Int("order_only", st.OrderOnly),
		slog.Int("untimed", st.Untimed))
	return out, st
}

// orderTime is OrderDate in the store timezone, or the raw created_at
// re-parsed when OrderDate is unset.
func (r *Reconciler) orderTime(res models.AttributionResult, raw map[string]string) (time.Time, bool) {
	if !res.OrderDate.IsZero() {
		return res.OrderDate.In(r.loc), true
	}
	return utils.ParseLocalTime(raw[res.OrderID], r.loc)
}

func addOrder(a *orderAgg, res models.AttributionResult) {
	g := a.row
	a.ids[res.OrderID] = struct{}{}
	g.ShopifyRevenue += res.OrderValue
	g.ShopifyCOGS += res.TotalCOGS
	g.TotalSKUQuantity += res.TotalSKUQuantity
	if g.Channel == "" {
		g.Channel = res.Channel
	}
	if g.AttributionSource == models.SourceNone {
		g.AttributionSource = res.AttributionSource
	}
	first(&g.UTMSource, res.UTMSource)
	first(&g.UTMMedium, res.UTMMedium)
	first(&g.UTMCampaign, res.UTMCampaign)
	first(&g.UTMContent, res.UTMContent)
	first(&g.UTMTerm, res.UTMTerm)
}

func first(dst *string, v string) {
	if *dst == "" && strings.TrimSpace(v) != "" {
		*dst = v
	}
}

func finishOrders(g *models.GranularRow, a *orderAgg) {
	ids := make([]string, 0, len(a.ids))
	for id := range a.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	g.ShopifyOrders = len(ids)
	g.OrderIDs = strings.Join(ids, ", ")
}

func mergeOrders(g *models.GranularRow, a *orderAgg) {
	finishOrders(a.row, a)
	o := a.row
	g.HasOrders = true
	g.ShopifyOrders = o.ShopifyOrders
	g.ShopifyRevenue = o.ShopifyRevenue
	g.ShopifyCOGS = o.ShopifyCOGS
	g.TotalSKUQuantity = o.TotalSKUQuantity
	g.OrderIDs = o.OrderIDs
	g.Channel = o.Channel
	g.AttributionSource = o.AttributionSource
	g.UTMSource = o.UTMSource
	g.UTMMedium = o.UTMMedium
	g.UTMCampaign = o.UTMCampaign
	g.UTMContent = o.UTMContent
	g.UTMTerm = o.UTMTerm
}

func setAdMetrics(g *models.GranularRow, m models.AdMetrics) {
	g.Spend = m.Spend
	g.Impressions = m.Impressions
	g.Clicks = m.Clicks
	g.PlatformPurchases = m.Purchases
	g.PlatformPurchaseValue = m.PurchaseValue
	g.CPM, g.CPC, g.CTR = ads.Derived(m)
}

// renameUnmatched labels an order row no ad row joined with by its final
// channel and clears its ad metrics.
func renameUnmatched(g *models.GranularRow) {
	label := string(g.Channel)
	if label == "" {
		label = "Direct/Unknown"
	}
	g.CampaignName = "Unknown Campaign - " + label
	g.AdsetName = "Unknown Adset - " + label
	g.AdName = "Unknown Ad - " + label
	setAdMetrics(g, models.AdMetrics{})
}

// dedupe merges rows sharing a key: numeric fields are summed, categorical
// fields keep the first value and order ids are unioned.
func dedupe(rows []*models.GranularRow) ([]models.GranularRow, int) {
	idx := map[models.GranularKey]int{}
	out := make([]models.GranularRow, 0, len(rows))
	collapsed := 0
	for _, g := range rows {
		i, ok := idx[g.GranularKey]
		if !ok {
			idx[g.GranularKey] = len(out)
			out = append(out, *g)
			continue
		}
		collapsed++
		d := &out[i]
		d.Spend += g.Spend
		d.Impressions += g.Impressions
		d.Clicks += g.Clicks
		d.PlatformPurchases += g.PlatformPurchases
		d.PlatformPurchaseValue += g.PlatformPurchaseValue
		d.CPM, d.CPC, d.CTR = ads.Derived(models.AdMetrics{Spend: d.Spend, Impressions: d.Impressions, Clicks: d.Clicks})
		d.ShopifyRevenue += g.ShopifyRevenue
		d.ShopifyCOGS += g.ShopifyCOGS
		d.TotalSKUQuantity += g.TotalSKUQuantity
		d.OrderIDs = unionIDs(d.OrderIDs, g.OrderIDs)
		if d.OrderIDs != "" {
			d.ShopifyOrders = len(strings.Split(d.OrderIDs, ", "))
		}
		d.HasAdData = d.HasAdData || g.HasAdData
		d.HasOrders = d.HasOrders || g.HasOrders
		if d.Channel == "" {
			d.Channel = g.Channel
		}
		if d.AttributionSource == models.SourceNone {
			d.AttributionSource = g.AttributionSource
		}
		first(&d.UTMSource, g.UTMSource)
		first(&d.UTMMedium, g.UTMMedium)
		first(&d.UTMCampaign, g.UTMCampaign)
		first(&d.UTMContent, g.UTMContent)
		first(&d.UTMTerm, g.UTMTerm)
	}
	return out, collapsed
}

func unionIDs(a, b string) string {
	set := map[string]struct{}{}
	for _, s := range []string{a, b} {
		for _, id := range strings.Split(s, ", ") {
			if id != "" {
				set[id] = struct{}{}
			}
		}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return strings.Join(ids, ", ")
}

// sortRows orders by date and hour ascending, then revenue descending.
func sortRows(rows []models.GranularRow) {
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
		return ads.KeyLess(a.GranularKey, b.GranularKey)
	})
}
