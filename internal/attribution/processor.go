// Package attribution turns orders into one AttributionResult each: UTM
// extraction, channel classification, campaign matching and order financials.
package attribution

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/AngelCh415/attribution-etl/internal/channel"
	"github.com/AngelCh415/attribution-etl/internal/matcher"
	"github.com/AngelCh415/attribution-etl/internal/models"
	"github.com/AngelCh415/attribution-etl/internal/utils"
	"github.com/AngelCh415/attribution-etl/internal/utm"
)

// ErrInvalidOrder marks orders rejected before attribution.
var ErrInvalidOrder = errors.New("attribution: invalid order")

const progressEvery = 100

// Stats summarizes one Process call.
type Stats struct {
	Orders    int // orders handed in
	Processed int
	Skipped   int
	Matched   int // mapped to a real ad row
	Unknown   int // mapped to an Unknown placeholder
	ToMeta    int
	ToOrganic int
	Channels  map[models.Channel]int
}

// MatchRate is Matched over Processed, in percent.
func (s Stats) MatchRate() float64 {
	return utils.SafeDiv(float64(s.Matched), float64(s.Processed)) * 100
}

type Processor struct {
	log *slog.Logger
	ext *utm.Extractor
}

func NewProcessor(log *slog.Logger) *Processor {
	if log == nil {
		log = utils.NopLogger()
	}
	return &Processor{log: log, ext: utm.NewExtractor(log)}
}

// Process attributes every order. A failing order is logged and left out;
// the batch always completes. The Direct reclassification passes run once
// over the whole result set at the end.
func (p *Processor) Process(orders []models.Order, daily []models.DailyAd) ([]models.AttributionResult, Stats) {
	st := Stats{Orders: len(orders), Channels: map[models.Channel]int{}}
	results := make([]models.AttributionResult, 0, len(orders))
	if len(orders) == 0 {
		p.log.Warn("no orders to attribute")
		return results, st
	}
	if len(daily) == 0 {
		p.log.Warn("no ad rows; every order falls back to placeholders")
	}

	m := matcher.New(daily)
	for i, o := range orders {
		res, kind, err := p.processOrder(o, m)
		if err != nil {
			st.Skipped++
			p.log.Error("order skipped", slog.String("order_id", o.ID), slog.String("err", err.Error()))
		} else {
			results = append(results, res)
			switch kind {
			case matcher.Matched:
				st.Matched++
			case matcher.Unknown:
				st.Unknown++
			}
		}
		if (i+1)%progressEvery == 0 {
			p.log.Info("attribution progress", slog.Int("done", i+1), slog.Int("total", len(orders)))
		}
	}
	st.Processed = len(results)

	ptrs := make([]*models.AttributionResult, len(results))
	for i := range results {
		ptrs[i] = &results[i]
	}
	st.ToMeta, st.ToOrganic = channel.Reclassify(ptrs)
	if st.ToMeta > 0 || st.ToOrganic > 0 {
		p.log.Info("direct orders reclassified", slog.Int("to_meta", st.ToMeta), slog.Int("to_organic", st.ToOrganic))
	}

	for _, r := range results {
		st.Channels[r.Channel]++
	}
	args := []any{
		slog.Int("processed", st.Processed),
		slog.Int("skipped", st.Skipped),
		slog.Int("matched", st.Matched),
		slog.Float64("match_rate_pct", utils.Round2(st.MatchRate())),
	}
	for _, c := range models.Channels {
		args = append(args, slog.Int(strings.ToLower(string(c)), st.Channels[c]))
	}
	p.log.Info("attribution complete", args...)
	return results, st
}

func (p *Processor) processOrder(o models.Order, m *matcher.Matcher) (res models.AttributionResult, kind matcher.Kind, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if err := validate(o); err != nil {
		return res, matcher.None, err
	}

	rec, src := p.ext.Extract(o)
	ch := channel.ClassifyRecord(rec)
	var mp matcher.Mapping
	switch {
	case rec != nil:
		mp = m.Match(rec, ch)
	case ch.Trackable():
		// a Meta guess without any attribution id is not evidence of paid traffic
		if ch == models.ChannelMeta {
			ch = models.ChannelOrganic
		}
		mp = matcher.Placeholder(ch)
	default:
		ch = channel.InferFromOrderPatterns(o)
		mp = matcher.Placeholder(ch)
	}
	p.log.Debug("order classified",
		slog.String("order_id", o.ID),
		slog.String("source", string(src)),
		slog.String("channel", string(ch)),
		slog.String("mapping", mp.Kind.String()))

	res = models.AttributionResult{
		OrderID:       o.ID,
		OrderName:     o.Name,
		OrderDate:     o.CreatedAt,
		OrderValue:    o.TotalPrice,
		OrderCurrency: o.Currency,
		ShipCity:      o.ShipCity,
		ShipProvince:  o.ShipProvince,
		ShipCountry:   o.ShipCountry,

		AttributionSource:   src,
		HasCustomerJourney:  !utm.IsNullLike(o.CustomerJourney),
		HasCustomAttributes: !utm.IsNullLike(o.CustomAttributes),
		IsAttributed:        src != models.SourceNone,

		CampaignID:   mp.Ref.CampaignID,
		CampaignName: mp.Ref.CampaignName,
		AdsetID:      mp.Ref.AdsetID,
		AdsetName:    mp.Ref.AdsetName,
		AdID:         mp.Ref.AdID,
		AdName:       mp.Ref.AdName,
	}
	res.SetChannel(ch)
	if rec != nil {
		res.AttributionID = rec.AttributionID
		res.AttributionType = rec.AttributionType
		res.UTMSource = rec.Source
		res.UTMMedium = rec.Medium
		res.UTMCampaign = rec.Campaign
		res.UTMContent = rec.Content
		res.UTMTerm = rec.Term
	}
	applyFinancials(&res, o.LineItems)
	return res, mp.Kind, nil
}

func validate(o models.Order) error {
	if strings.TrimSpace(o.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidOrder)
	}
	if math.IsNaN(o.TotalPrice) || math.IsInf(o.TotalPrice, 0) || o.TotalPrice < 0 {
		return fmt.Errorf("%w: total %v", ErrInvalidOrder, o.TotalPrice)
	}
	for _, li := range o.LineItems {
		if li.Quantity < 0 {
			return fmt.Errorf("%w: line %q quantity %d", ErrInvalidOrder, li.SKU, li.Quantity)
		}
	}
	return nil
}

// applyFinancials sums COGS and SKU quantities across line items. SKUs is
// the sorted distinct SKU list joined by ", ".
func applyFinancials(res *models.AttributionResult, items []models.LineItem) {
	res.LineItemsCount = len(items)
	qty := map[string]int{}
	for _, li := range items {
		res.TotalCOGS += li.COGS()
		sku := strings.TrimSpace(li.SKU)
		if sku == "" {
			continue
		}
		qty[sku] += li.Quantity
	}
	if len(qty) == 0 {
		return
	}
	skus := make([]string, 0, len(qty))
	for s, q := range qty {
		skus = append(skus, s)
		res.TotalSKUQuantity += q
	}
	sort.Strings(skus)
	res.SKUs = strings.Join(skus, ", ")
	res.UniqueSKUCount = len(skus)
	res.SKUQuantities = qty
}
