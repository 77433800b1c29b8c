package ads

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/AngelCh415/attribution-etl/internal/models"
	"github.com/AngelCh415/attribution-etl/internal/utils"
)

// Derived returns CPM, CPC and CTR. Each is 0 when its denominator is 0.
func Derived(m models.AdMetrics) (cpm, cpc, ctr float64) {
	cpm = utils.SafeDiv(m.Spend, float64(m.Impressions)) * 1000
	cpc = utils.SafeDiv(m.Spend, float64(m.Clicks))
	ctr = utils.SafeDiv(float64(m.Clicks), float64(m.Impressions)) * 100
	return
}

func clean(m models.AdMetrics) models.AdMetrics {
	return models.AdMetrics{
		Impressions:      utils.Max0(m.Impressions),
		Clicks:           utils.Max0(m.Clicks),
		Spend:            utils.MaxF(m.Spend),
		Purchases:        utils.MaxF(m.Purchases),
		PurchaseValue:    utils.MaxF(m.PurchaseValue),
		AddToCart:        utils.Max0(m.AddToCart),
		InitiateCheckout: utils.Max0(m.InitiateCheckout),
		ViewContent:      utils.Max0(m.ViewContent),
		LinkClicks:       utils.Max0(m.LinkClicks),
	}
}

type dailyKey struct {
	date                     string
	campaignID, campaignName string
	adsetID, adsetName       string
	adID, adName             string
}

// RollupDaily sums hourly rows per (date, campaign, adset, ad). Ids are
// canonicalized first so float-formatted and integer ids land in one bucket.
// Output is ordered by date, then campaign, adset and ad id.
func RollupDaily(rows []models.AdPerformance) []models.DailyAd {
	idx := map[dailyKey]int{}
	var out []models.DailyAd
	for _, r := range rows {
		cid, _ := NormalizeID(r.CampaignID)
		sid, _ := NormalizeID(r.AdsetID)
		aid, _ := NormalizeID(r.AdID)
		k := dailyKey{
			date:       r.Date.Format(DateLayout),
			campaignID: cid, campaignName: strings.TrimSpace(r.CampaignName),
			adsetID: sid, adsetName: strings.TrimSpace(r.AdsetName),
			adID: aid, adName: strings.TrimSpace(r.AdName),
		}
		i, ok := idx[k]
		if !ok {
			out = append(out, models.DailyAd{
				Date:         Day(r.Date),
				CampaignID:   k.campaignID,
				CampaignName: k.campaignName,
				AdsetID:      k.adsetID,
				AdsetName:    k.adsetName,
				AdID:         k.adID,
				AdName:       k.adName,
			})
			i = len(out) - 1
			idx[k] = i
		}
		out[i].AdMetrics.Add(clean(r.AdMetrics))
	}
	for i := range out {
		out[i].CPM, out[i].CPC, out[i].CTR = Derived(out[i].AdMetrics)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.CampaignID != b.CampaignID {
			return a.CampaignID < b.CampaignID
		}
		if a.AdsetID != b.AdsetID {
			return a.AdsetID < b.AdsetID
		}
		if a.AdID != b.AdID {
			return a.AdID < b.AdID
		}
		return a.AdName < b.AdName
	})
	return out
}

// RollupHourly sums rows per granular key. Rows whose hour window carries no
// hour number are dropped and counted in the returned int.
func RollupHourly(rows []models.AdPerformance, log *slog.Logger) ([]models.HourlyAd, int) {
	if log == nil {
		log = utils.NopLogger()
	}
	idx := map[models.GranularKey]int{}
	var out []models.HourlyAd
	dropped := 0
	for _, r := range rows {
		hour, ok := NormalizeHourWindow(r.HourlyWindow)
		if !ok {
			dropped++
			continue
		}
		k := models.GranularKey{
			CampaignID:   KeyID(r.CampaignID),
			CampaignName: strings.TrimSpace(r.CampaignName),
			AdsetID:      KeyID(r.AdsetID),
			AdsetName:    strings.TrimSpace(r.AdsetName),
			AdID:         KeyID(r.AdID),
			AdName:       strings.TrimSpace(r.AdName),
			Date:         r.Date.Format(DateLayout),
			HourLabel:    hour,
		}
		i, ok := idx[k]
		if !ok {
			out = append(out, models.HourlyAd{GranularKey: k})
			i = len(out) - 1
			idx[k] = i
		}
		out[i].AdMetrics.Add(clean(r.AdMetrics))
	}
	if dropped > 0 {
		log.Warn("hourly ad rows without hour window dropped", slog.Int("dropped", dropped))
	}
	for i := range out {
		out[i].CPM, out[i].CPC, out[i].CTR = Derived(out[i].AdMetrics)
	}
	sort.SliceStable(out, func(i, j int) bool { return KeyLess(out[i].GranularKey, out[j].GranularKey) })
	return out, dropped
}

// KeyLess orders granular keys by date, hour, then the id/name columns.
func KeyLess(a, b models.GranularKey) bool {
	if a.Date != b.Date {
		return a.Date < b.Date
	}
	if a.HourLabel != b.HourLabel {
		return a.HourLabel < b.HourLabel
	}
	if a.CampaignID != b.CampaignID {
		return a.CampaignID < b.CampaignID
	}
	if a.AdsetID != b.AdsetID {
		return a.AdsetID < b.AdsetID
	}
	if a.AdID != b.AdID {
		return a.AdID < b.AdID
	}
	if a.CampaignName != b.CampaignName {
		return a.CampaignName < b.CampaignName
	}
	if a.AdsetName != b.AdsetName {
		return a.AdsetName < b.AdsetName
	}
	return a.AdName < b.AdName
}
