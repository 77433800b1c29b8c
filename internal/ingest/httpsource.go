package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/AngelCh415/attribution-etl/internal/models"
	"github.com/AngelCh415/attribution-etl/internal/utils"
)

// flex takes a JSON string, number, bool or null as text. Ad ids and some
// amounts arrive unquoted depending on the exporter.
type flex string

func (f *flex) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flex(s)
	default:
		*f = flex(b)
	}
	return nil
}

// payload keeps an embedded JSON document as text whether it was sent as
// an object/array or as a JSON-encoded string.
type payload string

func (p *payload) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*p = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = payload(s)
	default:
		*p = payload(b)
	}
	return nil
}

type lineItemResp struct {
	SKU                 string  `json:"sku"`
	Title               string  `json:"product_title"`
	VariantTitle        string  `json:"variant_title"`
	Quantity            int     `json:"quantity"`
	OriginalUnitPrice   float64 `json:"original_unit_price_amount"`
	DiscountedUnitPrice float64 `json:"discounted_unit_price_amount"`
	UnitCost            float64 `json:"unit_cost_amount"`
}

type orderResp struct {
	OrderID          flex           `json:"order_id"`
	OrderName        string         `json:"order_name"`
	CreatedAtIST     string         `json:"created_at_ist"`
	TotalPrice       float64        `json:"total_price_amount"`
	Currency         string         `json:"total_price_currency"`
	ShipCity         string         `json:"ship_city"`
	ShipProvince     string         `json:"ship_province"`
	ShipCountry      string         `json:"ship_country"`
	ReferrerURL      string         `json:"customer_referrer_url"`
	UTMSource        string         `json:"customer_utm_source"`
	UTMMedium        string         `json:"customer_utm_medium"`
	UTMCampaign      string         `json:"customer_utm_campaign"`
	UTMContent       string         `json:"customer_utm_content"`
	UTMTerm          string         `json:"customer_utm_term"`
	CustomerJourney  payload        `json:"customer_journey"`
	CustomAttributes payload        `json:"custom_attributes"`
	LineItems        []lineItemResp `json:"line_items"`
}

type adResp struct {
	CampaignID       flex    `json:"campaign_id"`
	CampaignName     string  `json:"campaign_name"`
	AdsetID          flex    `json:"adset_id"`
	AdsetName        string  `json:"adset_name"`
	AdID             flex    `json:"ad_id"`
	AdName           string  `json:"ad_name"`
	DateStart        string  `json:"date_start"`
	HourlyWindow     flex    `json:"hourly_window"`
	Impressions      float64 `json:"impressions"`
	Clicks           float64 `json:"clicks"`
	Spend            float64 `json:"spend"`
	Purchases        float64 `json:"action_onsite_web_purchase"`
	PurchaseValue    float64 `json:"value_onsite_web_purchase"`
	AddToCart        float64 `json:"action_onsite_web_add_to_cart"`
	InitiateCheckout float64 `json:"action_onsite_web_initiate_checkout"`
	ViewContent      float64 `json:"action_onsite_web_view_content"`
	LinkClicks       float64 `json:"action_link_click"`
}

// HTTPSource pulls orders and ads from JSON APIs that accept from/to
// query parameters (YYYY-MM-DD).
type HTTPSource struct {
	c         HTTPClient
	backoff   utils.Backoff
	ordersURL string
	adsURL    string
	loc       *time.Location
	log       *slog.Logger
}

func NewHTTPSource(c HTTPClient, ordersURL, adsURL string, loc *time.Location, log *slog.Logger) *HTTPSource {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = utils.NopLogger()
	}
	return &HTTPSource{
		c:         c,
		backoff:   utils.NewBackoff(100*time.Millisecond, 2),
		ordersURL: ordersURL,
		adsURL:    adsURL,
		loc:       loc,
		log:       log,
	}
}

func withRange(base string, from, to time.Time) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("from", from.Format("2006-01-02"))
	q.Set("to", to.Format("2006-01-02"))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (h *HTTPSource) LoadOrders(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	u, err := withRange(h.ordersURL, from, to)
	if err != nil {
		return nil, fmt.Errorf("http source: orders url: %w", err)
	}
	var resp []orderResp
	if err := GetJSONWithRetry(ctx, h.c, h.backoff, u, &resp); err != nil {
		return nil, fmt.Errorf("http source: orders: %w", err)
	}
	out := make([]models.Order, 0, len(resp))
	for _, r := range resp {
		o := models.Order{
			ID:               strings.TrimSpace(string(r.OrderID)),
			Name:             r.OrderName,
			CreatedAtRaw:     r.CreatedAtIST,
			TotalPrice:       r.TotalPrice,
			Currency:         r.Currency,
			ShipCity:         r.ShipCity,
			ShipProvince:     r.ShipProvince,
			ShipCountry:      r.ShipCountry,
			ReferrerURL:      r.ReferrerURL,
			UTMSource:        r.UTMSource,
			UTMMedium:        r.UTMMedium,
			UTMCampaign:      r.UTMCampaign,
			UTMContent:       r.UTMContent,
			UTMTerm:          r.UTMTerm,
			CustomerJourney:  string(r.CustomerJourney),
			CustomAttributes: string(r.CustomAttributes),
		}
		if t, ok := utils.ParseLocalTime(r.CreatedAtIST, h.loc); ok {
			o.CreatedAt = t
		} else {
			h.log.Warn("order timestamp unreadable", slog.String("order_id", o.ID), slog.String("created_at_ist", r.CreatedAtIST))
		}
		for _, li := range r.LineItems {
			o.LineItems = append(o.LineItems, models.LineItem{
				SKU:                 li.SKU,
				ProductTitle:        li.Title,
				VariantTitle:        li.VariantTitle,
				Quantity:            li.Quantity,
				DiscountedUnitPrice: li.DiscountedUnitPrice,
				OriginalUnitPrice:   li.OriginalUnitPrice,
				UnitCost:            li.UnitCost,
			})
		}
		out = append(out, o)
	}
	return out, nil
}

func (h *HTTPSource) LoadAds(ctx context.Context, from, to time.Time) ([]models.AdPerformance, error) {
	u, err := withRange(h.adsURL, from, to)
	if err != nil {
		return nil, fmt.Errorf("http source: ads url: %w", err)
	}
	var resp []adResp
	if err := GetJSONWithRetry(ctx, h.c, h.backoff, u, &resp); err != nil {
		return nil, fmt.Errorf("http source: ads: %w", err)
	}
	out := make([]models.AdPerformance, 0, len(resp))
	for _, r := range resp {
		d, err := time.ParseInLocation("2006-01-02", firstN(strings.TrimSpace(r.DateStart), 10), time.UTC)
		if err != nil {
			h.log.Warn("ad row date unreadable", slog.String("date_start", r.DateStart))
			continue
		}
		out = append(out, models.AdPerformance{
			CampaignID:   string(r.CampaignID),
			CampaignName: r.CampaignName,
			AdsetID:      string(r.AdsetID),
			AdsetName:    r.AdsetName,
			AdID:         string(r.AdID),
			AdName:       r.AdName,
			Date:         d,
			HourlyWindow: string(r.HourlyWindow),
			AdMetrics: models.AdMetrics{
				Impressions:      int(r.Impressions),
				Clicks:           int(r.Clicks),
				Spend:            r.Spend,
				Purchases:        r.Purchases,
				PurchaseValue:    r.PurchaseValue,
				AddToCart:        int(r.AddToCart),
				InitiateCheckout: int(r.InitiateCheckout),
				ViewContent:      int(r.ViewContent),
				LinkClicks:       int(r.LinkClicks),
			},
		})
	}
	return out, nil
}

// Ping checks that the orders API answers at all.
func (h *HTTPSource) Ping(ctx context.Context) error {
	if h.ordersURL == "" || h.adsURL == "" {
		return ErrNoSource
	}
	return nil
}
