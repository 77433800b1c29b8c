package models

import "time"

type Order struct {
	ID           string
	Name         string
	CreatedAt    time.Time // store-local
	CreatedAtRaw string    // as delivered by the source, kept for re-parsing
	TotalPrice   float64
	Currency     string
	ShipCity     string
	ShipProvince string
	ShipCountry  string
	ReferrerURL  string

	CustomerJourney  string // JSON {moments:[...]}
	CustomAttributes string // JSON [{key,value}]
	UTMSource        string
	UTMMedium        string
	UTMCampaign      string
	UTMContent       string
	UTMTerm          string

	LineItems []LineItem
}

type LineItem struct {
	SKU                 string // empty when the variant has none
	ProductTitle        string
	VariantTitle        string
	Quantity            int
	DiscountedUnitPrice float64
	OriginalUnitPrice   float64
	UnitCost            float64
}

// UnitPrice prefers the discounted price and falls back to the original one.
func (li LineItem) UnitPrice() float64 {
	if li.DiscountedUnitPrice != 0 {
		return li.DiscountedUnitPrice
	}
	return li.OriginalUnitPrice
}

func (li LineItem) Revenue() float64 { return float64(li.Quantity) * li.UnitPrice() }
func (li LineItem) COGS() float64    { return float64(li.Quantity) * li.UnitCost }

// AttributionRecord is the normalized result of one UTM extractor.
type AttributionRecord struct {
	Source          string
	Medium          string
	Campaign        string
	Content         string
	Term            string
	AttributionID   string
	AttributionType AttributionType
}

// AdPerformance is one hourly ad-delivery snapshot.
type AdPerformance struct {
	CampaignID   string
	CampaignName string
	AdsetID      string
	AdsetName    string
	AdID         string
	AdName       string
	Date         time.Time
	HourlyWindow string
	AdMetrics
}

// AdMetrics are the additive ad-delivery counters. Purchases and PurchaseValue
// are platform-reported and informational only.
type AdMetrics struct {
	Impressions      int     `json:"impressions"`
	Clicks           int     `json:"clicks"`
	Spend            float64 `json:"spend"`
	Purchases        float64 `json:"platform_purchases"`
	PurchaseValue    float64 `json:"platform_purchase_value"`
	AddToCart        int     `json:"add_to_cart"`
	InitiateCheckout int     `json:"initiate_checkout"`
	ViewContent      int     `json:"view_content"`
	LinkClicks       int     `json:"link_clicks"`
}

func (m *AdMetrics) Add(o AdMetrics) {
	m.Impressions += o.Impressions
	m.Clicks += o.Clicks
	m.Spend += o.Spend
	m.Purchases += o.Purchases
	m.PurchaseValue += o.PurchaseValue
	m.AddToCart += o.AddToCart
	m.InitiateCheckout += o.InitiateCheckout
	m.ViewContent += o.ViewContent
	m.LinkClicks += o.LinkClicks
}

type DailyAd struct {
	Date         time.Time `json:"date"`
	CampaignID   string    `json:"campaign_id"`
	CampaignName string    `json:"campaign_name"`
	AdsetID      string    `json:"adset_id"`
	AdsetName    string    `json:"adset_name"`
	AdID         string    `json:"ad_id"`
	AdName       string    `json:"ad_name"`
	AdMetrics
	CPM float64 `json:"cpm"`
	CPC float64 `json:"cpc"`
	CTR float64 `json:"ctr"`
}

// GranularKey identifies one (campaign, adset, ad, date, hour) bucket.
type GranularKey struct {
	CampaignID   string `json:"campaign_id"`
	CampaignName string `json:"campaign_name"`
	AdsetID      string `json:"adset_id"`
	AdsetName    string `json:"adset_name"`
	AdID         string `json:"ad_id"`
	AdName       string `json:"ad_name"`
	Date         string `json:"date"`         // 2006-01-02
	HourLabel    string `json:"hourly_window"` // HH:00:00 - HH:59:59
}

type HourlyAd struct {
	GranularKey
	AdMetrics
	CPM float64 `json:"cpm"`
	CPC float64 `json:"cpc"`
	CTR float64 `json:"ctr"`
}

type AttributionResult struct {
	OrderID       string    `json:"order_id"`
	OrderName     string    `json:"order_name"`
	OrderDate     time.Time `json:"order_date"`
	OrderValue    float64   `json:"order_value"`
	OrderCurrency string    `json:"order_currency"`
	ShipCity      string    `json:"ship_city"`
	ShipProvince  string    `json:"ship_province"`
	ShipCountry   string    `json:"ship_country"`

	TotalCOGS        float64        `json:"total_cogs"`
	LineItemsCount   int            `json:"line_items_count"`
	SKUs             string         `json:"skus"`
	UniqueSKUCount   int            `json:"unique_skus_count"`
	TotalSKUQuantity int            `json:"total_sku_quantity"`
	SKUQuantities    map[string]int `json:"sku_quantities,omitempty"`

	Channel           Channel           `json:"channel"`
	AttributionSource AttributionSource `json:"attribution_source"`
	AttributionID     string            `json:"attribution_id"`
	AttributionType   AttributionType   `json:"attribution_type"`
	UTMSource         string            `json:"utm_source"`
	UTMMedium         string            `json:"utm_medium"`
	UTMCampaign       string            `json:"utm_campaign"`
	UTMContent        string            `json:"utm_content"`
	UTMTerm           string            `json:"utm_term"`

	CampaignID   string `json:"campaign_id"`
	CampaignName string `json:"campaign_name"`
	AdsetID      string `json:"adset_id"`
	AdsetName    string `json:"adset_name"`
	AdID         string `json:"ad_id"`
	AdName       string `json:"ad_name"`

	HasCustomerJourney  bool `json:"has_customer_journey"`
	HasCustomAttributes bool `json:"has_custom_attributes"`
	IsAttributed        bool `json:"is_attributed"`
	IsPaidChannel       bool `json:"is_paid_channel"`
}

type GranularRow struct {
	GranularKey
	Spend                 float64 `json:"spend"`
	Impressions           int     `json:"impressions"`
	Clicks                int     `json:"clicks"`
	CPM                   float64 `json:"cpm"`
	CPC                   float64 `json:"cpc"`
	CTR                   float64 `json:"ctr"`
	PlatformPurchases     float64 `json:"platform_purchases"`
	PlatformPurchaseValue float64 `json:"platform_purchase_value"`

	ShopifyOrders    int     `json:"shopify_orders"`
	ShopifyRevenue   float64 `json:"shopify_revenue"`
	ShopifyCOGS      float64 `json:"shopify_cogs"`
	TotalSKUQuantity int     `json:"total_sku_quantity"`

	Channel           Channel           `json:"channel"`
	AttributionSource AttributionSource `json:"attribution_source"`
	UTMSource         string            `json:"utm_source"`
	UTMMedium         string            `json:"utm_medium"`
	UTMCampaign       string            `json:"utm_campaign"`
	UTMContent        string            `json:"utm_content"`
	UTMTerm           string            `json:"utm_term"`
	OrderIDs          string            `json:"order_ids"`

	HasAdData bool `json:"has_ad_data"`
	HasOrders bool `json:"has_orders"`
}

type SKUAttribution struct {
	OrderID         string    `json:"order_id"`
	OrderName       string    `json:"order_name"`
	OrderDate       time.Time `json:"order_date"`
	OrderValue      float64   `json:"order_value"`
	SKU             string    `json:"sku"`
	ProductTitle    string    `json:"product_title"`
	VariantTitle    string    `json:"variant_title"`
	Quantity        int       `json:"quantity"`
	UnitPrice       float64   `json:"unit_price"`
	UnitCost        float64   `json:"unit_cost"`
	SKURevenue      float64   `json:"sku_revenue"`
	SKUCOGS         float64   `json:"sku_cogs"`
	SKUProfit       float64   `json:"sku_profit"`
	SKUProfitMargin float64   `json:"sku_profit_margin"`
	CampaignID      string    `json:"campaign_id"`
	CampaignName    string    `json:"campaign_name"`
	AdsetID         string    `json:"adset_id"`
	AdsetName       string    `json:"adset_name"`
	AdID            string    `json:"ad_id"`
	AdName          string    `json:"ad_name"`
	AdSpend         float64   `json:"ad_spend"`
	SKUROAS         float64   `json:"sku_roas"`
	SKUNetProfit    float64   `json:"sku_net_profit"`
	Channel         Channel   `json:"channel"`

	AttributionSource AttributionSource `json:"attribution_source"`
	UTMSource         string            `json:"utm_source"`
	UTMMedium         string            `json:"utm_medium"`
	UTMCampaign       string            `json:"utm_campaign"`
	UTMContent        string            `json:"utm_content"`
	UTMTerm           string            `json:"utm_term"`
}

type Breakdown struct {
	Key        string  `json:"key"`
	Orders     int     `json:"orders"`
	Revenue    float64 `json:"revenue"`
	Percentage float64 `json:"percentage"`
}

type CampaignPerformance struct {
	CampaignName   string  `json:"campaign_name"`
	AdsetName      string  `json:"adset_name"`
	AdName         string  `json:"ad_name"`
	Channel        Channel `json:"channel"`
	Orders         int     `json:"orders"`
	TotalSales     float64 `json:"total_sales"`
	TotalCOGS      float64 `json:"total_cogs"`
	AdImpressions  int     `json:"ad_impressions"`
	AdClicks       int     `json:"ad_clicks"`
	AdSpend        float64 `json:"ad_spend"`
	ROAS           float64 `json:"roas"`
	CTR            float64 `json:"ctr"`
	ConversionRate float64 `json:"conversion_rate"`
	AvgOrderValue  float64 `json:"avg_order_value"`
}

type Summary struct {
	TotalOrders         int                   `json:"total_orders"`
	TotalRevenue        float64               `json:"total_revenue"`
	AttributedOrders    int                   `json:"attributed_orders"`
	AttributionRate     float64               `json:"attribution_rate"`
	ChannelBreakdown    []Breakdown           `json:"channel_breakdown"`
	SourceBreakdown     []Breakdown           `json:"source_breakdown"`
	CampaignPerformance []CampaignPerformance `json:"campaign_performance"`
}

// InvestigationSample carries an order's raw attribution payloads for
// debugging extractor misses.
type InvestigationSample struct {
	OrderID             string    `json:"order_id"`
	OrderName           string    `json:"order_name"`
	OrderDate           time.Time `json:"order_date"`
	OrderValue          float64   `json:"order_value"`
	CustomerJourney     string    `json:"customer_journey_raw"`
	CustomAttributes    string    `json:"custom_attributes_raw"`
	UTMSource           string    `json:"customer_utm_source"`
	UTMMedium           string    `json:"customer_utm_medium"`
	UTMCampaign         string    `json:"customer_utm_campaign"`
	UTMContent          string    `json:"customer_utm_content"`
	UTMTerm             string    `json:"customer_utm_term"`
	ReferrerURL         string    `json:"customer_referrer_url"`
	HasCustomerJourney  bool      `json:"has_customer_journey"`
	HasCustomAttributes bool      `json:"has_custom_attributes"`
	JourneyLength       int       `json:"journey_length"`
	AttributesLength    int       `json:"attributes_length"`
}

// FunnelMetrics aggregates granular rows per day and UTM triple.
type FunnelMetrics struct {
	Date        string  `json:"date"`
	UTMCampaign string  `json:"utm_campaign"`
	UTMSource   string  `json:"utm_source"`
	UTMMedium   string  `json:"utm_medium"`
	Impressions int     `json:"impressions"`
	Clicks      int     `json:"clicks"`
	Spend       float64 `json:"spend"`
	Orders      int     `json:"orders"`
	Revenue     float64 `json:"revenue"`
	COGS        float64 `json:"cogs"`
	CPC         float64 `json:"cpc"`
	ROAS        float64 `json:"roas"`
	AOV         float64 `json:"aov"`
	CVR         float64 `json:"cvr"` // orders per click
}
