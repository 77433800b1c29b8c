package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/AngelCh415/attribution-etl/internal/models"
	"github.com/AngelCh415/attribution-etl/internal/utils"
)

const ordersQuery = `
SELECT
	o.order_id, o.order_name, o.created_at_ist::text,
	o.total_price_amount, o.total_price_currency,
	o.ship_city, o.ship_province, o.ship_country, o.customer_referrer_url,
	o.customer_utm_source, o.customer_utm_medium, o.customer_utm_campaign,
	o.customer_utm_content, o.customer_utm_term,
	o.customer_journey::text, o.custom_attributes::text,
	li.item_id, li.title, li.quantity,
	li.original_unit_price_amount, li.discounted_unit_price_amount,
	pv.sku, pv.variant_title, pv.unit_cost_amount
FROM shopify_orders o
LEFT JOIN shopify_order_line_items li ON o.order_id = li.order_id
LEFT JOIN shopify_product_variants pv ON li.variant_id = pv.variant_id
WHERE o.created_at_ist::timestamp >= $1::timestamp
  AND o.created_at_ist::timestamp < $2::timestamp
  AND o.cancelled_at_ist IS NULL
ORDER BY o.created_at_ist::timestamp DESC, o.order_id, li.item_id`

const adsQuery = `
SELECT
	campaign_id::text, campaign_name, adset_id::text, adset_name, ad_id::text, ad_name,
	date_start::text, hourly_window,
	impressions, clicks, spend,
	action_onsite_web_purchase, value_onsite_web_purchase,
	action_onsite_web_add_to_cart, action_onsite_web_initiate_checkout,
	action_onsite_web_view_content, action_link_click
FROM ads_insights_hourly
WHERE date_start >= $1::date AND date_start <= $2::date
ORDER BY date_start DESC`

// PostgresSource reads the Shopify order tables and ads_insights_hourly.
type PostgresSource struct {
	db  *sql.DB
	loc *time.Location
	log *slog.Logger
}

// OpenPostgres opens (but does not ping) a lib/pq connection pool.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

func NewPostgresSource(db *sql.DB, loc *time.Location, log *slog.Logger) *PostgresSource {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = utils.NopLogger()
	}
	return &PostgresSource{db: db, loc: loc, log: log}
}

func (p *PostgresSource) Ping(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	return nil
}

func str(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}

func num(nf sql.NullFloat64) float64 {
	if !nf.Valid {
		return 0
	}
	return nf.Float64
}

func (p *PostgresSource) LoadOrders(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	lo := from.Format("2006-01-02") + " 00:00:00"
	hi := to.AddDate(0, 0, 1).Format("2006-01-02") + " 00:00:00"
	rows, err := p.db.QueryContext(ctx, ordersQuery, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("postgres: orders query: %w", err)
	}
	defer rows.Close()

	var out []models.Order
	idx := map[string]int{}
	for rows.Next() {
		var (
			id, name, created, currency                sql.NullString
			city, province, country, referrer          sql.NullString
			src, med, camp, cont, term, journey, attrs sql.NullString
			itemID, title, sku, variant                sql.NullString
			total, origPrice, discPrice, unitCost      sql.NullFloat64
			qty                                        sql.NullInt64
		)
		if err := rows.Scan(&id, &name, &created, &total, &currency,
			&city, &province, &country, &referrer,
			&src, &med, &camp, &cont, &term,
			&journey, &attrs,
			&itemID, &title, &qty, &origPrice, &discPrice,
			&sku, &variant, &unitCost); err != nil {
			return nil, fmt.Errorf("postgres: orders scan: %w", err)
		}

		oid := strings.TrimSpace(str(id))
		i, ok := idx[oid]
		if !ok {
			o := models.Order{
				ID:               oid,
				Name:             str(name),
				CreatedAtRaw:     str(created),
				TotalPrice:       num(total),
				Currency:         str(currency),
				ShipCity:         str(city),
				ShipProvince:     str(province),
				ShipCountry:      str(country),
				ReferrerURL:      str(referrer),
				UTMSource:        str(src),
				UTMMedium:        str(med),
				UTMCampaign:      str(camp),
				UTMContent:       str(cont),
				UTMTerm:          str(term),
				CustomerJourney:  str(journey),
				CustomAttributes: str(attrs),
			}
			if t, ok := utils.ParseLocalTime(o.CreatedAtRaw, p.loc); ok {
				o.CreatedAt = t
			} else {
				p.log.Warn("order timestamp unreadable", slog.String("order_id", oid), slog.String("created_at_ist", o.CreatedAtRaw))
			}
			out = append(out, o)
			i = len(out) - 1
			idx[oid] = i
		}
		if !itemID.Valid {
			continue // order without line items
		}
		out[i].LineItems = append(out[i].LineItems, models.LineItem{
			SKU:                 str(sku),
			ProductTitle:        str(title),
			VariantTitle:        str(variant),
			Quantity:            int(qty.Int64),
			DiscountedUnitPrice: num(discPrice),
			OriginalUnitPrice:   num(origPrice),
			UnitCost:            num(unitCost),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: orders rows: %w", err)
	}
	return out, nil
}

func (p *PostgresSource) LoadAds(ctx context.Context, from, to time.Time) ([]models.AdPerformance, error) {
	rows, err := p.db.QueryContext(ctx, adsQuery, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("postgres: ads query: %w", err)
	}
	defer rows.Close()

	var out []models.AdPerformance
	for rows.Next() {
		var (
			cid, cname, sid, sname, aid, aname, date, window sql.NullString
			impr, clicks, spend, purch, purchVal             sql.NullFloat64
			atc, checkout, view, link                        sql.NullFloat64
		)
		if err := rows.Scan(&cid, &cname, &sid, &sname, &aid, &aname, &date, &window,
			&impr, &clicks, &spend, &purch, &purchVal, &atc, &checkout, &view, &link); err != nil {
			return nil, fmt.Errorf("postgres: ads scan: %w", err)
		}
		d, err := time.ParseInLocation("2006-01-02", firstN(str(date), 10), time.UTC)
		if err != nil {
			p.log.Warn("ad row date unreadable", slog.String("date_start", str(date)))
			continue
		}
		out = append(out, models.AdPerformance{
			CampaignID:   str(cid),
			CampaignName: str(cname),
			AdsetID:      str(sid),
			AdsetName:    str(sname),
			AdID:         str(aid),
			AdName:       str(aname),
			Date:         d,
			HourlyWindow: str(window),
			AdMetrics: models.AdMetrics{
				Impressions:      int(num(impr)),
				Clicks:           int(num(clicks)),
				Spend:            num(spend),
				Purchases:        num(purch),
				PurchaseValue:    num(purchVal),
				AddToCart:        int(num(atc)),
				InitiateCheckout: int(num(checkout)),
				ViewContent:      int(num(view)),
				LinkClicks:       int(num(link)),
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: ads rows: %w", err)
	}
	return out, nil
}

func firstN(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
