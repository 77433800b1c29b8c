package ingest

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/AngelCh415/attribution-etl/internal/ads"
	"github.com/AngelCh415/attribution-etl/internal/attribution"
	"github.com/AngelCh415/attribution-etl/internal/config"
	"github.com/AngelCh415/attribution-etl/internal/granular"
	"github.com/AngelCh415/attribution-etl/internal/metrics"
	"github.com/AngelCh415/attribution-etl/internal/models"
	"github.com/AngelCh415/attribution-etl/internal/store"
	"github.com/AngelCh415/attribution-etl/internal/telemetry"
	"github.com/AngelCh415/attribution-etl/internal/utils"
)

// ETL loads one date range from the source, runs attribution and the
// granular reconciliation, and keeps the result in the store.
type ETL struct {
	src   Source
	st    *store.MemoryStore
	cache *store.RunCache // optional
	tel   *telemetry.Metrics
	c     HTTPClient // sink
	log   *slog.Logger
	cfg   config.Config
}

func NewETL(src Source, st *store.MemoryStore, c HTTPClient, log *slog.Logger, cfg config.Config) *ETL {
	if log == nil {
		log = utils.NopLogger()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &ETL{src: src, st: st, c: c, log: log, cfg: cfg, tel: telemetry.New()}
}

// WithCache enables the Redis run cache.
func (e *ETL) WithCache(c *store.RunCache) *ETL { e.cache = c; return e }

// WithTelemetry replaces the default (unexported) metrics set.
func (e *ETL) WithTelemetry(m *telemetry.Metrics) *ETL { e.tel = m; return e }

func (e *ETL) Telemetry() *telemetry.Metrics { return e.tel }

// Ping reports whether the configured source is reachable.
func (e *ETL) Ping(ctx context.Context) error {
	if e.src == nil {
		return ErrNoSource
	}
	return e.src.Ping(ctx)
}

// Run executes the pipeline over [from, to]. Loader failures abort the run;
// per-order failures only shrink the result.
func (e *ETL) Run(ctx context.Context, from, to time.Time) (run *store.Run, err error) {
	start := time.Now()
	defer func() { e.tel.ObserveRun(start, err) }()

	if e.src == nil {
		return nil, ErrNoSource
	}
	if to.Before(from) {
		return nil, fmt.Errorf("etl: range end %s before start %s", to.Format(ads.DateLayout), from.Format(ads.DateLayout))
	}

	if e.cache != nil {
		cached, cerr := e.cache.Get(ctx, from, to)
		switch {
		case cerr == nil:
			e.tel.CacheLookups.WithLabelValues("hit").Inc()
			e.st.Save(cached)
			e.log.Info("run served from cache", slog.String("run_id", cached.ID))
			return cached, nil
		case errors.Is(cerr, store.ErrCacheMiss):
			e.tel.CacheLookups.WithLabelValues("miss").Inc()
		default:
			e.tel.CacheLookups.WithLabelValues("error").Inc()
			e.log.Warn("run cache unavailable", slog.String("err", cerr.Error()))
		}
	}

	e.log.Info("loading data",
		slog.String("from", from.Format(ads.DateLayout)),
		slog.String("to", to.Format(ads.DateLayout)))

	orders, err := e.src.LoadOrders(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("etl: load orders: %w", err)
	}
	rawAds, err := e.src.LoadAds(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("etl: load ads: %w", err)
	}
	orders = dedupeOrders(orders)
	e.log.Info("data loaded", slog.Int("orders", len(orders)), slog.Int("ad_rows", len(rawAds)))
	if len(orders) == 0 {
		e.log.Warn("no orders in range")
	}
	if len(rawAds) == 0 {
		e.log.Warn("no ad rows in range")
	}

	daily := ads.RollupDaily(rawAds)

	results, ast := attribution.NewProcessor(e.log).Process(orders, daily)
	e.tel.OrdersProcessed.Add(float64(ast.Processed))
	e.tel.OrdersSkipped.Add(float64(ast.Skipped))
	for ch, n := range ast.Channels {
		e.tel.OrdersByChannel.WithLabelValues(string(ch)).Add(float64(n))
	}
	e.tel.Reclassified.WithLabelValues("attribution", "meta").Add(float64(ast.ToMeta))
	e.tel.Reclassified.WithLabelValues("attribution", "organic").Add(float64(ast.ToOrganic))
	e.tel.MatchRate.Set(ast.MatchRate())

	hourly, dropped := ads.RollupHourly(rawAds, e.log)
	e.tel.AdRowsDropped.Add(float64(dropped))

	rows, gst := granular.NewReconciler(e.log, e.cfg.Location).Reconcile(results, hourly, orders)
	e.tel.GranularRows.Set(float64(len(rows)))
	e.tel.Reclassified.WithLabelValues("granular", "meta").Add(float64(gst.ToMeta))
	e.tel.Reclassified.WithLabelValues("granular", "organic").Add(float64(gst.ToOrganic))

	run = store.NewRun(from, to)
	run.Results = results
	run.Granular = rows
	run.Summary = metrics.Summarize(results, daily)
	run.SKUs = attribution.DetailedSKUAttribution(results, orders, rawAds)
	run.Samples = attribution.InvestigationSamples(orders)
	e.st.Save(run)

	if e.cache != nil {
		if cerr := e.cache.Put(ctx, run); cerr != nil {
			e.log.Warn("run not cached", slog.String("err", cerr.Error()))
		}
	}

	e.log.Info("run complete",
		slog.String("run_id", run.ID),
		slog.Int("orders", ast.Processed),
		slog.Int("granular_rows", len(rows)),
		slog.Float64("attribution_rate", run.Summary.AttributionRate),
		slog.Duration("took", time.Since(start)))
	return run, nil
}

// dedupeOrders keeps the first occurrence of each order id.
func dedupeOrders(in []models.Order) []models.Order {
	seen := make(map[string]struct{}, len(in))
	out := in[:0:0]
	for _, o := range in {
		id := strings.TrimSpace(o.ID)
		if _, ok := seen[id]; ok && id != "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, o)
	}
	return out
}

// ExportDay posts the granular rows for one date of the latest run to the
// sink, signed with HMAC-SHA256 over the body in X-Signature.
func (e *ETL) ExportDay(ctx context.Context, date time.Time) (n int, err error) {
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		e.tel.Exports.WithLabelValues(outcome).Inc()
	}()
	if e.cfg.SinkURL == "" || e.cfg.SinkSecret == "" {
		return 0, ErrSinkNotConfigured
	}
	rows := e.st.Query(date, date, nil)
	if len(rows) == 0 {
		return 0, nil
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return 0, fmt.Errorf("export: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.SinkURL, bytes.NewReader(b))
	if err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", Sign(b, e.cfg.SinkSecret))
	resp, err := e.c.Do(req)
	if err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("export: %w", &StatusError{Code: resp.StatusCode})
	}
	e.log.Info("export complete", slog.String("date", date.Format(ads.DateLayout)), slog.Int("rows", len(rows)))
	return len(rows), nil
}

// Sign is the hex HMAC-SHA256 of body under secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
