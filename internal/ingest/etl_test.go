package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/attribution-etl/internal/config"
	"github.com/AngelCh415/attribution-etl/internal/models"
	"github.com/AngelCh415/attribution-etl/internal/store"
)

type fakeSource struct {
	orders    []models.Order
	ads       []models.AdPerformance
	err       error
	loadCalls int
}

func (f *fakeSource) LoadOrders(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	f.loadCalls++
	return f.orders, f.err
}

func (f *fakeSource) LoadAds(ctx context.Context, from, to time.Time) ([]models.AdPerformance, error) {
	return f.ads, nil
}

func (f *fakeSource) Ping(ctx context.Context) error { return f.err }

var day1 = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

func fixture() *fakeSource {
	ts := time.Date(2025, 1, 15, 10, 20, 0, 0, time.UTC)
	journey := `{"moments":[{"utmParameters":{"source":"facebook","medium":"paid","campaign":"999","content":"12345"}}]}`
	o := models.Order{
		ID: "A1", Name: "#A1", CreatedAt: ts, TotalPrice: 1000,
		CustomerJourney: journey,
		LineItems:       []models.LineItem{{SKU: "TEE", Quantity: 2, DiscountedUnitPrice: 500, UnitCost: 150}},
	}
	dup := o
	plain := models.Order{ID: "B2", CreatedAt: ts.Add(time.Hour), TotalPrice: 200}
	ad := models.AdPerformance{
		CampaignID: "999", CampaignName: "Winter", AdsetID: "55", AdsetName: "Broad",
		AdID: "12345", AdName: "Video", Date: day1, HourlyWindow: "10:00:00 - 10:59:59",
		AdMetrics: models.AdMetrics{Impressions: 1000, Clicks: 20, Spend: 100},
	}
	return &fakeSource{orders: []models.Order{o, dup, plain}, ads: []models.AdPerformance{ad}}
}

func testETL(src Source, cfg config.Config) (*ETL, *store.MemoryStore) {
	st := store.NewMemoryStore()
	return NewETL(src, st, NewHTTPClient(time.Second), nil, cfg), st
}

func TestETL_RunEndToEnd(t *testing.T) {
	e, st := testETL(fixture(), config.Config{})
	run, err := e.Run(context.Background(), day1, day1)
	require.NoError(t, err)

	assert.Len(t, run.Results, 2, "duplicate order ids collapse")
	assert.Equal(t, 2, run.Summary.TotalOrders)
	assert.Equal(t, 1200.0, run.Summary.TotalRevenue)
	require.Len(t, run.SKUs, 1)
	assert.Equal(t, "TEE", run.SKUs[0].SKU)

	var joined *models.GranularRow
	for i := range run.Granular {
		if run.Granular[i].AdID == "12345" {
			joined = &run.Granular[i]
		}
	}
	require.NotNil(t, joined)
	assert.Equal(t, 1, joined.ShopifyOrders)
	assert.Equal(t, 100.0, joined.Spend)
	assert.Equal(t, models.ChannelMeta, joined.Channel)

	latest, ok := st.Latest()
	require.True(t, ok)
	assert.Equal(t, run.ID, latest.ID)
}

func TestETL_LoadErrorIsFatal(t *testing.T) {
	boom := errors.New("db down")
	e, st := testETL(&fakeSource{err: boom}, config.Config{})
	_, err := e.Run(context.Background(), day1, day1)
	assert.ErrorIs(t, err, boom)
	_, ok := st.Latest()
	assert.False(t, ok)
}

func TestETL_RejectsInvertedRange(t *testing.T) {
	e, _ := testETL(fixture(), config.Config{})
	_, err := e.Run(context.Background(), day1, day1.AddDate(0, 0, -1))
	assert.Error(t, err)
}

func TestETL_NoSource(t *testing.T) {
	e, _ := testETL(nil, config.Config{})
	_, err := e.Run(context.Background(), day1, day1)
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestETL_CacheHitSkipsLoad(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	src := fixture()
	e, _ := testETL(src, config.Config{})
	e.WithCache(store.NewRunCache(rdb, time.Minute))

	first, err := e.Run(context.Background(), day1, day1)
	require.NoError(t, err)
	second, err := e.Run(context.Background(), day1, day1)
	require.NoError(t, err)

	assert.Equal(t, 1, src.loadCalls)
	assert.Equal(t, first.ID, second.ID)
}

func TestETL_ExportDaySigned(t *testing.T) {
	const secret = "s3cret"
	var body []byte
	var sig string
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		sig = r.Header.Get("X-Signature")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer sink.Close()

	e, _ := testETL(fixture(), config.Config{SinkURL: sink.URL, SinkSecret: secret})
	run, err := e.Run(context.Background(), day1, day1)
	require.NoError(t, err)

	n, err := e.ExportDay(context.Background(), day1)
	require.NoError(t, err)
	assert.Equal(t, len(run.Granular), n)
	assert.Equal(t, Sign(body, secret), sig)

	var rows []models.GranularRow
	require.NoError(t, json.Unmarshal(body, &rows))
	assert.Len(t, rows, n)

	n, err = e.ExportDay(context.Background(), day1.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestETL_ExportDayNeedsSink(t *testing.T) {
	e, _ := testETL(fixture(), config.Config{})
	_, err := e.ExportDay(context.Background(), day1)
	assert.ErrorIs(t, err, ErrSinkNotConfigured)
}

func TestETL_ExportDaySinkRejects(t *testing.T) {
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer sink.Close()

	e, _ := testETL(fixture(), config.Config{SinkURL: sink.URL, SinkSecret: "x"})
	_, err := e.Run(context.Background(), day1, day1)
	require.NoError(t, err)
	_, err = e.ExportDay(context.Background(), day1)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Code)
}
