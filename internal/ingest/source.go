package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AngelCh415/attribution-etl/internal/config"
	"github.com/AngelCh415/attribution-etl/internal/models"
)

var (
	ErrNoSource          = errors.New("ingest: no data source configured")
	ErrSinkNotConfigured = errors.New("ingest: sink not configured")
)

// OrderSource loads non-cancelled orders created within [from, to] (whole
// days in the store timezone), line items folded in.
type OrderSource interface {
	LoadOrders(ctx context.Context, from, to time.Time) ([]models.Order, error)
}

// AdSource loads hourly ad delivery rows dated within [from, to].
type AdSource interface {
	LoadAds(ctx context.Context, from, to time.Time) ([]models.AdPerformance, error)
}

// Source is both; Postgres and the HTTP API each implement it.
type Source interface {
	OrderSource
	AdSource
	Ping(ctx context.Context) error
}

// NewSource builds the source named by cfg.DataSource. The returned close
// func releases its connections.
func NewSource(cfg config.Config, c HTTPClient, log *slog.Logger) (Source, func(), error) {
	switch cfg.DataSource {
	case config.SourcePostgres:
		if cfg.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("%w: DATABASE_URL is empty", ErrNoSource)
		}
		db, err := OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return NewPostgresSource(db, cfg.Location, log), func() { db.Close() }, nil
	case config.SourceHTTP:
		if cfg.OrdersURL == "" || cfg.AdsURL == "" {
			return nil, nil, fmt.Errorf("%w: ORDERS_API_URL and ADS_API_URL are required", ErrNoSource)
		}
		return NewHTTPSource(c, cfg.OrdersURL, cfg.AdsURL, cfg.Location, log), func() {}, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown data source %q", ErrNoSource, cfg.DataSource)
}
