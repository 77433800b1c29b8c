// Command attribute runs the pipeline once over the configured date range
// and prints the summary as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/AngelCh415/attribution-etl/internal/config"
	"github.com/AngelCh415/attribution-etl/internal/ingest"
	"github.com/AngelCh415/attribution-etl/internal/store"
)

func main() {
	cfgPath := flag.String("config", os.Getenv("CONFIG_FILE"), "optional YAML config file")
	export := flag.Bool("export", false, "post each day's granular rows to SINK_URL after the run")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	if err != nil {
		logger.Error("config error", slog.String("err", err.Error()))
		os.Exit(1)
	}
	from, to, err := cfg.DateRange(time.Now())
	if err != nil {
		logger.Error("date range", slog.String("err", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cl := ingest.NewHTTPClient(cfg.HTTPTimeout)
	src, closeSrc, err := ingest.NewSource(cfg, cl, logger)
	if err != nil {
		logger.Error("data source error", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer closeSrc()

	etl := ingest.NewETL(src, store.NewMemoryStore(), cl, logger, cfg)
	run, err := etl.Run(ctx, from, to)
	if err != nil {
		logger.Error("run failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	if *export {
		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			n, err := etl.ExportDay(ctx, d)
			if err != nil {
				logger.Error("export failed", slog.String("date", d.Format("2006-01-02")), slog.String("err", err.Error()))
				os.Exit(1)
			}
			logger.Info("exported", slog.String("date", d.Format("2006-01-02")), slog.Int("rows", n))
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", " ")
	if err := enc.Encode(run.Summary); err != nil {
		logger.Error("encode summary", slog.String("err", err.Error()))
		os.Exit(1)
	}
}
