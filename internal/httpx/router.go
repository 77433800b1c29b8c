package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/AngelCh415/attribution-etl/internal/config"
	"github.com/AngelCh415/attribution-etl/internal/ingest"
	"github.com/AngelCh415/attribution-etl/internal/metrics"
	"github.com/AngelCh415/attribution-etl/internal/store"
	"github.com/AngelCh415/attribution-etl/internal/utils"
)

const dateLayout = "2006-01-02"

func NewRouter(log *slog.Logger, cfg config.Config, etl *ingest.ETL, st *store.MemoryStore, mSvc *metrics.Service) http.Handler {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(log))
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := etl.Ping(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
		w.Write([]byte("ready"))
	})
	mux.Method(http.MethodGet, "/metrics", etl.Telemetry().Handler())

	mux.Route("/attribution", func(r chi.Router) {
		r.Post("/run", func(w http.ResponseWriter, r *http.Request) {
			from, to, err := cfg.DateRange(time.Now())
			if err != nil {
				http.Error(w, err.Error(), 400)
				return
			}
			q := r.URL.Query()
			if from, err = dateParam(q.Get("start"), from, loc); err != nil {
				http.Error(w, "bad start", 400)
				return
			}
			if to, err = dateParam(q.Get("end"), to, loc); err != nil {
				http.Error(w, "bad end", 400)
				return
			}
			run, err := etl.Run(r.Context(), from, to)
			if err != nil {
				http.Error(w, err.Error(), 502)
				return
			}
			writeJSON(w, map[string]any{
				"run_id":        run.ID,
				"from":          run.From.Format(dateLayout),
				"to":            run.To.Format(dateLayout),
				"orders":        len(run.Results),
				"granular_rows": len(run.Granular),
				"summary":       run.Summary,
			})
		})

		r.Get("/runs", func(w http.ResponseWriter, r *http.Request) { writeJSON(w, st.Runs()) })
		r.Get("/summary", withRun(st, func(w http.ResponseWriter, run *store.Run) { writeJSON(w, run.Summary) }))
		r.Get("/orders", withRun(st, func(w http.ResponseWriter, run *store.Run) { writeJSON(w, run.Results) }))
		r.Get("/skus", withRun(st, func(w http.ResponseWriter, run *store.Run) { writeJSON(w, run.SKUs) }))
		r.Get("/investigation", withRun(st, func(w http.ResponseWriter, run *store.Run) { writeJSON(w, run.Samples) }))
	})

	mux.Get("/granular", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, mSvc.QueryGranular(r.URL.Query()))
	})
	mux.Get("/granular/funnel", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, mSvc.QueryFunnel(r.URL.Query()))
	})

	mux.Post("/export/run", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("date")
		if q == "" {
			http.Error(w, "date required (YYYY-MM-DD)", 400)
			return
		}
		t, err := time.ParseInLocation(dateLayout, q, loc)
		if err != nil {
			http.Error(w, "bad date", 400)
			return
		}
		n, err := etl.ExportDay(r.Context(), t)
		switch {
		case errors.Is(err, ingest.ErrSinkNotConfigured):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		case err != nil:
			http.Error(w, err.Error(), 502)
			return
		}
		writeJSON(w, map[string]any{"exported": n})
	})

	return mux
}

// withRun resolves ?run_id= (or the latest run) before calling h.
func withRun(st *store.MemoryStore, h func(http.ResponseWriter, *store.Run)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var run *store.Run
		if id := r.URL.Query().Get("run_id"); id != "" {
			var err error
			if run, err = st.Get(id); err != nil {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
		} else {
			var ok bool
			if run, ok = st.Latest(); !ok {
				http.Error(w, "no runs yet", http.StatusNotFound)
				return
			}
		}
		h(w, run)
	}
}

func dateParam(s string, def time.Time, loc *time.Location) (time.Time, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseInLocation(dateLayout, s, loc)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}
