package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/manakshia-steel/manakshia/internal/observability"
	"github.com/manakshia-steel/manakshia/internal/platform/httpx"
	"github.com/manakshia-steel/manakshia/internal/purchasing"
	"github.com/manakshia-steel/manakshia/jobs"
)

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	PurchasingHandler *purchasing.Handler
	JobsHandler       *jobs.Handler
	Metrics           *observability.Metrics
	Checks            map[string]HealthChecker
}

// NewRouter constructs the chi.Router with Manakshia defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	if !InTestMode() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		for name, check := range params.Checks {
			if err := check.Ping(r.Context()); err != nil {
				status[name] = err.Error()
				status["status"] = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "ok"
		}
		httpx.JSON(w, code, status)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/meta", manifestHandler(params.Config))
		if params.PurchasingHandler != nil {
			r.Route("/purchase-orders", params.PurchasingHandler.MountRoutes)
		}
		if params.JobsHandler != nil {
			r.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
