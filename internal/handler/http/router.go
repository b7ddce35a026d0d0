package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aleber123/nytt-sub001/internal/catalog"
	"github.com/aleber123/nytt-sub001/internal/service"
	"github.com/aleber123/nytt-sub001/pkg/health"
	"github.com/aleber123/nytt-sub001/pkg/middleware"
)

const serviceName = "storefront"

// RouterConfig holds the HTTP options that come from configuration.
type RouterConfig struct {
	CORS       middleware.CORSConfig
	PprofCIDRs []string
	// RequestTimeout bounds every request except submissions, whose order
	// call carries its own timeout.
	RequestTimeout time.Duration
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	wizard *service.WizardService,
	cat *catalog.Catalog,
	verify middleware.TokenVerifier,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	catalogHandler := NewCatalogHandler(cat, logger)
	draftHandler := NewDraftHandler(wizard, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(3600))
			r.Get("/catalog/countries", catalogHandler.ListCountries)
			r.Get("/catalog/countries/{code}/services", catalogHandler.CountryServices)
			r.Get("/catalog/countries/{code}/visa-products", catalogHandler.VisaProducts)
			r.Get("/catalog/document-types", catalogHandler.ListDocumentTypes)
		})

		r.Get("/shipping-label", ShippingLabel(logger))

		r.Route("/drafts", func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.With(timeout(cfg.RequestTimeout)).Post("/", draftHandler.StartDraft)

			r.Route("/{id}", func(r chi.Router) {
				r.Use(middleware.DraftToken(verify, "id"))

				r.Group(func(r chi.Router) {
					r.Use(timeout(cfg.RequestTimeout))
					r.Get("/", draftHandler.GetDraft)
					r.Delete("/", draftHandler.Abandon)
					r.Patch("/answers", draftHandler.PatchAnswers)
					r.Post("/next", draftHandler.Next)
					r.Post("/back", draftHandler.Back)
					r.Post("/steps/{index}", draftHandler.GoTo)
					r.Post("/quote", draftHandler.Quote)
					r.Get("/addons", draftHandler.Addons)
					r.Put("/files/{slot}", draftHandler.UploadFile)
				})

				r.Post("/submit", draftHandler.Submit)
			})
		})
	})

	return r
}

func timeout(d time.Duration) func(http.Handler) http.Handler {
	if d <= 0 {
		d = 30 * time.Second
	}
	return chimw.Timeout(d)
}
