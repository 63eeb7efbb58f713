package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes constructs the chi router containing all API endpoints.
func (a *API) Routes() (http.Handler, error) {
	if a == nil {
		return nil, errors.New("nil api")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api/v1alpha3", func(r chi.Router) {
		r.Route("/sboms", func(r chi.Router) {
			r.Route("/generate", func(r chi.Router) {
				r.Post("/build/{buildId}", a.handleGenerateBuild)
				r.Post("/operation/{operationId}", a.handleGenerateOperation)
				r.Post("/analysis", a.handleGenerateAnalysis)
				r.Post("/image", a.handleGenerateImage)
				r.Post("/rpm/{advisoryId}", a.handleGenerateBrewRPM)
			})

			r.Get("/requests", a.handleListRequests)
			r.Get("/requests/{id}", a.handleGetRequest)

			// purl segments contain slashes, so match the remaining path.
			r.Get("/purl/*", a.handleGetSbomByPurl)

			r.Get("/", a.handleListSboms)
			r.Get("/{id}", a.handleGetSbom)
			r.Get("/{id}/bom", a.handleGetBom)
			r.Get("/{id}/archive", a.handleGetArchiveLink)
		})

		r.Get("/stats", a.handleStats)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	return r, nil
}
