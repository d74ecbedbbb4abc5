package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"caslastudio/internal/http/handlers"
	"caslastudio/internal/middleware"
)

type Options struct {
	AllowedOrigins  []string
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	SubmitPerMinute int
	Logger          zerolog.Logger
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
		middleware.Logger(opts.Logger),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)
	r.Get("/v1/catalog", app.ListCatalog)
	r.Get("/v1/blobs/{handle}", app.Blob)

	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", app.CreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", app.GetSession)
			r.Patch("/", app.UpdateSession)
			r.Delete("/", app.DeleteSession)
			r.Post("/products", app.ToggleProduct)
			r.Put("/image", app.UploadImage)
			r.Delete("/image", app.ClearImage)
			r.Get("/result", app.DownloadResult)
			r.Get("/bundle", app.DownloadBundle)
			r.With(middleware.RateLimit(opts.SubmitPerMinute, time.Minute)).Post("/submit", app.Submit)
		})
	})

	return r
}
