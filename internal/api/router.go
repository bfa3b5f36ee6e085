package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/erazemk/turtlealbum/internal/auth"
	"github.com/erazemk/turtlealbum/internal/blob"
	"github.com/erazemk/turtlealbum/internal/db"
	"github.com/erazemk/turtlealbum/internal/importer"
	"github.com/erazemk/turtlealbum/internal/mating"
	"github.com/erazemk/turtlealbum/internal/metrics"
	"github.com/erazemk/turtlealbum/internal/model"
)

// Options holds the dependencies of the HTTP API.
type Options struct {
	DB           *db.DB
	Blobs        blob.Store
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
	JWTSecret    string
	TokenTTL     time.Duration
	Thresholds   mating.Thresholds
	ImportLimits importer.Limits
	// Frontend serves every path the API does not match, typically the
	// single-page app. Nil means a JSON 404.
	Frontend http.Handler
}

// NewRouter creates the HTTP handler with all API routes.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	limits := opts.ImportLimits
	if limits.MaxFiles == 0 || limits.MaxBytes == 0 {
		limits = importer.DefaultLimits
	}

	tokens := auth.NewIssuer(opts.JWTSecret, opts.TokenTTL)

	authH := &AuthHandler{DB: opts.DB, Tokens: tokens, Logger: logger}
	usersH := &UsersHandler{DB: opts.DB, Logger: logger}
	seriesH := &SeriesHandler{DB: opts.DB, Logger: logger}
	breedersH := &BreedersHandler{DB: opts.DB, Logger: logger, Thresholds: opts.Thresholds}
	productsH := &ProductsHandler{DB: opts.DB, Blobs: opts.Blobs, Logger: logger}
	imagesH := &ImagesHandler{DB: opts.DB, Blobs: opts.Blobs, Logger: logger, Metrics: m}
	recordsH := &RecordsHandler{DB: opts.DB, Logger: logger}
	contentH := &ContentHandler{DB: opts.DB, Logger: logger}
	importH := &ImportHandler{DB: opts.DB, Blobs: opts.Blobs, Logger: logger, Metrics: m, Limits: limits}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(logger))
	r.Use(m.Middleware)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		if opts.Frontend == nil || strings.HasPrefix(req.URL.Path, "/api/") {
			jsonError(w, http.StatusNotFound, "not found")
			return
		}
		opts.Frontend.ServeHTTP(w, req)
	})

	r.Get("/health", health)
	r.Method(http.MethodGet, "/metrics", m.Handler())
	r.Get("/images/*", imagesH.ServeBlob)

	r.Route("/api", func(r chi.Router) {
		// Public.
		r.Post("/auth/login", authH.Login)
		r.Get("/series", seriesH.ListPublic)

		r.Get("/breeders", breedersH.List)
		r.Get("/breeders/by-code/{code}", breedersH.ByCode)
		r.Get("/breeders/{id}", breedersH.Get)
		r.Get("/breeders/{id}/records", breedersH.Records)
		r.Get("/breeders/{id}/events", breedersH.Events)
		r.Get("/breeders/{id}/mate-load", breedersH.MateLoad)
		r.Get("/breeders/{id}/family-tree", breedersH.FamilyTree)

		r.Get("/products", productsH.List)
		r.Get("/products/featured", productsH.Featured)
		r.Get("/products/{id}", productsH.Get)

		r.Get("/images/{filename}", imagesH.ServeFile)
		r.Get("/carousels", contentH.ListCarousels)
		r.Get("/featured-products", contentH.ListFeatured)
		r.Get("/settings", contentH.GetSettings)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(tokens, opts.DB, logger))

			r.Post("/auth/logout", authH.Logout)
			r.Get("/auth/me", authH.Me)
			r.Put("/auth/password", authH.ChangePassword)

			// Editor and above.
			r.Group(func(r chi.Router) {
				r.Use(RequireRole(model.RoleEditor))

				r.Post("/products", productsH.Create)
				r.Put("/products/{id}", productsH.Update)
				r.Delete("/products/{id}", productsH.Delete)

				r.Post("/products/{id}/images", imagesH.Upload)
				r.Put("/products/{id}/images/reorder", imagesH.Reorder)
				r.Delete("/products/{id}/images/{imageId}", imagesH.Delete)
				r.Put("/products/{id}/images/{imageId}/set-main", imagesH.SetMain)

				r.Post("/admin/mating-records", recordsH.CreateMating)
				r.Delete("/admin/mating-records/{id}", recordsH.DeleteMating)
				r.Post("/admin/egg-records", recordsH.CreateEgg)
				r.Delete("/admin/egg-records/{id}", recordsH.DeleteEgg)
				r.Post("/admin/breeders/{id}/events", recordsH.CreateEvent)
				r.Delete("/admin/events/{id}", recordsH.DeleteEvent)

				r.Get("/admin/carousels", contentH.ListAllCarousels)
				r.Post("/admin/carousels", contentH.CreateCarousel)
				r.Put("/admin/carousels/{id}", contentH.UpdateCarousel)
				r.Delete("/admin/carousels/{id}", contentH.DeleteCarousel)

				r.Get("/admin/featured-products", contentH.ListAllFeatured)
				r.Post("/admin/featured-products", contentH.CreateFeatured)
				r.Put("/admin/featured-products/{id}", contentH.UpdateFeatured)
				r.Delete("/admin/featured-products/{id}", contentH.DeleteFeatured)
			})

			// Admin only.
			r.Group(func(r chi.Router) {
				r.Use(RequireRole(model.RoleAdmin))

				r.Get("/admin/users", usersH.List)
				r.Post("/admin/users", usersH.Create)
				r.Put("/admin/users/{id}", usersH.Update)
				r.Put("/admin/users/{id}/password", usersH.ResetPassword)
				r.Delete("/admin/users/{id}", usersH.Delete)

				r.Get("/admin/series", seriesH.ListAdmin)
				r.Post("/admin/series", seriesH.Create)
				r.Put("/admin/series/{id}", seriesH.Update)
				r.Delete("/admin/series/{id}", seriesH.Delete)

				r.Put("/admin/settings", contentH.UpdateSettings)

				r.Post("/products/batch-import", importH.Import)
				r.Get("/products/batch-import/template", importH.Template)
			})
		})
	})

	return r
}

// health handles GET /health.
func health(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
