package routes

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dcode-github/property_rentals/backend/controllers"
	"github.com/dcode-github/property_rentals/backend/images"
	"github.com/dcode-github/property_rentals/backend/middleware"
	"github.com/dcode-github/property_rentals/backend/models"
	"github.com/dcode-github/property_rentals/backend/store"
)

// Dependencies are the services the HTTP API is built over. Uploader, Metrics
// and Gatherer are optional.
type Dependencies struct {
	Properties     store.PropertyStore
	Roles          *middleware.RoleResolver
	Verifier       middleware.TokenVerifier
	Uploader       images.Uploader
	MaxUploadBytes int64
	Metrics        *middleware.Metrics
	Gatherer       prometheus.Gatherer
	Logger         *slog.Logger
}

func Routes(router *mux.Router, deps Dependencies) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router.Use(middleware.RequestID, middleware.Logging(logger))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware)
	}

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods("GET")
	if deps.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}

	// Routes that require authentication
	authenticated := router.PathPrefix("/api").Subrouter()
	authenticated.Use(middleware.AuthMiddleware(deps.Verifier, logger), deps.Roles.Middleware)

	realtorOnly := middleware.RequireRole(models.RoleRealtor)
	pc := controllers.NewPropertyController(deps.Properties, logger)

	// User routes
	authenticated.HandleFunc("/me/role", controllers.GetMyRole()).Methods("GET")
	authenticated.HandleFunc("/me/role", controllers.SetMyRole(deps.Roles, logger)).Methods("PUT")

	// Property routes
	authenticated.HandleFunc("/properties", pc.GetAllProperties()).Methods("GET")
	authenticated.HandleFunc("/properties/search", pc.SearchProperties()).Methods("GET")
	authenticated.HandleFunc("/properties/{id}", pc.GetPropertyByID()).Methods("GET")
	authenticated.HandleFunc("/realtors/{id}/properties", pc.GetRealtorProperties()).Methods("GET")

	authenticated.Handle("/properties", realtorOnly(pc.CreateProperty())).Methods("POST")
	authenticated.Handle("/properties/{id}", realtorOnly(pc.UpdateProperty())).Methods("PATCH")
	authenticated.Handle("/properties/{id}", realtorOnly(pc.DeleteProperty())).Methods("DELETE")
	authenticated.Handle("/properties/{id}/availability", realtorOnly(pc.ToggleAvailability())).Methods("PUT")

	if deps.Uploader != nil {
		authenticated.Handle("/images", realtorOnly(controllers.UploadImage(deps.Uploader, deps.MaxUploadBytes, logger))).Methods("POST")
	}
}
