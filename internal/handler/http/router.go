package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Astrolithia/qvtu-shopping/internal/domain"
	"github.com/Astrolithia/qvtu-shopping/internal/service"
	"github.com/Astrolithia/qvtu-shopping/pkg/health"
	"github.com/Astrolithia/qvtu-shopping/pkg/middleware"
)

// orderStatusesMaxAge is how long clients may cache the status list, in seconds.
const orderStatusesMaxAge = 3600

// Services groups the business services the router exposes.
type Services struct {
	Auth      *service.AuthService
	Users     *service.UserService
	Customers *service.CustomerService
	Addresses *service.AddressService
	Groups    *service.GroupService
	Orders    *service.OrderService
}

// RouterConfig holds the optional cross-cutting pieces of the router.
type RouterConfig struct {
	ServiceName    string
	RequestTimeout time.Duration
	CORS           middleware.CORSConfig
	// AuthLimiter throttles /auth per client IP. Nil disables it.
	AuthLimiter *middleware.RateLimiter
	// Metrics records HTTP metrics. Nil disables it.
	Metrics *middleware.HTTPMetrics
	// MetricsHandler serves /metrics. Defaults to promhttp.Handler().
	MetricsHandler http.Handler
}

// NewRouter creates a chi router with all routes registered.
func NewRouter(
	svcs Services,
	validate middleware.TokenValidator,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
	}
	r.Use(middleware.RequestLogging(logger))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Handler)
	}
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	authHandler := NewAuthHandler(svcs.Auth, logger)
	userHandler := NewUserHandler(svcs.Users, logger)
	customerHandler := NewCustomerHandler(svcs.Customers, logger)
	addressHandler := NewAddressHandler(svcs.Addresses, logger)
	groupHandler := NewGroupHandler(svcs.Groups, logger)
	orderHandler := NewOrderHandler(svcs.Orders, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		// Public
		r.Route("/auth", func(r chi.Router) {
			if cfg.AuthLimiter != nil {
				r.Use(cfg.AuthLimiter.Handler)
			}
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		r.With(middleware.CacheControl(orderStatusesMaxAge)).
			Get("/order-statuses", ListStatuses)

		// Authenticated caller
		r.Route("/users/me", func(r chi.Router) {
			r.Use(middleware.Auth(validate))
			r.Get("/", userHandler.Me)
			r.Put("/", userHandler.UpdateMe)
			r.Put("/password", userHandler.ChangePassword)
		})

		// Admin
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(validate))
			r.Use(middleware.RequireRole(domain.RoleAdmin))
			r.Use(middleware.RequestLogger(logger))

			r.Route("/users", func(r chi.Router) {
				r.Get("/", userHandler.List)
				r.Get("/{id}", userHandler.Get)
				r.Put("/{id}", userHandler.Update)
				r.Delete("/{id}", userHandler.Delete)
			})

			r.Route("/customers", func(r chi.Router) {
				r.Post("/", customerHandler.Create)
				r.Get("/", customerHandler.List)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", customerHandler.Get)
					r.Put("/", customerHandler.Update)
					r.Delete("/", customerHandler.Delete)
					r.Post("/customer-groups", customerHandler.ReplaceGroups)

					r.Get("/addresses", addressHandler.List)
					r.Post("/addresses", addressHandler.Add)
					r.Get("/addresses/{addressId}", addressHandler.Get)
					r.Put("/addresses/{addressId}", addressHandler.Update)
					r.Put("/addresses/{addressId}/default", addressHandler.SetDefault)
					r.Delete("/addresses/{addressId}", addressHandler.Remove)
				})
			})

			r.Route("/customer-groups", func(r chi.Router) {
				r.Post("/", groupHandler.Create)
				r.Get("/", groupHandler.List)
				r.Get("/{id}", groupHandler.Get)
				r.Delete("/{id}", groupHandler.Delete)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", orderHandler.Create)
				r.Get("/", orderHandler.List)
				r.Get("/{id}", orderHandler.Get)
				r.Post("/{id}/items", orderHandler.AddItem)
				r.Put("/{id}/items/{itemId}", orderHandler.UpdateItem)
				r.Delete("/{id}/items/{itemId}", orderHandler.RemoveItem)
				r.Put("/{id}/adjustments", orderHandler.SetAdjustments)
				r.Put("/{id}/status", orderHandler.UpdateStatus)
			})
		})
	})

	return r
}
