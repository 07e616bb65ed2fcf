package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gomarketplace/cartstore/api/controllers"
	cartcontrollers "github.com/gomarketplace/cartstore/api/controllers/cart"
	"github.com/gomarketplace/cartstore/api/middleware"
	"github.com/gomarketplace/cartstore/internal/cart"
	"github.com/gomarketplace/cartstore/pkg/config"
	"github.com/gomarketplace/cartstore/pkg/logger"
)

// NewRouter mounts the health probes, the metrics endpoint and the cart API.
// metricsHandler may be nil, in which case /metrics is not served.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	cartService cart.Service,
	readiness map[string]controllers.Pinger,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Get("/", cartcontrollers.CartFetch(cartService, logg))
		r.Post("/items", cartcontrollers.CartAddItem(cartService, logg))
		r.Post("/items/{productID}/increment", cartcontrollers.CartIncrementItem(cartService, logg))
		r.Post("/items/{productID}/decrement", cartcontrollers.CartDecrementItem(cartService, logg))
	})

	return r
}
