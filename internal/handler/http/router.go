package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yash24113/shofy-listsync/internal/controller"
	"github.com/yash24113/shofy-listsync/internal/session"
	"github.com/yash24113/shofy-listsync/internal/syncer"
	"github.com/yash24113/shofy-listsync/pkg/health"
	"github.com/yash24113/shofy-listsync/pkg/middleware"
)

// NewRouter creates a chi router with all list-sync routes registered.
func NewRouter(
	cart *controller.CartController,
	wishlist *controller.WishlistController,
	sess *session.Manager,
	engine *syncer.Engine,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("listsync"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	listHandler := NewListHandler(cart, wishlist, logger)
	sessionHandler := NewSessionHandler(sess, engine, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", listHandler.GetCart)
			r.Post("/refresh", listHandler.RefreshCart)
			r.Delete("/", listHandler.ClearCart)

			r.Post("/items", listHandler.AddCartItem)
			r.Post("/items/{productId}/increment", listHandler.IncrementCartItem)
			r.Post("/items/{productId}/decrement", listHandler.DecrementCartItem)
			r.Delete("/items/{productId}", listHandler.RemoveCartItem)
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", listHandler.GetWishlist)
			r.Post("/refresh", listHandler.RefreshWishlist)

			r.Post("/items", listHandler.AddWishlistItem)
			r.Delete("/items/{productId}", listHandler.RemoveWishlistItem)
			r.Post("/items/{productId}/move-to-cart", listHandler.MoveWishlistItemToCart)
		})

		r.Get("/session", sessionHandler.GetSession)
		r.Post("/session", sessionHandler.Login)
		r.Delete("/session", sessionHandler.Logout)
		r.Post("/lifecycle", sessionHandler.Lifecycle)
	})

	return r
}
