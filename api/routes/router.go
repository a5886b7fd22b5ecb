package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/pos-ledger/api/controllers"
	"github.com/angelmondragon/pos-ledger/api/middleware"
	"github.com/angelmondragon/pos-ledger/internal/cart"
	checkoutsvc "github.com/angelmondragon/pos-ledger/internal/checkout"
	products "github.com/angelmondragon/pos-ledger/internal/products"
	"github.com/angelmondragon/pos-ledger/internal/sales"
	"github.com/angelmondragon/pos-ledger/pkg/config"
	"github.com/angelmondragon/pos-ledger/pkg/db"
	"github.com/angelmondragon/pos-ledger/pkg/logger"
)

// NewRouter mounts the terminal API. The register cart is shared by every
// request; the process serves a single point of sale.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	gatherer prometheus.Gatherer,
	productService products.Service,
	salesService sales.Service,
	checkoutService checkoutsvc.Service,
	register *cart.Cart,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.CORSAllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP))
	})

	if cfg.Metrics.Enabled && gatherer != nil {
		r.Method(http.MethodGet, cfg.Metrics.Path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(productService, logg))
			r.Post("/", controllers.CreateProduct(productService, logg))
			r.Get("/by-code/{code}", controllers.GetProductByCode(productService, logg))
			r.Get("/{productId}", controllers.GetProduct(productService, logg))
			r.Put("/{productId}", controllers.UpdateProduct(productService, logg))
			r.Delete("/{productId}", controllers.DeleteProduct(productService, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.GetCart(register))
			r.Delete("/", controllers.ClearCart(register))
			r.Post("/items", controllers.AddCartItem(register, productService, logg))
			r.Put("/items/{productId}", controllers.SetCartItemQuantity(register, logg))
			r.Delete("/items/{productId}", controllers.RemoveCartItem(register, logg))
		})

		r.Post("/checkout", controllers.Checkout(checkoutService, register, logg))

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", controllers.ListSales(salesService, logg))
			r.Get("/by-code/{code}", controllers.GetSaleByCode(salesService, logg))
			r.Get("/{saleId}", controllers.GetSale(salesService, logg))
		})
	})

	return r
}
