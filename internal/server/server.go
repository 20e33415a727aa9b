package server

import (
	"context"
	"net/http"
	"storefront-api/internal/config"
	"storefront-api/internal/handler"
	"storefront-api/internal/metrics"
	"storefront-api/internal/middleware"
	"storefront-api/internal/service"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Stripe event payloads stay well below this.
const webhookBodyLimit = "1M"

type Server struct {
	echo           *echo.Echo
	orderHandler   *handler.OrderHandler
	cartHandler    *handler.CartHandler
	addressHandler *handler.AddressHandler
	gatherer       prometheus.Gatherer
	jwtSecret      []byte
}

func NewServer(
	cfg *config.Config,
	orderService service.OrderService,
	cartService service.CartService,
	addressService service.AddressService,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.HTTP.AllowedOrigins,
		AllowCredentials: true,
	}))
	e.Use(m.Middleware())
	if cfg.HTTP.RequestTimeout > 0 {
		e.Use(echomw.ContextTimeout(cfg.HTTP.RequestTimeout))
	}

	s := &Server{
		echo:           e,
		orderHandler:   handler.NewOrderHandler(orderService, logger),
		cartHandler:    handler.NewCartHandler(cartService),
		addressHandler: handler.NewAddressHandler(addressService),
		gatherer:       gatherer,
		jwtSecret:      []byte(cfg.Auth.JWTSecret),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	userAuth := middleware.Auth(s.jwtSecret, middleware.UserCookie)
	sellerAuth := middleware.Auth(s.jwtSecret, middleware.SellerCookie)

	s.echo.GET("/metrics", echo.WrapHandler(metrics.Handler(s.gatherer)))

	// -------- stripe webhook --------
	s.echo.POST("/stripe", s.orderHandler.StripeWebhook, echomw.BodyLimit(webhookBodyLimit))

	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// "card" is the path the storefront client has always used
	cart := api.Group("/card", userAuth)
	cart.GET("", s.cartHandler.GetCart)
	cart.POST("/update", s.cartHandler.UpdateCart)
	cart.POST("/add", s.cartHandler.AddItem)
	cart.POST("/remove", s.cartHandler.RemoveItem)

	order := api.Group("/order")
	order.POST("/cod", s.orderHandler.PlaceOrderCOD, userAuth)
	order.POST("/stripe", s.orderHandler.PlaceOrderStripe, userAuth)
	order.POST("/user", s.orderHandler.GetUserOrders, userAuth)
	order.GET("/user", s.orderHandler.GetUserOrders, userAuth)
	order.GET("/seller", s.orderHandler.GetAllOrders, sellerAuth, middleware.RequireRole(middleware.RoleSeller))

	address := api.Group("/address", userAuth)
	address.POST("/add", s.addressHandler.AddAddress)
	address.GET("/get", s.addressHandler.GetAddresses)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
