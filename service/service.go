package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/loganlanou/aigifts/internal/apperr"
	"github.com/loganlanou/aigifts/internal/auth"
	"github.com/loganlanou/aigifts/internal/blob"
	"github.com/loganlanou/aigifts/internal/fulfillment"
	"github.com/loganlanou/aigifts/internal/handlers"
	"github.com/loganlanou/aigifts/internal/imagegen"
	"github.com/loganlanou/aigifts/internal/jobs"
	"github.com/loganlanou/aigifts/internal/orders"
	"github.com/loganlanou/aigifts/internal/paypal"
	"github.com/loganlanou/aigifts/internal/planner"
	"github.com/loganlanou/aigifts/internal/queue"
	"github.com/loganlanou/aigifts/internal/stripe"
	"github.com/loganlanou/aigifts/storage"
)

// Stores is the persistence a Service runs on.
type Stores struct {
	Jobs   jobs.Store
	Orders orders.Store
	Queue  queue.Queue
}

// MemoryStores keeps everything in process. State is lost on restart.
func MemoryStores() Stores {
	return Stores{
		Jobs:   jobs.NewMemoryStore(),
		Orders: orders.NewMemoryStore(),
		Queue:  queue.NewMemoryQueue(),
	}
}

// SQLiteStores backs jobs, orders and the task queue with one database.
func SQLiteStores(s *storage.Storage) Stores {
	return Stores{
		Jobs:   s.Jobs,
		Orders: s.Orders,
		Queue:  s.Tasks,
	}
}

type Service struct {
	config *Config
	stores Stores
	blobs  blob.Store
	signer *auth.TokenSigner
	runner *queue.Runner

	uploadHandler      *handlers.UploadHandler
	chatHandler        *handlers.ChatHandler
	spookifyHandler    *handlers.SpookifyHandler
	assetHandler       *handlers.AssetHandler
	paymentHandler     *handlers.PaymentHandler
	paypalHandler      *handlers.PayPalHandler
	fulfillmentHandler *handlers.FulfillmentHandler
}

func New(ctx context.Context, config *Config, stores Stores) (*Service, error) {
	blobs, err := blob.NewFSStore(config.Upload.Dir, config.BaseURL)
	if err != nil {
		return nil, err
	}

	chatPlanner, err := newPlanner(ctx, config)
	if err != nil {
		return nil, err
	}

	generator, err := imagegen.New(ctx, config.Gemini.APIKey, config.Gemini.ImageModel, config.Gemini.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create image generator: %w", err)
	}
	if generator.Mock() {
		slog.Warn("GEMINI_API_KEY not set, image generation painting local tints")
	}
	processor := jobs.NewProcessor(stores.Jobs, blobs, generator)
	signer := auth.NewTokenSigner(config.JWT.Secret, config.JWT.WorkerTTL)

	spookifyHandler := handlers.NewSpookifyHandler(stores.Jobs, stores.Queue, blobs, processor)
	if config.Queue.Dispatch == DispatchHTTP {
		slog.Info("stylize jobs dispatched over http", "worker_url", config.Queue.WorkerURL)
		spookifyHandler.WithTrigger(handlers.NewWorkerClient(config.Queue.WorkerURL, signer))
	}

	gelato := fulfillment.NewGelatoClient(fulfillment.GelatoConfig{
		APIKey:            config.Gelato.APIKey,
		BaseURL:           config.Gelato.BaseURL,
		ShipmentMethodUID: config.Gelato.ShipmentMethodUID,
	})
	prodigi := fulfillment.NewProdigiClient(fulfillment.ProdigiConfig{
		APIKey:         config.Prodigi.APIKey,
		StagingURL:     config.Prodigi.StagingURL,
		BaseURL:        config.Prodigi.BaseURL,
		ShippingMethod: config.Prodigi.ShippingMethod,
	})
	dispatcher := fulfillment.NewDispatcher(stores.Orders, gelato, prodigi)

	stripeService := stripe.NewService(stripe.Config{
		SecretKey:        config.Stripe.SecretKey,
		WebhookSecret:    config.Stripe.WebhookSecret,
		SuccessURL:       config.Stripe.SuccessURL,
		CancelURL:        config.Stripe.CancelURL,
		AllowedCountries: config.Stripe.AllowedCountries,
	})
	if !stripeService.Enabled() {
		slog.Warn("stripe is not configured, card checkout disabled")
	}

	paypalClient := paypal.NewClient(paypal.Config{
		ClientID:  config.PayPal.ClientID,
		Secret:    config.PayPal.Secret,
		BaseURL:   config.PayPal.BaseURL,
		ReturnURL: config.PayPal.ReturnURL,
		CancelURL: config.PayPal.CancelURL,
		BrandName: config.PayPal.BrandName,
	})
	if !paypalClient.Enabled() {
		slog.Warn("paypal is not configured, paypal checkout disabled")
	}

	runner := queue.NewRunner(stores.Queue, queue.RunnerOptions{
		PollInterval: config.Queue.PollInterval,
		MaxAttempts:  config.Queue.MaxAttempts,
		Concurrency:  config.Queue.Concurrency,
	})
	runner.Handle(queue.KindStylize, spookifyHandler.RunStylizeTask)
	runner.HandleDeadLetter(queue.KindStylize, spookifyHandler.FailStylizeTask)

	return &Service{
		config: config,
		stores: stores,
		blobs:  blobs,
		signer: signer,
		runner: runner,

		uploadHandler:      handlers.NewUploadHandler(blobs, config.Upload.MaxSize),
		chatHandler:        handlers.NewChatHandler(chatPlanner),
		spookifyHandler:    spookifyHandler,
		assetHandler:       handlers.NewAssetHandler(stores.Jobs, blobs, config.ShopURL),
		paymentHandler:     handlers.NewPaymentHandler(stripeService, stores.Orders, dispatcher),
		paypalHandler:      handlers.NewPayPalHandler(paypalClient, stores.Orders, dispatcher),
		fulfillmentHandler: handlers.NewFulfillmentHandler(stores.Orders, dispatcher),
	}, nil
}

func newPlanner(ctx context.Context, config *Config) (*planner.Planner, error) {
	if config.Planner.Backend == PlannerOllama {
		p := planner.NewOllama(config.Planner.OllamaURL, config.Planner.OllamaModel)
		if !p.Available(ctx) {
			slog.Warn("ollama planner not reachable, chat requests will fail until it is", "url", config.Planner.OllamaURL)
		}
		return p, nil
	}

	p, err := planner.New(ctx, config.Gemini.APIKey, config.Gemini.PlannerModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create planner: %w", err)
	}
	return p, nil
}

// Start begins draining the task queue.
func (s *Service) Start(ctx context.Context) {
	s.runner.Start(ctx)
}

// Stop waits for in-flight tasks to finish.
func (s *Service) Stop() {
	s.runner.Stop()
}

func (s *Service) RegisterRoutes(e *echo.Echo) {
	e.HTTPErrorHandler = apperr.HTTPErrorHandler

	// Uploaded photos, stylized results and print assets
	e.Static("/public/uploads", s.config.Upload.Dir)

	e.GET("/health", handlers.Health)

	api := e.Group("/api")
	api.GET("/products", handlers.Products)
	api.GET("/themes", handlers.Themes)

	api.POST("/upload", s.uploadHandler.Upload)

	// LLM and generation endpoints share one per-IP limiter
	limited := s.rateLimiter()
	api.POST("/chat", s.chatHandler.Chat, limited)
	api.POST("/spookify/begin", s.spookifyHandler.Begin, limited)
	api.POST("/spookify/worker", s.spookifyHandler.Worker, auth.RequireWorkerToken(s.signer))
	api.GET("/spookify/status/:id", s.spookifyHandler.Status)

	api.POST("/assets", s.assetHandler.Create)

	// Stripe -> Gelato
	api.POST("/checkout/stripe", s.paymentHandler.CreateCheckout)
	api.GET("/checkout/confirm", s.paymentHandler.ConfirmCheckout)
	api.POST("/stripe/webhook", s.paymentHandler.HandleWebhook)

	// PayPal -> Prodigi
	api.POST("/paypal/orders", s.paypalHandler.CreateOrder)
	api.POST("/paypal/orders/:id/capture", s.paypalHandler.CaptureOrder)

	api.GET("/orders/:id", s.fulfillmentHandler.GetOrderContext)
	api.POST("/fulfillment/:vendor/orders", s.fulfillmentHandler.CreateVendorOrder)
	api.GET("/fulfillment/:vendor/orders/:id", s.fulfillmentHandler.GetVendorOrder)
}

func (s *Service) rateLimiter() echo.MiddlewareFunc {
	perMinute := s.config.RateLimit.PerMinute
	if perMinute <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(perMinute / 60),
			Burst:     s.config.RateLimit.Burst,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "unable to identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			slog.Warn("rate limit exceeded", "ip", identifier, "path", c.Request().URL.Path)
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, slow down")
		},
	})
}
