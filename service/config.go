package service

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/loganlanou/aigifts/internal/fulfillment"
	"github.com/loganlanou/aigifts/internal/paypal"
	"github.com/loganlanou/aigifts/internal/planner"
)

const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"

	DispatchLocal = "local"
	DispatchHTTP  = "http"

	PlannerGemini = "gemini"
	PlannerOllama = "ollama"
)

type Config struct {
	Environment string
	Port        string
	BaseURL     string
	DBPath      string
	// Store selects sqlite (durable) or memory (lost on restart).
	Store string

	JWT struct {
		Secret    string
		WorkerTTL time.Duration
	}

	Stripe struct {
		SecretKey        string
		WebhookSecret    string
		SuccessURL       string
		CancelURL        string
		AllowedCountries []string
	}

	PayPal struct {
		ClientID  string
		Secret    string
		BaseURL   string
		ReturnURL string
		CancelURL string
		BrandName string
	}

	Gelato struct {
		APIKey            string
		BaseURL           string
		ShipmentMethodUID string
	}

	Prodigi struct {
		APIKey         string
		StagingURL     string
		BaseURL        string
		ShippingMethod string
	}

	// Gemini.BaseURL points the image client at a proxy; empty uses Google's API.
	Gemini struct {
		APIKey       string
		PlannerModel string
		ImageModel   string
		BaseURL      string
	}

	// Planner picks the chat backend: gemini (mock without a key) or ollama.
	Planner struct {
		Backend     string
		OllamaURL   string
		OllamaModel string
	}

	Upload struct {
		MaxSize int64
		Dir     string
	}

	Queue struct {
		// Dispatch is local (run jobs in this process) or http (call WorkerURL).
		Dispatch     string
		WorkerURL    string
		Concurrency  int64
		PollInterval time.Duration
		MaxAttempts  int
	}

	RateLimit struct {
		PerMinute float64
		Burst     int
	}

	ShopURL string
}

func LoadConfig() (*Config, error) {
	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnv("PORT", "8000"),
		BaseURL:     strings.TrimSuffix(getEnv("BASE_URL", "http://localhost:8000"), "/"),
		DBPath:      getEnv("DB_PATH", "./db/aigifts.db"),
		Store:       getEnv("STORE", StoreSQLite),
	}
	config.ShopURL = getEnv("SHOP_URL", config.BaseURL)

	// JWT
	config.JWT.Secret = getEnv("JWT_SECRET", "development-secret")
	config.JWT.WorkerTTL = getDuration("WORKER_TOKEN_TTL", 15*time.Minute)

	// Stripe
	config.Stripe.SecretKey = getEnv("STRIPE_SECRET_KEY", "")
	config.Stripe.WebhookSecret = getEnv("STRIPE_WEBHOOK_SECRET", "")
	config.Stripe.SuccessURL = getEnv("STRIPE_SUCCESS_URL", config.BaseURL+"/api/checkout/confirm?session_id={CHECKOUT_SESSION_ID}")
	config.Stripe.CancelURL = getEnv("STRIPE_CANCEL_URL", config.BaseURL+"/checkout/cancel")
	config.Stripe.AllowedCountries = getList("STRIPE_ALLOWED_COUNTRIES")

	// PayPal
	config.PayPal.ClientID = getEnv("PAYPAL_CLIENT_ID", "")
	config.PayPal.Secret = getEnv("PAYPAL_SECRET", "")
	config.PayPal.BaseURL = getEnv("PAYPAL_BASE_URL", paypal.SandboxBaseURL)
	config.PayPal.ReturnURL = getEnv("PAYPAL_RETURN_URL", config.BaseURL+"/checkout/paypal/return")
	config.PayPal.CancelURL = getEnv("PAYPAL_CANCEL_URL", config.BaseURL+"/checkout/cancel")
	config.PayPal.BrandName = getEnv("PAYPAL_BRAND_NAME", "AI Gifts")

	// Gelato
	config.Gelato.APIKey = getEnv("GELATO_API_KEY", "")
	config.Gelato.BaseURL = getEnv("GELATO_BASE_URL", fulfillment.GelatoBaseURL)
	config.Gelato.ShipmentMethodUID = getEnv("GELATO_SHIPMENT_METHOD", "")

	// Prodigi: staging is tried first, production is the fallback
	config.Prodigi.APIKey = getEnv("PRODIGI_API_KEY", "")
	stagingDefault := fulfillment.ProdigiSandboxURL
	if config.Environment == "production" {
		stagingDefault = ""
	}
	config.Prodigi.StagingURL = getEnv("PRODIGI_STAGING_URL", stagingDefault)
	config.Prodigi.BaseURL = getEnv("PRODIGI_BASE_URL", fulfillment.ProdigiLiveURL)
	config.Prodigi.ShippingMethod = getEnv("PRODIGI_SHIPPING_METHOD", "Standard")

	// Gemini
	config.Gemini.APIKey = getEnv("GEMINI_API_KEY", "")
	config.Gemini.PlannerModel = getEnv("GEMINI_PLANNER_MODEL", "")
	config.Gemini.ImageModel = getEnv("GEMINI_IMAGE_MODEL", "")
	config.Gemini.BaseURL = getEnv("GEMINI_BASE_URL", "")

	// Planner
	config.Planner.Backend = getEnv("PLANNER_BACKEND", PlannerGemini)
	config.Planner.OllamaURL = getEnv("OLLAMA_URL", planner.DefaultOllamaURL)
	config.Planner.OllamaModel = getEnv("OLLAMA_MODEL", planner.DefaultOllamaModel)

	// Upload
	maxSize := getEnv("UPLOAD_MAX_SIZE", "10485760") // 10MB default
	if size, err := strconv.ParseInt(maxSize, 10, 64); err == nil && size > 0 {
		config.Upload.MaxSize = size
	} else {
		config.Upload.MaxSize = 10485760
	}
	config.Upload.Dir = getEnv("UPLOAD_DIR", "./public/uploads")

	// Queue
	config.Queue.Dispatch = getEnv("QUEUE_DISPATCH", DispatchLocal)
	config.Queue.WorkerURL = getEnv("WORKER_URL", config.BaseURL+"/api/spookify/worker")
	config.Queue.Concurrency = int64(getInt("QUEUE_CONCURRENCY", 2))
	config.Queue.PollInterval = getDuration("QUEUE_POLL_INTERVAL", time.Second)
	config.Queue.MaxAttempts = getInt("QUEUE_MAX_ATTEMPTS", 5)

	// Rate limiting for the LLM and generation endpoints
	config.RateLimit.PerMinute = float64(getInt("RATE_LIMIT_PER_MINUTE", 20))
	config.RateLimit.Burst = getInt("RATE_LIMIT_BURST", 5)

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}

func getList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
