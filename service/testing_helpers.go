package service

import (
	"context"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/loganlanou/aigifts/storage"
)

// testConfig returns a config with every external integration left
// unconfigured, so planner and image generation run in mock mode.
func testConfig(t *testing.T) *Config {
	t.Helper()

	config := &Config{
		Environment: "test",
		Port:        "8080",
		BaseURL:     "http://localhost:8080",
		Store:       StoreMemory,
		ShopURL:     "http://localhost:8080",
	}
	config.JWT.Secret = "test-secret"
	config.JWT.WorkerTTL = time.Minute
	config.Stripe.WebhookSecret = "whsec_test"
	config.Upload.MaxSize = 1 << 20
	config.Upload.Dir = t.TempDir()
	config.Queue.Dispatch = DispatchLocal
	config.Queue.PollInterval = 10 * time.Millisecond
	config.Queue.MaxAttempts = 3
	config.Queue.Concurrency = 1
	config.RateLimit.PerMinute = 60
	config.RateLimit.Burst = 3
	return config
}

// setupTestService creates a service over the given stores.
func setupTestService(t *testing.T, config *Config, stores Stores) *Service {
	t.Helper()

	svc, err := New(context.Background(), config, stores)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc
}

// setupTestEcho creates an Echo instance with routes registered over memory stores.
func setupTestEcho(t *testing.T) (*echo.Echo, *Service) {
	t.Helper()
	return setupTestEchoWith(t, testConfig(t), MemoryStores())
}

func setupTestEchoWith(t *testing.T, config *Config, stores Stores) (*echo.Echo, *Service) {
	t.Helper()

	e := echo.New()
	svc := setupTestService(t, config, stores)
	svc.RegisterRoutes(e)
	return e, svc
}

// sqliteStores opens an in-memory database for the durable stores.
func sqliteStores(t *testing.T) Stores {
	t.Helper()

	store, cleanup, err := storage.NewTestDB()
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(cleanup)
	return SQLiteStores(store)
}
