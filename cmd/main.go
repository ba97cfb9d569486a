package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/s/campus/internal/app"
	"github.com/s/campus/internal/auth"
	"github.com/s/campus/internal/cache"
	"github.com/s/campus/internal/config"
	"github.com/s/campus/internal/database"
	"github.com/s/campus/internal/docstore"
	"github.com/s/campus/internal/handlers"
	"github.com/s/campus/internal/logger"
	"github.com/s/campus/internal/server"
	"github.com/s/campus/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// ---------------------------
	// 0. Конфигурация и логгер
	// ---------------------------
	cfg, envErr := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if envErr != nil {
		log.Warn("no .env file loaded, using process environment", "error", envErr)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------------------------
	// 1. Хранилище документов
	// ---------------------------
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("store unavailable", "driver", cfg.StoreDriver, "error", err)
	}
	policy := docstore.DefaultRetryPolicy()
	policy.MaxTries = uint(cfg.StoreRetries)
	store = docstore.WithRetry(store, policy, log)

	// ---------------------------
	// 2. Кэш каталога (необязательный)
	// ---------------------------
	var courseCache storage.CourseCache
	rdb, err := database.ConnectRedis(ctx, cfg.RedisAddr, log)
	if err != nil {
		log.Warn("redis unavailable, catalog cache disabled", "error", err)
	} else if rdb != nil {
		defer rdb.Close()
		courseCache = cache.NewRedisCache(rdb, "campus:", cfg.CatalogCacheTTL)
	}

	// ---------------------------
	// 3. Приложение и сиды
	// ---------------------------
	batches := storage.DefaultBatchConfig()
	batches.MaxPerBatch = cfg.MaxUsersPerBatch
	batches.MaxBatches = cfg.MaxBatches
	a := app.New(store, courseCache, batches, log)
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			log.Warn("store close failed", "error", err)
		}
	}()

	if cfg.SeedCatalog {
		n, err := database.Seed(ctx, a.Catalog)
		if err != nil {
			log.Warn("catalog seed failed", "error", err)
		} else if n > 0 {
			log.Info("catalog seeded", "courses", n)
		}
	}

	// ---------------------------
	// 4. Google OAuth и сессии
	// ---------------------------
	provider := auth.NewGoogleProvider(auth.InitGoogleOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL))

	sessionKey := cfg.SessionKey
	if sessionKey == "" {
		sessionKey = "super-secret-default-key" // только для разработки
		log.Warn("SESSION_KEY not set, using the development default")
	}
	sessionStore := handlers.NewSessionStore([]byte(sessionKey), cfg.CookieSecure)

	// ---------------------------
	// 5. Роутинг и запуск сервера
	// ---------------------------
	h := handlers.NewHandler(a, sessionStore, provider, log)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.NewRouter(h, log, cfg.AllowedOrigin),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server started", "addr", "http://localhost:"+cfg.Port, "driver", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", "error", err)
	}
	log.Info("server stopped")
}

func openStore(ctx context.Context, cfg config.Config, log *logger.Logger) (docstore.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, err := database.ConnectMongo(ctx, cfg.MongoURI, log)
		if err != nil {
			return nil, err
		}
		return docstore.NewMongoStore(client, cfg.MongoDatabase), nil
	case config.DriverPostgres:
		db, err := database.ConnectPostgres(cfg.DatabaseURL, log)
		if err != nil {
			return nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, err
		}
		return docstore.NewPostgresStore(db), nil
	default:
		log.Warn("using the in-memory store, data is lost on restart")
		return docstore.NewMemoryStore(), nil
	}
}
