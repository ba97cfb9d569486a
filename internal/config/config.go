package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

type Config struct {
	Port    string
	LogMode string

	StoreDriver   string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string
	StoreRetries  int

	RedisAddr       string
	CatalogCacheTTL time.Duration

	SessionKey   string
	CookieSecure bool

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	MaxUsersPerBatch int
	MaxBatches       int

	AllowedOrigin string
	SeedCatalog   bool
}

// Load reads .env when present and then the process environment.
// A missing .env file is reported through envErr and is not fatal.
func Load() (cfg Config, envErr error) {
	envErr = godotenv.Load()
	cfg = FromEnv(os.Getenv)
	return cfg, envErr
}

// FromEnv builds a Config from a lookup function, applying defaults.
func FromEnv(getenv func(string) string) Config {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}
	return Config{
		Port:    get("PORT", "8080"),
		LogMode: get("LOG_MODE", "dev"),

		StoreDriver:   strings.ToLower(get("STORE_DRIVER", DriverMemory)),
		DatabaseURL:   get("DATABASE_URL", ""),
		MongoURI:      get("MONGO_URI", ""),
		MongoDatabase: get("MONGO_DATABASE", "campus"),
		StoreRetries:  intOr(get("STORE_RETRIES", ""), 3),

		RedisAddr:       get("REDIS_ADDR", ""),
		CatalogCacheTTL: durationOr(get("CATALOG_CACHE_TTL", ""), 5*time.Minute),

		SessionKey:   get("SESSION_KEY", ""),
		CookieSecure: boolOr(get("COOKIE_SECURE", ""), false),

		GoogleClientID:     get("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: get("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  get("GOOGLE_REDIRECT_URL", ""),

		MaxUsersPerBatch: intOr(get("MAX_USERS_PER_BATCH", ""), 200),
		MaxBatches:       intOr(get("MAX_BATCHES", ""), 10),

		AllowedOrigin: get("ALLOWED_ORIGIN", "*"),
		SeedCatalog:   boolOr(get("SEED_CATALOG", ""), true),
	}
}

func (c Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case DriverMemory:
	case DriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo driver"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	if c.GoogleClientID == "" || c.GoogleClientSecret == "" || c.GoogleRedirectURL == "" {
		errs = append(errs, errors.New("GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_REDIRECT_URL must be set"))
	}
	if c.MaxUsersPerBatch <= 0 || c.MaxBatches <= 0 {
		errs = append(errs, errors.New("MAX_USERS_PER_BATCH and MAX_BATCHES must be positive"))
	}
	if c.StoreRetries < 0 {
		errs = append(errs, fmt.Errorf("STORE_RETRIES must not be negative, got %d", c.StoreRetries))
	}
	if c.CookieSecure && c.SessionKey == "" {
		errs = append(errs, errors.New("SESSION_KEY is required when COOKIE_SECURE is on"))
	}
	return errors.Join(errs...)
}

func intOr(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func boolOr(s string, def bool) bool {
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}

func durationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
