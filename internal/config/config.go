package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	BackendFirestore = "firestore"
	BackendMongo     = "mongo"
	BackendMemory    = "memory"
)

type HTTPConfig struct {
	Port               string   `env:"PORT" envDefault:"8080"`
	AppURL             string   `env:"SHOPIFY_APP_URL" envDefault:"http://localhost:8080"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"https://admin.shopify.com"`
}

type ShopifyConfig struct {
	APIKey       string        `env:"SHOPIFY_API_KEY"`
	APISecret    string        `env:"SHOPIFY_API_SECRET"`
	Scopes       []string      `env:"SCOPES" envSeparator:"," envDefault:"read_customers,write_customers,read_products"`
	APIVersion   string        `env:"SHOPIFY_API_VERSION" envDefault:"2024-07"`
	Timeout      time.Duration `env:"SHOPIFY_TIMEOUT" envDefault:"15s"`
	CustomDomain string        `env:"SHOP_CUSTOM_DOMAIN"`
}

type SessionConfig struct {
	Secret       string        `env:"SESSION_SECRET"`
	ExternalTTL  time.Duration `env:"EXTERNAL_SESSION_TTL" envDefault:"168h"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"true"`
}

type StoreConfig struct {
	Backend    string `env:"STORE_BACKEND" envDefault:"firestore"`
	Collection string `env:"STORE_COLLECTION" envDefault:"shopify_stores"`
}

type MongoConfig struct {
	URI      string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	Database string `env:"MONGODB_DATABASE" envDefault:"customer_sync"`
}

type FirebaseConfig struct {
	ProjectID       string `env:"FIREBASE_PROJECT_ID"`
	ClientEmail     string `env:"FIREBASE_CLIENT_EMAIL"`
	PrivateKey      string `env:"FIREBASE_PRIVATE_KEY"`
	CredentialsFile string `env:"GOOGLE_APPLICATION_CREDENTIALS"`
}

type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	CacheTTL time.Duration `env:"REDIS_CACHE_TTL" envDefault:"5m"`
}

type SyncConfig struct {
	Concurrency int `env:"SYNC_CONCURRENCY" envDefault:"1"`
}

type Config struct {
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	EncryptionKey string `env:"ENCRYPTION_KEY"`

	HTTP     HTTPConfig
	Shopify  ShopifyConfig
	Session  SessionConfig
	Store    StoreConfig
	Mongo    MongoConfig
	Firebase FirebaseConfig
	Redis    RedisConfig
	Sync     SyncConfig
}

// LoadDotEnv loads .env into the process environment; a missing file is reported but not fatal
func LoadDotEnv(filenames ...string) error {
	return godotenv.Load(filenames...)
}

// Load parses the configuration from the environment
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.HTTP.AppURL = strings.TrimSuffix(cfg.HTTP.AppURL, "/")
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that have no safe default
func (c Config) Validate() error {
	var errs []error
	if len(c.Session.Secret) < 16 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 16 characters"))
	}
	switch c.Store.Backend {
	case BackendFirestore, BackendMongo, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be one of firestore, mongo, memory (got %q)", c.Store.Backend))
	}
	if c.Sync.Concurrency < 1 {
		errs = append(errs, errors.New("SYNC_CONCURRENCY must be at least 1"))
	}
	return errors.Join(errs...)
}

// CallbackURL is the OAuth redirect registered for the app
func (c Config) CallbackURL() string {
	return c.HTTP.AppURL + "/auth/callback"
}
