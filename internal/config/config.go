package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrUnknownStore is returned for a store identifier that was never
// configured. This is a programmer/caller error and is never degraded.
var ErrUnknownStore = errors.New("unknown store")

type Config struct {
	Server ServerConfig
	Engine EngineConfig
	Cache  CacheConfig
	Sheets SheetsConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type EngineConfig struct {
	DefaultStore      string
	LowStockThreshold int
	Workers           int
}

type CacheConfig struct {
	Enabled            bool
	RedisURL           string
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	VelocityTTLSeconds int
}

type SheetsConfig struct {
	SpreadsheetID   string
	CredentialsPath string
}

// Store holds the per-store credentials and sheet naming resolved from the
// environment.
type Store struct {
	ID           string
	DisplayName  string
	SheetSuffix  string
	ShopDomain   string
	AccessToken  string
	APIVersion   string
	LocationName string
}

type storeInfo struct {
	displayName  string
	envSuffix    string
	sheetSuffix  string
	apiVersion   string
	locationName string
}

// Registry of supported stores. Credentials come from environment
// variables suffixed per store (SHOPIFY_SHOP_DOMAIN_MX etc).
var supportedStores = map[string]storeInfo{
	"mexico": {
		displayName:  "Mexico",
		envSuffix:    "_MX",
		sheetSuffix:  " - Mexico",
		apiVersion:   "2024-01",
		locationName: "Segmail",
	},
	"usa": {
		displayName:  "USA",
		envSuffix:    "_US",
		sheetSuffix:  " - USA",
		apiVersion:   "2026-01",
		locationName: "Sage Distribution",
	},
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 15)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 30)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("ENGINE_DEFAULT_STORE", "mexico")
		viper.SetDefault("ENGINE_LOW_STOCK_THRESHOLD", 5)
		viper.SetDefault("ENGINE_WORKERS", 4)
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_VELOCITY_TTL_SECONDS", 86400)
		viper.SetDefault("GOOGLE_OAUTH_CREDENTIALS_PATH", "oauth_credentials.json")

		// Read from environment variables
		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Engine: EngineConfig{
				DefaultStore:      viper.GetString("ENGINE_DEFAULT_STORE"),
				LowStockThreshold: viper.GetInt("ENGINE_LOW_STOCK_THRESHOLD"),
				Workers:           viper.GetInt("ENGINE_WORKERS"),
			},
			Cache: CacheConfig{
				Enabled:            viper.GetBool("CACHE_ENABLED"),
				RedisURL:           viper.GetString("REDIS_URL"),
				RedisHost:          viper.GetString("REDIS_HOST"),
				RedisPort:          viper.GetString("REDIS_PORT"),
				RedisPassword:      viper.GetString("REDIS_PASSWORD"),
				RedisDB:            viper.GetInt("REDIS_DB"),
				VelocityTTLSeconds: viper.GetInt("CACHE_VELOCITY_TTL_SECONDS"),
			},
			Sheets: SheetsConfig{
				SpreadsheetID:   viper.GetString("GOOGLE_SPREADSHEET_ID"),
				CredentialsPath: viper.GetString("GOOGLE_OAUTH_CREDENTIALS_PATH"),
			},
		}
	})

	return instance
}

// Store resolves the configuration and credentials for one store.
func (c *Config) Store(id string) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(id))
	info, ok := supportedStores[key]
	if !ok {
		return Store{}, fmt.Errorf("%w: %q", ErrUnknownStore, id)
	}

	shopDomain := viper.GetString("SHOPIFY_SHOP_DOMAIN" + info.envSuffix)
	accessToken := viper.GetString("SHOPIFY_ACCESS_TOKEN" + info.envSuffix)

	// Legacy env vars configure the default store when the suffixed ones
	// are absent.
	if key == c.Engine.DefaultStore {
		if shopDomain == "" {
			shopDomain = viper.GetString("SHOPIFY_SHOP_DOMAIN")
		}
		if accessToken == "" {
			accessToken = viper.GetString("SHOPIFY_ACCESS_TOKEN")
		}
	}

	if shopDomain == "" || accessToken == "" {
		return Store{}, fmt.Errorf("missing Shopify credentials for store %q: set SHOPIFY_SHOP_DOMAIN%s and SHOPIFY_ACCESS_TOKEN%s",
			key, info.envSuffix, info.envSuffix)
	}

	return Store{
		ID:           key,
		DisplayName:  info.displayName,
		SheetSuffix:  info.sheetSuffix,
		ShopDomain:   shopDomain,
		AccessToken:  accessToken,
		APIVersion:   info.apiVersion,
		LocationName: info.locationName,
	}, nil
}

// KnownStore reports whether the identifier exists in the registry,
// regardless of whether its credentials are configured.
func KnownStore(id string) bool {
	_, ok := supportedStores[strings.ToLower(strings.TrimSpace(id))]
	return ok
}

// AvailableStores returns the stores that have credentials configured,
// keyed by id with display names as values.
func (c *Config) AvailableStores() map[string]string {
	available := make(map[string]string)
	for id := range supportedStores {
		store, err := c.Store(id)
		if err != nil {
			continue
		}
		available[id] = store.DisplayName
	}
	return available
}

// AllStores returns every supported store id with its display name.
func AllStores() map[string]string {
	all := make(map[string]string, len(supportedStores))
	for id, info := range supportedStores {
		all[id] = info.displayName
	}
	return all
}
