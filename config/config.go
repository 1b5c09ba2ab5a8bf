package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

type CacheType string

const (
	CacheTypeMemory CacheType = "memory"
	CacheTypeRedis  CacheType = "redis"
)

// AssetCacheName is the default name of the asset cache. The version suffix
// is the invalidation mechanism: bumping it makes Activate drop every older
// cache.
const AssetCacheName = "expense-manager-v3"

// Config holds the configuration for the quanlitien server and its
// dependencies.
type Config struct {
	// Listen is the address the quanlitien server will listen on.
	Listen string `yaml:"listen" mapstructure:"listen"`
	// ServerURL is the base URL of the quanlitien server.
	ServerURL string `yaml:"server_url" mapstructure:"server_url"`
	// SessionKey is the key used to encrypt session data.
	SessionKey string `yaml:"session_key" mapstructure:"session_key"`
	// SessionMaxAge is the maximum age of a session in seconds.
	SessionMaxAge int `yaml:"session_max_age" mapstructure:"session_max_age"`
	// Store holds the persistence store configuration.
	Store *StoreConfig `yaml:"store" mapstructure:"store"`
	// Cache holds the asset cache backend configuration.
	Cache *CacheConfig `yaml:"cache" mapstructure:"cache"`
	// Assets holds the asset cache worker configuration.
	Assets *AssetsConfig `yaml:"assets" mapstructure:"assets"`
	// WebPush holds the webpush notification configuration.
	WebPush *WebPushConfig `yaml:"webpush" mapstructure:"webpush"`
	// SyncSchedule is the cron schedule for the background expense sync job.
	SyncSchedule string `yaml:"sync_schedule" mapstructure:"sync_schedule"`
}

// StoreConfig holds the persistence store configuration.
type StoreConfig struct {
	// Path is the sqlite database file path. ":memory:" keeps everything
	// in-process.
	Path string `yaml:"path" mapstructure:"path"`
}

// CacheConfig holds the configuration for the asset cache backend.
type CacheConfig struct {
	// Type is the type of cache backend to use (e.g., "memory", "redis").
	Type CacheType `yaml:"type" mapstructure:"type"`
	// RedisURL is the URL for the Redis cache if using Redis.
	RedisURL string `yaml:"redis_url" mapstructure:"redis_url"`
}

// AssetsConfig holds the configuration for the asset cache worker.
type AssetsConfig struct {
	// Upstream is the base URL the shell assets are fetched from.
	Upstream string `yaml:"upstream" mapstructure:"upstream"`
	// CacheName names the current asset cache generation.
	CacheName string `yaml:"cache_name" mapstructure:"cache_name"`
	// Shell is the list of URLs pre-cached during Install.
	Shell []string `yaml:"shell" mapstructure:"shell"`
}

// WebPushConfig holds the webpush notification configuration.
type WebPushConfig struct {
	// Enabled indicates whether webpush notifications are enabled.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// VAPIDEmail is the email associated with the VAPID keys.
	VAPIDEmail string `yaml:"vapid_email" mapstructure:"vapid_email"`
	// PublicKey is the VAPID public key.
	PublicKey string `yaml:"public_key" mapstructure:"public_key"`
	// PrivateKey is the VAPID private key.
	PrivateKey string `yaml:"private_key" mapstructure:"private_key"`
}

// DefaultShell is the asset list cached during Install when the config does
// not override it. Mirrors the application shell plus the icon stylesheet.
var DefaultShell = []string{
	"/",
	"/index.html",
	"/manifest.json",
	"https://cdnjs.cloudflare.com/ajax/libs/font-awesome/6.4.0/css/all.min.css",
}

// Load reads the configuration from the specified path and returns a Config
// struct. If path is empty, it will use default search paths for config
// files. Missing config files are fine, the defaults stand on their own.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix("QUANLITIEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var configFileFound bool
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.quanlitien")
		v.AddConfigPath("/etc/quanlitien")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		configFileFound = true
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if configFileFound {
		log.Debug("Using config file", "file", v.ConfigFileUsed())
		log.Debug("Environment variables with QUANLITIEN_ prefix will override config file values")
	}

	if err := validateConfig(&c); err != nil {
		return nil, err
	}

	return &c, nil
}

// setDefaults sets default values for the configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", "0.0.0.0:3002")
	v.SetDefault("server_url", "http://localhost:3002")
	v.SetDefault("session_max_age", 172800) // 48 hours
	v.SetDefault("sync_schedule", "0 * * * *")

	v.SetDefault("store.path", "quanlitien.db")

	v.SetDefault("cache.type", CacheTypeMemory)

	v.SetDefault("assets.upstream", "http://localhost:3002")
	v.SetDefault("assets.cache_name", AssetCacheName)
	v.SetDefault("assets.shell", DefaultShell)

	v.SetDefault("webpush.enabled", false)
}

// validateConfig validates the configuration.
func validateConfig(c *Config) error {
	if c == nil {
		return fmt.Errorf("missing quanlitien config")
	}
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}

	if c.Store == nil || c.Store.Path == "" {
		return fmt.Errorf("store path is required")
	}

	if c.Cache == nil {
		return fmt.Errorf("missing cache config")
	}
	switch c.Cache.Type {
	case CacheTypeMemory:
	case CacheTypeRedis:
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("redis URL is required when cache type is redis")
		}
	default:
		return fmt.Errorf("unknown cache type %q", c.Cache.Type)
	}

	if c.Assets == nil {
		return fmt.Errorf("missing assets config")
	}
	if c.Assets.CacheName == "" {
		return fmt.Errorf("asset cache name is required")
	}
	if _, err := url.Parse(c.Assets.Upstream); err != nil || c.Assets.Upstream == "" {
		return fmt.Errorf("assets upstream must be a valid URL")
	}

	if c.WebPush != nil && c.WebPush.Enabled {
		if c.WebPush.PublicKey == "" || c.WebPush.PrivateKey == "" {
			return fmt.Errorf("VAPID key pair is required when webpush is enabled")
		}
		if c.WebPush.VAPIDEmail == "" {
			return fmt.Errorf("VAPID email is required when webpush is enabled")
		}
	}

	if c.SessionKey == "" {
		log.Warn("No session key configured, sessions will not survive restarts")
	}

	return nil
}
