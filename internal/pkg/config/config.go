package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	WebService   WebServiceConfig   `mapstructure:"web_service"`
	Backend      BackendConfig      `mapstructure:"backend"`
	Session      SessionConfig      `mapstructure:"session"`
	RedisService RedisServiceConfig `mapstructure:"redis_service"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Log          LogConfig          `mapstructure:"log"`
	Demo         DemoConfig         `mapstructure:"demo"`
	Upload       UploadConfig       `mapstructure:"upload"`
}

type WebServiceConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// SecureCookie marks the session cookie Secure; enable behind HTTPS.
	SecureCookie bool `mapstructure:"secure_cookie"`
}

type BackendConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type SessionConfig struct {
	// Store is one of memory, redis or sqlite.
	Store      string `mapstructure:"store"`
	SQLitePath string `mapstructure:"sqlite_path"`
	TTLHours   int    `mapstructure:"ttl_hours"`
}

type RedisServiceConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
}

type JWTConfig struct {
	SecretKey   string `mapstructure:"secret_key"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DemoConfig struct {
	UserID       string `mapstructure:"user_id"`
	LoginDelayMS int    `mapstructure:"login_delay_ms"`
}

type UploadConfig struct {
	MaxSizeMB         int      `mapstructure:"max_size_mb"`
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
}

// envFiles are loaded before the config file; .env.local is loaded last and wins.
var envFiles = []string{".env", ".env.local"}

// DefaultJWTSecret is the placeholder signing key used when none is configured.
const DefaultJWTSecret = "change-me"

// Load loads the configuration from the given YAML file. A missing file is not
// an error: the defaults below and the environment still apply.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// API_URL mirrors the front end's historical override variable.
	if err := v.BindEnv("backend.base_url", "API_URL", "BACKEND_BASE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind env: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	loaded := &Config{}
	if err := v.Unmarshal(loaded); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	loaded.Backend.BaseURL = strings.TrimRight(loaded.Backend.BaseURL, "/")

	return loaded, nil
}

func loadEnvFiles() {
	for i, name := range envFiles {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if i == 0 {
			_ = godotenv.Load(name)
		} else {
			_ = godotenv.Overload(name)
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("web_service.host", "0.0.0.0")
	v.SetDefault("web_service.port", 3000)
	v.SetDefault("web_service.secure_cookie", false)
	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.timeout_seconds", 300)
	v.SetDefault("session.store", "memory")
	v.SetDefault("session.sqlite_path", "./data/sessions.db")
	v.SetDefault("session.ttl_hours", 24)
	v.SetDefault("redis_service.host", "localhost")
	v.SetDefault("redis_service.port", 6379)
	v.SetDefault("redis_service.db", 0)
	v.SetDefault("jwt.secret_key", DefaultJWTSecret)
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("demo.user_id", "demo-user")
	v.SetDefault("demo.login_delay_ms", 1000)
	v.SetDefault("upload.max_size_mb", 100)
	v.SetDefault("upload.allowed_extensions", []string{".csv", ".json", ".txt"})
}

// GetWebServiceAddr returns the web service address
func (c *Config) GetWebServiceAddr() string {
	return fmt.Sprintf("%s:%d", c.WebService.Host, c.WebService.Port)
}

// GetRedisAddr returns the redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisService.Host, c.RedisService.Port)
}

// BackendTimeout returns the upper bound on a single backend call.
func (c *Config) BackendTimeout() time.Duration {
	if c.Backend.TimeoutSeconds <= 0 {
		return 300 * time.Second
	}
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// SessionTTL returns how long an idle session's page state is kept.
func (c *Config) SessionTTL() time.Duration {
	if c.Session.TTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Session.TTLHours) * time.Hour
}

// LoginDelay returns the simulated latency of the stub authenticator.
func (c *Config) LoginDelay() time.Duration {
	return time.Duration(c.Demo.LoginDelayMS) * time.Millisecond
}

// MaxUploadBytes returns the upload size cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Upload.MaxSizeMB) << 20
}
