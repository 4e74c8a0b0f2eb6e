package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Media     MediaConfig
	Meta      MetaConfig
	Geo       GeoConfig
	Delivery  DeliveryConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// MediaConfig selects where uploaded files land. Backend is "local" or "s3".
type MediaConfig struct {
	Backend     string
	Root        string
	URLPrefix   string
	MaxUploadMB int64
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PublicURL string
	S3AccessKey string
	S3SecretKey string
}

type MetaConfig struct {
	APIURL      string
	PixelID     string
	AccessToken string
	Currency    string
	Timeout     time.Duration
}

type GeoConfig struct {
	BaseURL string
	Timeout time.Duration
}

type DeliveryConfig struct {
	APIURL  string
	Token   string
	Timeout time.Duration
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type CacheConfig struct {
	TTL time.Duration
}

// IsProduction reports whether the server runs with production settings
func (c ServerConfig) IsProduction() bool {
	return c.Env == "production"
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8000")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_ENABLED", false)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("MEDIA_BACKEND", "local")
	viper.SetDefault("MEDIA_ROOT", "uploads/media")
	viper.SetDefault("MEDIA_URL_PREFIX", "/uploads/media")
	viper.SetDefault("MEDIA_MAX_UPLOAD_MB", 200)
	viper.SetDefault("S3_REGION", "eu-west-3")
	viper.SetDefault("META_API_URL", "https://graph.facebook.com/v19.0")
	viper.SetDefault("META_CURRENCY", "TND")
	viper.SetDefault("META_TIMEOUT", "10s")
	viper.SetDefault("GEO_BASE_URL", "http://ip-api.com/json")
	viper.SetDefault("GEO_TIMEOUT", "2s")
	viper.SetDefault("DELIVERY_API_URL", "https://www.firstdeliverygroup.com/api/v2/bulk-create")
	viper.SetDefault("DELIVERY_TIMEOUT", "15s")
	viper.SetDefault("RATE_LIMIT_REQUESTS", 60)
	viper.SetDefault("RATE_LIMIT_WINDOW", "1m")
	viper.SetDefault("CACHE_TTL", "5m")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Env:            viper.GetString("SERVER_ENV"),
			AllowedOrigins: splitList(viper.GetString("ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("REDIS_ENABLED"),
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Media: MediaConfig{
			Backend:     viper.GetString("MEDIA_BACKEND"),
			Root:        viper.GetString("MEDIA_ROOT"),
			URLPrefix:   viper.GetString("MEDIA_URL_PREFIX"),
			MaxUploadMB: viper.GetInt64("MEDIA_MAX_UPLOAD_MB"),
			S3Bucket:    viper.GetString("S3_BUCKET"),
			S3Region:    viper.GetString("S3_REGION"),
			S3Endpoint:  viper.GetString("S3_ENDPOINT"),
			S3PublicURL: viper.GetString("S3_PUBLIC_URL"),
			S3AccessKey: viper.GetString("S3_ACCESS_KEY_ID"),
			S3SecretKey: viper.GetString("S3_SECRET_ACCESS_KEY"),
		},
		Meta: MetaConfig{
			APIURL:      viper.GetString("META_API_URL"),
			PixelID:     viper.GetString("META_PIXEL_ID"),
			AccessToken: viper.GetString("META_ACCESS_TOKEN"),
			Currency:    viper.GetString("META_CURRENCY"),
			Timeout:     viper.GetDuration("META_TIMEOUT"),
		},
		Geo: GeoConfig{
			BaseURL: viper.GetString("GEO_BASE_URL"),
			Timeout: viper.GetDuration("GEO_TIMEOUT"),
		},
		Delivery: DeliveryConfig{
			APIURL:  viper.GetString("DELIVERY_API_URL"),
			Token:   viper.GetString("DELIVERY_TOKEN"),
			Timeout: viper.GetDuration("DELIVERY_TIMEOUT"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   viper.GetDuration("RATE_LIMIT_WINDOW"),
		},
		Cache: CacheConfig{
			TTL: viper.GetDuration("CACHE_TTL"),
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
