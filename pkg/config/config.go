package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all configuration for the service.
// It is built once at startup and never modified afterwards.
type Config struct {
	Server    ServerConfig
	Mongo     MongoConfig
	Translate TranslateConfig
	Auth      AuthConfig
	LogLevel  string
}

// ServerConfig holds HTTP and gRPC listener configuration.
type ServerConfig struct {
	Port           int
	GRPCPort       int
	MaxUploadBytes int64
	JobRetention   time.Duration
	JobTimeout     time.Duration
	MaxActiveJobs  int
	MaxStoredJobs  int
	HealthInterval time.Duration
}

// MongoConfig holds the document database connection.
type MongoConfig struct {
	URI      string
	Database string
}

// TranslateConfig holds translation provider configuration.
type TranslateConfig struct {
	Engine         string
	URL            string
	SourceLanguage string
	Segmenter      string
	Timeout        time.Duration

	RateLimit float64
	Burst     int

	BreakerFailures uint32
	BreakerCooldown time.Duration

	Reverie        ReverieConfig
	LibreTranslate LibreTranslateConfig
}

// ReverieConfig holds the three credential headers and the fixed request flags.
type ReverieConfig struct {
	APIKey  string
	AppID   string
	AppName string

	Mask          bool
	MaskTerms     map[string]string
	FilterProfane bool
	Domain        int
	Logging       bool
}

// LibreTranslateConfig holds LibreTranslate settings.
type LibreTranslateConfig struct {
	APIKey string
}

// AuthConfig holds the auth route module settings.
type AuthConfig struct {
	Token string
}

// RegisterFlags adds the command-line overrides to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.Int("port", 5000, "HTTP server port")
	fs.Int("grpc-port", 50051, "gRPC health server port (0 disables)")
	fs.String("log-level", "info", "Log level: debug, info, warn, error")
	fs.String("mt-engine", "reverie", "Translation engine: reverie or libretranslate")
	fs.String("mt-url", "", "Base URL for translation engine API")
	fs.String("segmenter", "delimiter", "Segmentation strategy: delimiter or sentence")
}

// flagKeys maps flag names onto configuration keys.
var flagKeys = map[string]string{
	"port":      "port",
	"grpc-port": "grpc_port",
	"log-level": "log_level",
	"mt-engine": "mt_engine",
	"mt-url":    "mt_url",
	"segmenter": "segmenter",
}

// Load reads .env (if present), the environment and flags, in increasing priority.
// fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("port", 5000)
	v.SetDefault("grpc_port", 50051)
	v.SetDefault("log_level", "info")
	v.SetDefault("max_upload_bytes", 10<<20)
	v.SetDefault("job_retention", "1h")
	v.SetDefault("job_timeout", "5m")
	v.SetDefault("max_active_jobs", 16)
	v.SetDefault("max_stored_jobs", 1000)
	v.SetDefault("health_interval", "15s")
	v.SetDefault("mongo_uri", "")
	v.SetDefault("mongo_database", "vaani")
	v.SetDefault("mt_engine", "reverie")
	v.SetDefault("mt_url", "")
	v.SetDefault("source_language", "en")
	v.SetDefault("segmenter", "delimiter")
	v.SetDefault("translate_timeout", "30s")
	v.SetDefault("translate_rate_limit", 0)
	v.SetDefault("translate_burst", 1)
	v.SetDefault("breaker_failures", 5)
	v.SetDefault("breaker_cooldown", "30s")
	v.SetDefault("mt_mask", true)
	v.SetDefault("mt_mask_terms", "working=asasas,Ashutosh=Akash")
	v.SetDefault("mt_filter_profane", true)
	v.SetDefault("mt_domain", 1)
	v.SetDefault("mt_logging", true)

	if fs != nil {
		for flag, key := range flagKeys {
			if f := fs.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", flag, err)
				}
			}
		}
	}

	maskTerms, err := parseMaskTerms(v.GetString("mt_mask_terms"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetInt("port"),
			GRPCPort:       v.GetInt("grpc_port"),
			MaxUploadBytes: v.GetInt64("max_upload_bytes"),
			JobRetention:   v.GetDuration("job_retention"),
			JobTimeout:     v.GetDuration("job_timeout"),
			MaxActiveJobs:  v.GetInt("max_active_jobs"),
			MaxStoredJobs:  v.GetInt("max_stored_jobs"),
			HealthInterval: v.GetDuration("health_interval"),
		},
		Mongo: MongoConfig{
			URI:      v.GetString("mongo_uri"),
			Database: v.GetString("mongo_database"),
		},
		Translate: TranslateConfig{
			Engine:          v.GetString("mt_engine"),
			URL:             v.GetString("mt_url"),
			SourceLanguage:  v.GetString("source_language"),
			Segmenter:       v.GetString("segmenter"),
			Timeout:         v.GetDuration("translate_timeout"),
			RateLimit:       v.GetFloat64("translate_rate_limit"),
			Burst:           v.GetInt("translate_burst"),
			BreakerFailures: v.GetUint32("breaker_failures"),
			BreakerCooldown: v.GetDuration("breaker_cooldown"),
			Reverie: ReverieConfig{
				APIKey:        v.GetString("rev_api_key"),
				AppID:         v.GetString("rev_app_id"),
				AppName:       v.GetString("rev_appname"),
				Mask:          v.GetBool("mt_mask"),
				MaskTerms:     maskTerms,
				FilterProfane: v.GetBool("mt_filter_profane"),
				Domain:        v.GetInt("mt_domain"),
				Logging:       v.GetBool("mt_logging"),
			},
			LibreTranslate: LibreTranslateConfig{
				APIKey: v.GetString("libretranslate_api_key"),
			},
		},
		Auth: AuthConfig{
			Token: v.GetString("auth_token"),
		},
		LogLevel: v.GetString("log_level"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validate validates the configuration.
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("GRPC_PORT must be between 0 and 65535, got %d", c.Server.GRPCPort)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.Server.JobRetention <= 0 {
		return fmt.Errorf("JOB_RETENTION must be positive")
	}
	if c.Server.JobTimeout <= 0 {
		return fmt.Errorf("JOB_TIMEOUT must be positive")
	}
	if c.Server.MaxActiveJobs <= 0 {
		return fmt.Errorf("MAX_ACTIVE_JOBS must be positive")
	}
	if c.Server.MaxStoredJobs < c.Server.MaxActiveJobs {
		return fmt.Errorf("MAX_STORED_JOBS must be at least MAX_ACTIVE_JOBS (%d), got %d", c.Server.MaxActiveJobs, c.Server.MaxStoredJobs)
	}
	if c.Server.HealthInterval <= 0 {
		return fmt.Errorf("HEALTH_INTERVAL must be positive")
	}
	if c.Translate.Timeout <= 0 {
		return fmt.Errorf("TRANSLATE_TIMEOUT must be positive")
	}
	if c.Translate.RateLimit < 0 {
		return fmt.Errorf("TRANSLATE_RATE_LIMIT must not be negative")
	}
	if c.Translate.SourceLanguage == "" {
		return fmt.Errorf("SOURCE_LANGUAGE is required")
	}
	return nil
}

// HasReverieCredentials reports whether all three credential values are set.
func (c ReverieConfig) HasReverieCredentials() bool {
	return c.APIKey != "" && c.AppID != "" && c.AppName != ""
}

// parseMaskTerms reads "term=replacement,term=replacement".
func parseMaskTerms(s string) (map[string]string, error) {
	terms := make(map[string]string)

	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		term, replacement, ok := strings.Cut(pair, "=")
		term = strings.TrimSpace(term)
		if !ok || term == "" {
			return nil, fmt.Errorf("invalid MT_MASK_TERMS entry %q (want term=replacement)", pair)
		}

		terms[term] = strings.TrimSpace(replacement)
	}

	return terms, nil
}
