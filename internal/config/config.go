package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Auth       AuthConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig
	Pipeline   PipelineConfig
	Perplexity PerplexityConfig
	Gemini     GeminiConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type AuthConfig struct {
	Username   string
	Password   string
	JWTSecret  string
	Expiration int // hours
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	StartPerHour  int
	CancelPerMin  int
	SummaryPerMin int
}

type PipelineConfig struct {
	OutputDir string
}

type PerplexityConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type GeminiConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "3000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("auth.username", "admin")
	viper.SetDefault("auth.password", "admin")
	viper.SetDefault("auth.jwt_secret", "change-me-in-production")
	viper.SetDefault("auth.expiration", 24)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("ratelimit.start_per_hour", 10)
	viper.SetDefault("ratelimit.cancel_per_min", 30)
	viper.SetDefault("ratelimit.summary_per_min", 120)
	viper.SetDefault("pipeline.output_dir", "output")
	viper.SetDefault("perplexity.api_key", "")
	viper.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	viper.SetDefault("perplexity.model", "sonar")
	viper.SetDefault("gemini.api_key", "")
	viper.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	viper.SetDefault("gemini.model", "gemini-2.0-flash")

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		Auth: AuthConfig{
			Username:   viper.GetString("auth.username"),
			Password:   viper.GetString("auth.password"),
			JWTSecret:  viper.GetString("auth.jwt_secret"),
			Expiration: viper.GetInt("auth.expiration"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		RateLimit: RateLimitConfig{
			StartPerHour:  viper.GetInt("ratelimit.start_per_hour"),
			CancelPerMin:  viper.GetInt("ratelimit.cancel_per_min"),
			SummaryPerMin: viper.GetInt("ratelimit.summary_per_min"),
		},
		Pipeline: PipelineConfig{
			OutputDir: viper.GetString("pipeline.output_dir"),
		},
		Perplexity: PerplexityConfig{
			APIKey:  viper.GetString("perplexity.api_key"),
			BaseURL: viper.GetString("perplexity.base_url"),
			Model:   viper.GetString("perplexity.model"),
		},
		Gemini: GeminiConfig{
			APIKey:  viper.GetString("gemini.api_key"),
			BaseURL: viper.GetString("gemini.base_url"),
			Model:   viper.GetString("gemini.model"),
		},
	}

	return cfg, nil
}
