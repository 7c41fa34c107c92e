package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	Rules   RulesConfig
	LLM     LLMConfig
	Review  ReviewConfig
	Cache   CacheConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	Environment        string
	ReadTimeout        int
	WriteTimeout       int
	BodyLimit          int
	AllowedOrigins     string
	RateLimitPerMinute int
}

type RulesConfig struct {
	Path string
}

type LLMConfig struct {
	Provider         string
	BaseURL          string
	Model            string
	APIKey           string
	Temperature      float32
	TimeoutSec       int
	MaxAttempts      int
	MaxDocumentChars int
}

type ReviewConfig struct {
	Concurrency    int
	TimeoutSec     int
	MaxReportChars int
}

type CacheConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTLSec   int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("/etc/soc-review")

	viper.SetEnvPrefix("SOC_REVIEW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// The model backend keeps its historical env names as aliases.
	viper.BindEnv("llm.baseUrl", "SOC_REVIEW_LLM_BASEURL", "OLLAMA_API_URL")
	viper.BindEnv("llm.model", "SOC_REVIEW_LLM_MODEL", "OLLAMA_MODEL")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.environment", "development")
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 300)
	viper.SetDefault("server.bodyLimit", 16777216)
	viper.SetDefault("server.allowedOrigins", "*")
	viper.SetDefault("server.rateLimitPerMinute", 30)

	viper.SetDefault("rules.path", "./configs/soc_checklist.json")

	viper.SetDefault("llm.provider", "ollama")
	viper.SetDefault("llm.baseUrl", "http://localhost:11434")
	viper.SetDefault("llm.model", "llama3.2")
	viper.SetDefault("llm.apiKey", "")
	viper.SetDefault("llm.temperature", 0.1)
	viper.SetDefault("llm.timeoutSec", 30)
	viper.SetDefault("llm.maxAttempts", 2)
	viper.SetDefault("llm.maxDocumentChars", 10000)

	viper.SetDefault("review.concurrency", 1)
	viper.SetDefault("review.timeoutSec", 300)
	viper.SetDefault("review.maxReportChars", 1000000)

	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.host", "localhost")
	viper.SetDefault("cache.port", 6379)
	viper.SetDefault("cache.password", "")
	viper.SetDefault("cache.db", 0)
	viper.SetDefault("cache.ttlSec", 3600)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
