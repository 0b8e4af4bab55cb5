package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName   string
	AppEnv    string
	AppPort   string
	LogLevel  string
	JWTSecret string
	TokenTTL  time.Duration

	DatabaseURL string
	RedisURL    string
	NATSURL     string

	ScoreFeedChannel string
	ScoreFeedSubject string
	RecordsCacheTTL  time.Duration

	StorageBackend         string
	UploadDir              string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string

	OpenAIAPIKey      string
	OpenAIBaseURL     string
	AIModel           string
	AIRequestTimeout  time.Duration
	EvaluationTimeout time.Duration
	WorkerQueueSize   int

	// PrototypeModules lists module IDs the built-in vision strategy is
	// registered for at startup.
	PrototypeModules []uint
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ARENA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Arena API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("token.ttl", "12h")
	v.SetDefault("score_feed.channel", "arena:score-feed")
	v.SetDefault("score_feed.subject", "arena.scores")
	v.SetDefault("records.cache_ttl", "1m")
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.upload_dir", "uploads")
	v.SetDefault("cloudinary.folder", "arena/attachments")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.request_timeout", "1m")
	v.SetDefault("evaluation.timeout", "10m")
	v.SetDefault("worker.queue_size", 64)

	tokenTTL, err := parseDuration(v, "token.ttl", "12h")
	if err != nil {
		return Config{}, fmt.Errorf("invalid token ttl: %w", err)
	}
	cacheTTL, err := parseDuration(v, "records.cache_ttl", "1m")
	if err != nil {
		return Config{}, fmt.Errorf("invalid records cache ttl: %w", err)
	}
	requestTimeout, err := parseDuration(v, "ai.request_timeout", "1m")
	if err != nil {
		return Config{}, fmt.Errorf("invalid ai request timeout: %w", err)
	}
	evaluationTimeout, err := parseDuration(v, "evaluation.timeout", "10m")
	if err != nil {
		return Config{}, fmt.Errorf("invalid evaluation timeout: %w", err)
	}

	prototypeModules, err := parseUintList(v.GetString("prototype.modules"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid prototype modules list: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		LogLevel:               v.GetString("log.level"),
		JWTSecret:              v.GetString("jwt.secret"),
		TokenTTL:               tokenTTL,
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		ScoreFeedChannel:       v.GetString("score_feed.channel"),
		ScoreFeedSubject:       v.GetString("score_feed.subject"),
		RecordsCacheTTL:        cacheTTL,
		StorageBackend:         strings.ToLower(v.GetString("storage.backend")),
		UploadDir:              v.GetString("storage.upload_dir"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		OpenAIAPIKey:           v.GetString("openai_api_key"),
		OpenAIBaseURL:          v.GetString("openai_base_url"),
		AIModel:                v.GetString("ai.model"),
		AIRequestTimeout:       requestTimeout,
		EvaluationTimeout:      evaluationTimeout,
		WorkerQueueSize:        v.GetInt("worker.queue_size"),
		PrototypeModules:       prototypeModules,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.WorkerQueueSize <= 0 {
		cfg.WorkerQueueSize = 64
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key, fallback string) (time.Duration, error) {
	value := v.GetString(key)
	if value == "" {
		value = fallback
	}
	return time.ParseDuration(value)
}

// parseUintList parses a comma-separated list of IDs, e.g. "3,7,12".
func parseUintList(input string) ([]uint, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}

	parts := strings.Split(input, ",")
	result := make([]uint, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		var parsed uint64
		if _, err := fmt.Sscanf(trimmed, "%d", &parsed); err != nil {
			return nil, fmt.Errorf("invalid id %q", trimmed)
		}
		result = append(result, uint(parsed))
	}

	return result, nil
}
