package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Ai       AIConfig
	Chat     ChatConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	WsLogFilePath      string
	CorsAllowedOrigins string
	NatsURL            string // empty disables external events
	RedisURL           string // empty disables cross-instance websocket fan-out
	OtelEnabled        bool
}

type DatabaseConfig struct {
	Driver     string // "postgres" or "memory"
	Connection string
}

type AuthConfig struct {
	JwtSecret string
	JwtTTL    time.Duration
}

type AIConfig struct {
	Provider          string // "gemini", "ollama" or "huggingface"
	Model             string
	GoogleGemini      string
	OllamaBaseURL     string
	HuggingFaceKey    string
	HuggingFaceURL    string
	Timeout           time.Duration
	Temperature       float64
	MaxTokens         int
	HistoryLimit      int
	FailOnUnavailable bool
}

type ChatConfig struct {
	EventsTopic  string
	SendDedupTTL time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			WsLogFilePath:      getEnv("WS_LOG_FILE_PATH", "logs/websocket.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Auth: AuthConfig{
			JwtSecret: getEnv("JWT_SECRET", ""),
			JwtTTL:    getEnvAsDuration("JWT_TTL", 24*time.Hour),
		},
		Ai: AIConfig{
			Provider:          getEnv("LLM_PROVIDER", "gemini"),
			Model:             getEnv("LLM_MODEL", ""),
			GoogleGemini:      getEnv("GOOGLE_GEMINI_API_KEY", ""),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			HuggingFaceKey:    getEnv("HUGGINGFACE_API_KEY", ""),
			HuggingFaceURL:    getEnv("HUGGINGFACE_BASE_URL", ""),
			Timeout:           getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
			Temperature:       getEnvAsFloat("LLM_TEMPERATURE", 0.7),
			MaxTokens:         getEnvAsInt("LLM_MAX_TOKENS", 2048),
			HistoryLimit:      getEnvAsInt("AI_HISTORY_LIMIT", 10),
			FailOnUnavailable: getEnvAsBool("AI_FAIL_ON_UNAVAILABLE", false),
		},
		Chat: ChatConfig{
			EventsTopic:  getEnv("CHAT_EVENTS_TOPIC", "CHAT_EVENTS"),
			SendDedupTTL: getEnvAsDuration("SEND_DEDUP_TTL", 10*time.Minute),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
