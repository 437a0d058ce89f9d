package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string
	DataDir  string
	DBPath   string
	WebDir   string

	LLMProvider string
	LLMModel    string
	LLMAPIKey   string

	ProfileAPIURL string
	ProfileAPIKey string

	EnrichBatchSize int
	MaxChatMessage  int
}

func Load() Config {
	_ = godotenv.Load()
	dataDir := getEnv("HIRELOOP_DATA_DIR", "data")
	return Config{
		HTTPAddr: getEnv("HIRELOOP_HTTP_ADDR", ":8080"),
		DataDir:  dataDir,
		DBPath:   getEnv("HIRELOOP_DB_PATH", filepath.Join(dataDir, "hireloop.db")),
		WebDir:   getEnv("HIRELOOP_WEB_DIR", "web"),

		LLMProvider: getEnv("HIRELOOP_LLM_PROVIDER", "openai-responses"),
		LLMModel:    getEnv("HIRELOOP_LLM_MODEL", ""),
		LLMAPIKey:   getEnv("HIRELOOP_LLM_API_KEY", ""),

		ProfileAPIURL: getEnv("HIRELOOP_PROFILE_API_URL", ""),
		ProfileAPIKey: getEnv("HIRELOOP_PROFILE_API_KEY", ""),

		EnrichBatchSize: getEnvInt("HIRELOOP_ENRICH_BATCH_SIZE", 10),
		MaxChatMessage:  getEnvInt("HIRELOOP_MAX_CHAT_MESSAGE", 4000),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
