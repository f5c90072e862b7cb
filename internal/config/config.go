package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Keys      APIKeys
	Ai        AIConfig
	Assistant AssistantConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	RagLogFilePath     string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	IndexingTopic      string // watermill topic for single-document indexing jobs
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	GoogleGemini string
	Jina         string
	HuggingFace  string
	JwtSecret    string
}

type AIConfig struct {
	EmbeddingProvider string // "ollama", "gemini" or "jina"
	EmbeddingModel    string
	OllamaBaseURL     string
	LLMProvider       string // "ollama", "huggingface" or "gemini"
	LLMModel          string // e.g. "llama3", "qwen2.5"
	HuggingFaceURL    string
	IntentClassifier  string // "keyword" or "llm"
}

type AssistantConfig struct {
	ChunkSize         int
	ChunkOverlap      int
	TopK              int
	MaxContextChars   int
	ProductLimit      int
	HistoryWindow     int
	ConversationTTL   time.Duration
	ReaperInterval    time.Duration
	ConversationStore string // "memory" or "redis"
	PersistIndex      bool
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
			RagLogFilePath:     getEnv("RAG_LOG_FILE_PATH", "logs/llm_rag.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			IndexingTopic:      getEnv("INDEX_DOCUMENT_TOPIC_NAME", "INDEX_DOCUMENT"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			Jina:         getEnv("JINA_API_KEY", ""),
			HuggingFace:  getEnv("HUGGINGFACE_API_KEY", ""),
			JwtSecret:    getEnv("JWT_SECRET", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", ""),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			HuggingFaceURL:    getEnv("HUGGINGFACE_BASE_URL", ""),
			IntentClassifier:  getEnv("INTENT_CLASSIFIER", "keyword"),
		},
		Assistant: AssistantConfig{
			ChunkSize:         getEnvAsInt("RAG_CHUNK_SIZE", 1200),
			ChunkOverlap:      getEnvAsInt("RAG_CHUNK_OVERLAP", 200),
			TopK:              getEnvAsInt("RAG_TOP_K", 5),
			MaxContextChars:   getEnvAsInt("RAG_MAX_CONTEXT_CHARS", 6000),
			ProductLimit:      getEnvAsInt("ASSISTANT_PRODUCT_LIMIT", 5),
			HistoryWindow:     getEnvAsInt("ASSISTANT_HISTORY_WINDOW", 10),
			ConversationTTL:   getEnvAsDuration("CONVERSATION_TTL", 30*time.Minute),
			ReaperInterval:    getEnvAsDuration("CONVERSATION_REAPER_INTERVAL", 5*time.Minute),
			ConversationStore: getEnv("CONVERSATION_STORE", "memory"),
			PersistIndex:      getEnvAsBool("RAG_PERSIST_INDEX", false),
		},
	}
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
