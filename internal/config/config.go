package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Keys       APIKeys
	Ai         AIConfig
	Retrieval  RetrievalConfig
	Generation GenerationConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	QuestionAcceptedTopic string // pub/sub topic for accepted questions
	RerankerAPIKey        string
}

type AIConfig struct {
	OllamaBaseURL  string
	EmbeddingModel string
	DrafterModel   string
	ReviewerModel  string
	AlternateModel string
	ChairmanModel  string
	DefaultModel   string
	RerankerURL    string // empty disables reranking
	RerankerModel  string
}

// RetrievalConfig exposes the ranking pipeline tunables.
type RetrievalConfig struct {
	FusionAlpha      float64
	UsagePenaltyRate float64
	MMRLambdaFinal   float64
	MMRLambdaMid     float64
	RerankTopK       int
	NumResults       int
}

// GenerationConfig exposes the council loop and guard tunables.
type GenerationConfig struct {
	MaxAttempts        int
	LockTTL            time.Duration
	SessionThreshold   float64
	HistoryThreshold   float64
	GroundingThreshold float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			QuestionAcceptedTopic: getEnv("QUESTION_ACCEPTED_TOPIC_NAME", "QUESTION_ACCEPTED"),
			RerankerAPIKey:        getEnv("RERANKER_API_KEY", ""),
		},
		Ai: AIConfig{
			OllamaBaseURL:  getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			EmbeddingModel: getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			DrafterModel:   getEnv("AGENT_DRAFTER_MODEL", "qwen2.5:7b"),
			ReviewerModel:  getEnv("AGENT_REVIEWER_MODEL", "llama3.1:8b"),
			AlternateModel: getEnv("AGENT_ALTERNATE_MODEL", "qwen2.5:7b"),
			ChairmanModel:  getEnv("AGENT_CHAIRMAN_MODEL", "llama3.1:8b"),
			DefaultModel:   getEnv("LLM_MODEL", "llama3"),
			RerankerURL:    getEnv("RERANKER_URL", ""),
			RerankerModel:  getEnv("RERANKER_MODEL", "cross-encoder/ms-marco-MiniLM-L-6-v2"),
		},
		Retrieval: RetrievalConfig{
			FusionAlpha:      getEnvAsFloat("RETRIEVAL_FUSION_ALPHA", 0.6),
			UsagePenaltyRate: getEnvAsFloat("RETRIEVAL_USAGE_PENALTY_RATE", 0.15),
			MMRLambdaFinal:   getEnvAsFloat("RETRIEVAL_MMR_LAMBDA", 0.4),
			MMRLambdaMid:     getEnvAsFloat("RETRIEVAL_MMR_LAMBDA_MID", 0.7),
			RerankTopK:       getEnvAsInt("RETRIEVAL_RERANK_TOP_K", 50),
			NumResults:       getEnvAsInt("RETRIEVAL_NUM_RESULTS", 5),
		},
		Generation: GenerationConfig{
			MaxAttempts:        getEnvAsInt("GENERATION_MAX_ATTEMPTS", 3),
			LockTTL:            time.Duration(getEnvAsInt("GENERATION_LOCK_TTL_SECONDS", 600)) * time.Second,
			SessionThreshold:   getEnvAsFloat("NOVELTY_SESSION_THRESHOLD", 0.85),
			HistoryThreshold:   getEnvAsFloat("NOVELTY_HISTORY_THRESHOLD", 0.95),
			GroundingThreshold: getEnvAsFloat("GROUNDING_THRESHOLD", 0.45),
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

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
