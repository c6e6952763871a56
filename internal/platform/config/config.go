package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定（pgvectorバックエンド用）
	Database DatabaseConfig

	// OpenAI設定（Chat + Embeddings）
	OpenAI OpenAIConfig

	// チャンク分割設定
	Chunking ChunkingConfig

	// 検索設定
	Retrieval RetrievalConfig

	// 会話メモリ設定
	Memory MemoryConfig

	// エージェント用外部API設定
	Agent AgentConfig

	// ログ設定
	LogLevel  string
	LogFormat string
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// OpenAIConfig はOpenAI API設定
type OpenAIConfig struct {
	APIKey             string
	ChatModel          string
	EmbeddingModel     string
	EmbeddingDimension int
	Temperature        float64
}

// ChunkingConfig はチャンク分割のパラメータ
type ChunkingConfig struct {
	MaxSize int // 最大チャンクサイズ（文字数）
	Overlap int // 隣接チャンクのオーバーラップ（文字数）
}

// RetrievalConfig は類似検索のパラメータ
type RetrievalConfig struct {
	TopK int
}

// MemoryConfig は会話メモリのパラメータ
type MemoryConfig struct {
	// TokenBudget はプロンプトに載せる履歴のトークン上限（0で無制限）
	TokenBudget int
}

// AgentConfig はエージェントが使う外部APIの設定
type AgentConfig struct {
	TMDBAPIKey   string
	PlacesAPIKey string
	Region       string
	City         string
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "docchat"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "docchat"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			ChatModel:          getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			EmbeddingModel:     getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimension: getEnvAsInt("OPENAI_EMBEDDING_DIMENSION", 1536),
			Temperature:        getEnvAsFloat("OPENAI_TEMPERATURE", 0.2),
		},
		Chunking: ChunkingConfig{
			MaxSize: getEnvAsInt("CHUNK_MAX_SIZE", 1000),
			Overlap: getEnvAsInt("CHUNK_OVERLAP", 200),
		},
		Retrieval: RetrievalConfig{
			TopK: getEnvAsInt("RETRIEVAL_TOP_K", 4),
		},
		Memory: MemoryConfig{
			TokenBudget: getEnvAsInt("MEMORY_TOKEN_BUDGET", 0),
		},
		Agent: AgentConfig{
			TMDBAPIKey:   getEnv("TMDB_API_KEY", ""),
			PlacesAPIKey: getEnv("PLACES_API_KEY", ""),
			Region:       getEnv("TMDB_REGION", "IN"),
			City:         getEnv("AGENT_CITY", "Pune"),
		},
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg, nil
}

// Validate はチャンク設定の不変条件を検証します
func (c *Config) Validate() error {
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.MaxSize {
		return fmt.Errorf("invalid chunking config: overlap %d must satisfy 0 <= overlap < max size %d",
			c.Chunking.Overlap, c.Chunking.MaxSize)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("invalid retrieval config: top-k must be positive, got %d", c.Retrieval.TopK)
	}
	return nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat は環境変数を浮動小数点数として取得します
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
