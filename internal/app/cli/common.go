package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/doc-chat/internal/core/chat"
	"github.com/jinford/doc-chat/internal/core/ingestion"
	"github.com/jinford/doc-chat/internal/core/retrieval"
	"github.com/jinford/doc-chat/internal/core/vectorindex"
	"github.com/jinford/doc-chat/internal/infra/openai"
	"github.com/jinford/doc-chat/internal/infra/postgres"
	"github.com/jinford/doc-chat/internal/infra/source"
	"github.com/jinford/doc-chat/internal/platform/config"
	"github.com/jinford/doc-chat/internal/platform/logger"
)

// AppContext はコマンド実行に必要な共通コンテキストを保持する
type AppContext struct {
	Config   *config.Config
	Logger   *slog.Logger
	Embedder *openai.Embedder
	LLM      *openai.Client

	index *postgres.Index
}

// NewAppContext は設定を読み込み、OpenAIクライアントを初期化する
// ベクトルインデックスへの接続は必要になった時点で行う
func NewAppContext(envFile string) (*AppContext, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	appLogger := logger.New(logger.Config{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
	})

	llm, err := openai.NewClientWithAPIKey(cfg.OpenAI.APIKey, cfg.OpenAI.ChatModel)
	if err != nil {
		return nil, err
	}

	embedder := openai.NewEmbedder(cfg.OpenAI.APIKey,
		openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
		openai.WithEmbeddingDimension(cfg.OpenAI.EmbeddingDimension),
	)

	return &AppContext{
		Config:   cfg,
		Logger:   appLogger,
		Embedder: embedder,
		LLM:      llm,
	}, nil
}

// Index はベクトルインデックスへの接続を返す（初回呼び出しで接続する）
func (ac *AppContext) Index(ctx context.Context) (vectorindex.Index, error) {
	if ac.index != nil {
		return ac.index, nil
	}

	db := ac.Config.Database
	idx, err := postgres.Connect(ctx, postgres.ConnectionParams{
		Host:     db.Host,
		Port:     db.Port,
		User:     db.User,
		Password: db.Password,
		DBName:   db.DBName,
		SSLMode:  db.SSLMode,
	}, postgres.WithLogger(ac.Logger))
	if err != nil {
		return nil, fmt.Errorf("ベクトルインデックスへの接続に失敗: %w", err)
	}

	ac.index = idx
	return idx, nil
}

// Close はAppContextが保持するリソースをクリーンアップする
func (ac *AppContext) Close() {
	if ac.index != nil {
		ac.index.Close()
	}
}

// newIngestionService はビルドフェーズ一式を組み立てる
func (ac *AppContext) newIngestionService(ctx context.Context) (*ingestion.Service, error) {
	idx, err := ac.Index(ctx)
	if err != nil {
		return nil, err
	}

	splitter, err := ingestion.NewSplitter(ac.Config.Chunking.MaxSize, ac.Config.Chunking.Overlap)
	if err != nil {
		return nil, err
	}

	return ingestion.NewService(
		source.Factory(ac.Logger),
		splitter,
		ac.Embedder,
		idx,
		ingestion.WithLogger(ac.Logger),
	), nil
}

// newSession は指定コレクションに対する質問応答セッションを組み立てる
func (ac *AppContext) newSession(ctx context.Context, collection string, builder chat.Builder) (*chat.Session, error) {
	idx, err := ac.Index(ctx)
	if err != nil {
		return nil, err
	}

	retriever := retrieval.NewRetriever(ac.Embedder, idx, collection,
		retrieval.WithTopK(ac.Config.Retrieval.TopK),
		retrieval.WithLogger(ac.Logger),
	)

	opts := []chat.SessionOption{
		chat.WithSessionLogger(ac.Logger),
	}
	if budget := ac.Config.Memory.TokenBudget; budget > 0 {
		window, err := chat.NewHistoryWindow(budget)
		if err != nil {
			return nil, err
		}
		opts = append(opts, chat.WithHistoryWindow(window))
	}

	return chat.NewSession(builder, retriever, ac.LLM,
		ac.Config.OpenAI.ChatModel, ac.Config.OpenAI.Temperature, opts...), nil
}
