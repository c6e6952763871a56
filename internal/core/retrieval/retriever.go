package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jinford/doc-chat/internal/core/vectorindex"
)

// DefaultTopK は検索件数のデフォルト値
const DefaultTopK = 4

// ErrRetrievalUnavailable はインデックスサービスに到達できない場合のエラー
// 空のコンテキストを返してはならない（根拠なしの生成を防ぐ）
var ErrRetrievalUnavailable = errors.New("retrieval unavailable")

// Embedder は質問文をベクトル化する
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever はベクトルインデックスを固定の検索ポリシー（top-k類似検索）で包む
type Retriever struct {
	embedder   Embedder
	index      vectorindex.Index
	collection string
	topK       int
	logger     *slog.Logger
}

// RetrieverOption は Retriever のオプション設定
type RetrieverOption func(*Retriever)

// WithTopK は検索件数を上書きする
func WithTopK(k int) RetrieverOption {
	return func(r *Retriever) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithLogger は Retriever にロガーを設定する
func WithLogger(logger *slog.Logger) RetrieverOption {
	return func(r *Retriever) {
		r.logger = logger
	}
}

// NewRetriever は新しいRetrieverを作成する
func NewRetriever(embedder Embedder, index vectorindex.Index, collection string, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		embedder:   embedder,
		index:      index,
		collection: collection,
		topK:       DefaultTopK,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve は質問文に類似するチャンクをスコア降順で返す
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]vectorindex.ScoredChunk, error) {
	vector, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	chunks, err := r.index.Search(ctx, r.collection, vector, r.topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalUnavailable, err)
	}

	r.logger.Debug("retrieved chunks", "collection", r.collection, "count", len(chunks))
	return chunks, nil
}
