package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/jinford/doc-chat/internal/core/vectorindex"
)

// ErrNoSource は取り込み元（パスまたはURL）が指定されていない場合のエラー
var ErrNoSource = errors.New("no document source: provide either a local path or a URL list")

// BuildParams はインデックス構築のパラメータを表す
type BuildParams struct {
	Collection string            // 構築先コレクション名
	Path       mo.Option[string] // ローカルディレクトリ
	URLs       []string          // 取得対象URL
}

// BuildResult はインデックス構築の結果を表す
type BuildResult struct {
	Documents int // 読み込んだドキュメント数
	Chunks    int // 生成したチャンク数
}

// SourceFactory はBuildParamsからSourceを組み立てる
// どちらの取り込み元も指定されていない場合は ErrNoSource を返すこと
type SourceFactory func(params BuildParams) (Source, error)

// Service はインデックス構築フェーズを統括する
// 同一Service上のビルドは直列化される（コレクションの削除と再投入は
// 呼び出し側から見てアトミックではないため）
type Service struct {
	sources  SourceFactory
	splitter *Splitter
	embedder Embedder
	index    vectorindex.Index
	logger   *slog.Logger

	mu sync.Mutex // ビルドフェーズの相互排他
}

// ServiceOption は Service のオプション設定
type ServiceOption func(*Service)

// WithLogger は Service にロガーを設定する
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService は新しいServiceを作成する
func NewService(sources SourceFactory, splitter *Splitter, embedder Embedder, index vectorindex.Index, opts ...ServiceOption) *Service {
	svc := &Service{
		sources:  sources,
		splitter: splitter,
		embedder: embedder,
		index:    index,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Build はドキュメントの読み込みからインデックス投入までを実行する
//
// 同名コレクションが既に存在する場合は先に削除する。古い世代のベクトルと
// 新しい世代を混在させないための不変条件（コレクション名ごとに高々1世代）。
func (s *Service) Build(ctx context.Context, params BuildParams) (*BuildResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if params.Collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}

	// 1. 取り込み元の組み立て（不備があればネットワーク呼び出し前に失敗させる）
	source, err := s.sources(params)
	if err != nil {
		return nil, err
	}

	// 2. ドキュメント読み込み
	docs, err := source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}
	s.logger.Info("documents loaded", "count", len(docs))

	// 3. チャンク分割
	chunks := s.splitter.Split(docs)
	s.logger.Info("chunks created", "count", len(chunks))

	// 4. 既存コレクションの削除（存在しない場合は何もしない）
	if err := s.dropIfExists(ctx, params.Collection); err != nil {
		return nil, err
	}

	// 5. コレクション作成
	if err := s.index.CreateCollection(ctx, params.Collection, s.embedder.Dimension(), vectorindex.MetricCosine); err != nil {
		return nil, fmt.Errorf("failed to create collection %q: %w", params.Collection, err)
	}

	// 6. バッチEmbedding + 投入
	if err := s.embedAndUpsert(ctx, params.Collection, chunks); err != nil {
		return nil, err
	}

	s.logger.Info("index built", "collection", params.Collection, "documents", len(docs), "chunks", len(chunks))

	return &BuildResult{
		Documents: len(docs),
		Chunks:    len(chunks),
	}, nil
}

func (s *Service) dropIfExists(ctx context.Context, name string) error {
	collections, err := s.index.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	for _, c := range collections {
		if c.Name == name {
			s.logger.Warn("collection already exists, deleting old data", "collection", name)
			if err := s.index.DeleteCollection(ctx, name); err != nil {
				return fmt.Errorf("failed to delete collection %q: %w", name, err)
			}
			return nil
		}
	}
	return nil
}

func (s *Service) embedAndUpsert(ctx context.Context, collection string, chunks []*Chunk) error {
	batchSize := s.embedder.MaxBatchSize()
	if batchSize <= 0 {
		batchSize = len(chunks)
	}

	for offset := 0; offset < len(chunks); offset += batchSize {
		end := offset + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[offset:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Content
		}

		vectors, err := s.embedder.BatchEmbed(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed chunk batch: %w", err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(batch))
		}

		entries := make([]vectorindex.Entry, len(batch))
		for i, chunk := range batch {
			entries[i] = vectorindex.Entry{
				ID:       uuid.New(),
				Vector:   vectors[i],
				Content:  chunk.Content,
				Metadata: chunk.Metadata,
			}
		}

		if err := s.index.Upsert(ctx, collection, entries); err != nil {
			return fmt.Errorf("failed to upsert entries: %w", err)
		}
	}

	return nil
}
