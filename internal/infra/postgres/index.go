package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/jinford/doc-chat/internal/core/vectorindex"
)

// schema はインデックスの保存先テーブル
// ベクトル次元はコレクションごとに異なるため、embedding列は次元指定なしで持つ
const schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS collections (
	name       text PRIMARY KEY,
	dimension  integer NOT NULL,
	metric     text NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS entries (
	id         uuid PRIMARY KEY,
	collection text NOT NULL REFERENCES collections(name) ON DELETE CASCADE,
	content    text NOT NULL,
	metadata   jsonb,
	embedding  vector NOT NULL
);

CREATE INDEX IF NOT EXISTS entries_collection_idx ON entries (collection);
`

// ConnectionParams はデータベース接続パラメータ
type ConnectionParams struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Index は pgvector を使用した vectorindex.Index 実装
type Index struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// IndexOption は Index のオプション設定
type IndexOption func(*Index)

// WithLogger は Index にロガーを設定する
func WithLogger(logger *slog.Logger) IndexOption {
	return func(i *Index) {
		i.logger = logger
	}
}

// Connect はデータベースへ接続し、スキーマを初期化してIndexを作成する
func Connect(ctx context.Context, params ConnectionParams, opts ...IndexOption) (*Index, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		params.Host,
		params.Port,
		params.User,
		params.Password,
		params.DBName,
		params.SSLMode,
	)

	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	idx := &Index{
		pool:   pool,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx, nil
}

// Close はデータベース接続を閉じる
func (i *Index) Close() {
	i.pool.Close()
}

// CreateCollection は新しいコレクションを登録する
func (i *Index) CreateCollection(ctx context.Context, name string, dimension int, metric vectorindex.Metric) error {
	if dimension <= 0 {
		return fmt.Errorf("dimension must be positive, got %d", dimension)
	}

	_, err := i.pool.Exec(ctx,
		`INSERT INTO collections (name, dimension, metric) VALUES ($1, $2, $3)`,
		name, dimension, string(metric),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return fmt.Errorf("%w: %s", vectorindex.ErrCollectionExists, name)
		}
		return fmt.Errorf("failed to create collection: %w", err)
	}

	i.logger.Info("collection created", "collection", name, "dimension", dimension)
	return nil
}

// DeleteCollection はコレクションと所属エントリをまとめて削除する
func (i *Index) DeleteCollection(ctx context.Context, name string) error {
	tag, err := i.pool.Exec(ctx, `DELETE FROM collections WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", vectorindex.ErrCollectionNotFound, name)
	}

	i.logger.Info("collection deleted", "collection", name)
	return nil
}

// ListCollections は登録済みコレクションの一覧を返す
func (i *Index) ListCollections(ctx context.Context) ([]vectorindex.Collection, error) {
	rows, err := i.pool.Query(ctx, `SELECT name, dimension, metric FROM collections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	var collections []vectorindex.Collection
	for rows.Next() {
		var c vectorindex.Collection
		var metric string
		if err := rows.Scan(&c.Name, &c.Dimension, &metric); err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		c.Metric = vectorindex.Metric(metric)
		collections = append(collections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate collections: %w", err)
	}
	return collections, nil
}

// Upsert はエントリをコレクションへ投入する
func (i *Index) Upsert(ctx context.Context, collection string, entries []vectorindex.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	dimension, err := i.collectionDimension(ctx, collection)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if len(entry.Vector) != dimension {
			return fmt.Errorf("%w: got %d, collection %q expects %d",
				vectorindex.ErrDimensionMismatch, len(entry.Vector), collection, dimension)
		}
	}

	batch := &pgx.Batch{}
	for _, entry := range entries {
		batch.Queue(
			`INSERT INTO entries (id, collection, content, metadata, embedding)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO UPDATE SET
			   content = EXCLUDED.content,
			   metadata = EXCLUDED.metadata,
			   embedding = EXCLUDED.embedding`,
			entry.ID, collection, entry.Content, entry.Metadata, pgvector.NewVector(entry.Vector),
		)
	}

	results := i.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range entries {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert entry: %w", err)
		}
	}

	return nil
}

// Search はコサイン類似度のtop-k検索を実行する（スコア降順）
func (i *Index) Search(ctx context.Context, collection string, vector []float32, k int) ([]vectorindex.ScoredChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	if _, err := i.collectionDimension(ctx, collection); err != nil {
		return nil, err
	}

	rows, err := i.pool.Query(ctx,
		`SELECT content, metadata, 1 - (embedding <=> $1) AS score
		 FROM entries
		 WHERE collection = $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		pgvector.NewVector(vector), collection, k,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer rows.Close()

	var chunks []vectorindex.ScoredChunk
	for rows.Next() {
		var chunk vectorindex.ScoredChunk
		if err := rows.Scan(&chunk.Content, &chunk.Metadata, &chunk.Score); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate search results: %w", err)
	}
	return chunks, nil
}

func (i *Index) collectionDimension(ctx context.Context, name string) (int, error) {
	var dimension int
	err := i.pool.QueryRow(ctx, `SELECT dimension FROM collections WHERE name = $1`, name).Scan(&dimension)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", vectorindex.ErrCollectionNotFound, name)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get collection: %w", err)
	}
	return dimension, nil
}

// インターフェース実装の確認
var _ vectorindex.Index = (*Index)(nil)
