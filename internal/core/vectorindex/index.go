package vectorindex

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Metric はベクトル間の距離指標
type Metric string

const (
	// MetricCosine はコサイン類似度
	MetricCosine Metric = "cosine"
)

var (
	// ErrCollectionNotFound は対象コレクションが存在しない場合のエラー
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrCollectionExists は同名コレクションが既に存在する場合のエラー
	ErrCollectionExists = errors.New("collection already exists")

	// ErrDimensionMismatch はベクトル次元がコレクション定義と一致しない場合のエラー
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Collection はインデックス内の独立した名前空間を表す
type Collection struct {
	Name      string
	Dimension int
	Metric    Metric
}

// Entry はインデックスへ投入する1件分のレコード
// ベクトルは投入後インデックス側の所有となり、以後変更されない
type Entry struct {
	ID       uuid.UUID
	Vector   []float32
	Content  string
	Metadata map[string]any
}

// ScoredChunk は類似検索の1件分の結果（スコア降順で返される）
type ScoredChunk struct {
	Content  string
	Metadata map[string]any
	Score    float64
}

// Index はベクトルインデックスサービスとの境界インターフェース
type Index interface {
	CreateCollection(ctx context.Context, name string, dimension int, metric Metric) error
	DeleteCollection(ctx context.Context, name string) error
	ListCollections(ctx context.Context) ([]Collection, error)
	Upsert(ctx context.Context, collection string, entries []Entry) error
	Search(ctx context.Context, collection string, vector []float32, k int) ([]ScoredChunk, error)
}
