package memoryindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/jinford/doc-chat/internal/core/vectorindex"
)

// Index はプロセス内に閉じた vectorindex.Index 実装
// ローカル動作とテストで使用し、永続化はしない
type Index struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	meta    vectorindex.Collection
	entries []vectorindex.Entry
}

// New は空のIndexを作成する
func New() *Index {
	return &Index{
		collections: make(map[string]*collection),
	}
}

// CreateCollection は新しいコレクションを登録する
func (i *Index) CreateCollection(_ context.Context, name string, dimension int, metric vectorindex.Metric) error {
	if dimension <= 0 {
		return fmt.Errorf("dimension must be positive, got %d", dimension)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if _, ok := i.collections[name]; ok {
		return fmt.Errorf("%w: %s", vectorindex.ErrCollectionExists, name)
	}
	i.collections[name] = &collection{
		meta: vectorindex.Collection{
			Name:      name,
			Dimension: dimension,
			Metric:    metric,
		},
	}
	return nil
}

// DeleteCollection はコレクションと所属エントリを削除する
func (i *Index) DeleteCollection(_ context.Context, name string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, ok := i.collections[name]; !ok {
		return fmt.Errorf("%w: %s", vectorindex.ErrCollectionNotFound, name)
	}
	delete(i.collections, name)
	return nil
}

// ListCollections は登録済みコレクションの一覧を返す
func (i *Index) ListCollections(_ context.Context) ([]vectorindex.Collection, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	collections := make([]vectorindex.Collection, 0, len(i.collections))
	for _, c := range i.collections {
		collections = append(collections, c.meta)
	}
	sort.Slice(collections, func(a, b int) bool {
		return collections[a].Name < collections[b].Name
	})
	return collections, nil
}

// Upsert はエントリをコレクションへ投入する（同一IDは上書き）
func (i *Index) Upsert(_ context.Context, name string, entries []vectorindex.Entry) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	c, ok := i.collections[name]
	if !ok {
		return fmt.Errorf("%w: %s", vectorindex.ErrCollectionNotFound, name)
	}

	for _, entry := range entries {
		if len(entry.Vector) != c.meta.Dimension {
			return fmt.Errorf("%w: got %d, collection %q expects %d",
				vectorindex.ErrDimensionMismatch, len(entry.Vector), name, c.meta.Dimension)
		}

		replaced := false
		for j := range c.entries {
			if c.entries[j].ID == entry.ID {
				c.entries[j] = entry
				replaced = true
				break
			}
		}
		if !replaced {
			c.entries = append(c.entries, entry)
		}
	}
	return nil
}

// Search はコサイン類似度のtop-k検索を実行する（スコア降順）
func (i *Index) Search(_ context.Context, name string, vector []float32, k int) ([]vectorindex.ScoredChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	c, ok := i.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", vectorindex.ErrCollectionNotFound, name)
	}

	chunks := make([]vectorindex.ScoredChunk, 0, len(c.entries))
	for _, entry := range c.entries {
		chunks = append(chunks, vectorindex.ScoredChunk{
			Content:  entry.Content,
			Metadata: entry.Metadata,
			Score:    cosine(vector, entry.Vector),
		})
	}

	sort.SliceStable(chunks, func(a, b int) bool {
		return chunks[a].Score > chunks[b].Score
	})

	if k < len(chunks) {
		chunks = chunks[:k]
	}
	return chunks, nil
}

// Count は対象コレクションのエントリ数を返す
func (i *Index) Count(name string) int {
	i.mu.RLock()
	defer i.mu.RUnlock()

	c, ok := i.collections[name]
	if !ok {
		return 0
	}
	return len(c.entries)
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// インターフェース実装の確認
var _ vectorindex.Index = (*Index)(nil)
