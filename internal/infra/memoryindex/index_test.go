package memoryindex

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/doc-chat/internal/core/vectorindex"
)

func newCollection(t *testing.T, index *Index, name string, dimension int) {
	t.Helper()
	require.NoError(t, index.CreateCollection(context.Background(), name, dimension, vectorindex.MetricCosine))
}

// TestCreateCollection はコレクション作成と重複エラーを確認します
func TestCreateCollection(t *testing.T) {
	index := New()
	newCollection(t, index, "docs", 3)

	err := index.CreateCollection(context.Background(), "docs", 3, vectorindex.MetricCosine)
	assert.ErrorIs(t, err, vectorindex.ErrCollectionExists)

	err = index.CreateCollection(context.Background(), "bad", 0, vectorindex.MetricCosine)
	assert.Error(t, err)
}

// TestDeleteCollection は削除と存在しないコレクションのエラーを確認します
func TestDeleteCollection(t *testing.T) {
	index := New()
	newCollection(t, index, "docs", 3)

	require.NoError(t, index.DeleteCollection(context.Background(), "docs"))

	err := index.DeleteCollection(context.Background(), "docs")
	assert.ErrorIs(t, err, vectorindex.ErrCollectionNotFound)
}

// TestListCollections は一覧が名前順で返ることを確認します
func TestListCollections(t *testing.T) {
	index := New()
	newCollection(t, index, "zebra", 3)
	newCollection(t, index, "alpha", 5)

	collections, err := index.ListCollections(context.Background())
	require.NoError(t, err)
	require.Len(t, collections, 2)
	assert.Equal(t, "alpha", collections[0].Name)
	assert.Equal(t, 5, collections[0].Dimension)
	assert.Equal(t, "zebra", collections[1].Name)
}

// TestUpsertValidation は未知のコレクションと次元不一致のエラーを確認します
func TestUpsertValidation(t *testing.T) {
	index := New()
	newCollection(t, index, "docs", 3)

	err := index.Upsert(context.Background(), "missing", []vectorindex.Entry{
		{ID: uuid.New(), Vector: []float32{1, 0, 0}},
	})
	assert.ErrorIs(t, err, vectorindex.ErrCollectionNotFound)

	err = index.Upsert(context.Background(), "docs", []vectorindex.Entry{
		{ID: uuid.New(), Vector: []float32{1, 0}},
	})
	assert.ErrorIs(t, err, vectorindex.ErrDimensionMismatch)
}

// TestUpsertReplacesSameID は同一IDの再投入が上書きになることを確認します
func TestUpsertReplacesSameID(t *testing.T) {
	index := New()
	newCollection(t, index, "docs", 2)

	id := uuid.New()
	require.NoError(t, index.Upsert(context.Background(), "docs", []vectorindex.Entry{
		{ID: id, Vector: []float32{1, 0}, Content: "old"},
	}))
	require.NoError(t, index.Upsert(context.Background(), "docs", []vectorindex.Entry{
		{ID: id, Vector: []float32{1, 0}, Content: "new"},
	}))

	assert.Equal(t, 1, index.Count("docs"))

	chunks, err := index.Search(context.Background(), "docs", []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "new", chunks[0].Content)
}

// TestSearchCosineOrdering はコサイン類似度の降順で結果が返ることを確認します
func TestSearchCosineOrdering(t *testing.T) {
	index := New()
	newCollection(t, index, "docs", 2)

	require.NoError(t, index.Upsert(context.Background(), "docs", []vectorindex.Entry{
		{ID: uuid.New(), Vector: []float32{0, 1}, Content: "orthogonal"},
		{ID: uuid.New(), Vector: []float32{1, 0}, Content: "identical"},
		{ID: uuid.New(), Vector: []float32{1, 1}, Content: "diagonal"},
	}))

	chunks, err := index.Search(context.Background(), "docs", []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, "identical", chunks[0].Content)
	assert.InDelta(t, 1.0, chunks[0].Score, 1e-9)
	assert.Equal(t, "diagonal", chunks[1].Content)
	assert.Equal(t, "orthogonal", chunks[2].Content)
	assert.InDelta(t, 0.0, chunks[2].Score, 1e-9)
}

// TestSearchTopKClamp はkがエントリ数を超えても全件で打ち切られることを確認します
func TestSearchTopKClamp(t *testing.T) {
	index := New()
	newCollection(t, index, "docs", 2)

	require.NoError(t, index.Upsert(context.Background(), "docs", []vectorindex.Entry{
		{ID: uuid.New(), Vector: []float32{1, 0}, Content: "a"},
		{ID: uuid.New(), Vector: []float32{0, 1}, Content: "b"},
	}))

	chunks, err := index.Search(context.Background(), "docs", []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, chunks, 2)

	chunks, err = index.Search(context.Background(), "docs", []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}

// TestSearchErrors は不正なkと未知のコレクションのエラーを確認します
func TestSearchErrors(t *testing.T) {
	index := New()
	newCollection(t, index, "docs", 2)

	_, err := index.Search(context.Background(), "docs", []float32{1, 0}, 0)
	assert.Error(t, err)

	_, err = index.Search(context.Background(), "missing", []float32{1, 0}, 1)
	assert.ErrorIs(t, err, vectorindex.ErrCollectionNotFound)
}
