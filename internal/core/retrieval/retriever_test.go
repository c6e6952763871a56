package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/doc-chat/internal/core/vectorindex"
)

// stubEmbedder は固定ベクトルを返すEmbedder
type stubEmbedder struct {
	vector []float32
	err    error
}

func (e *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return e.vector, e.err
}

// stubIndex は検索呼び出しを記録するvectorindex.Index
type stubIndex struct {
	vectorindex.Index

	chunks     []vectorindex.ScoredChunk
	err        error
	collection string
	k          int
}

func (i *stubIndex) Search(_ context.Context, collection string, _ []float32, k int) ([]vectorindex.ScoredChunk, error) {
	i.collection = collection
	i.k = k
	return i.chunks, i.err
}

// TestRetrieveReturnsScoredChunks は検索結果がそのまま返ることを確認します
func TestRetrieveReturnsScoredChunks(t *testing.T) {
	index := &stubIndex{
		chunks: []vectorindex.ScoredChunk{
			{Content: "first", Score: 0.9},
			{Content: "second", Score: 0.7},
		},
	}
	retriever := NewRetriever(&stubEmbedder{vector: []float32{1, 0}}, index, "docs")

	chunks, err := retriever.Retrieve(context.Background(), "question")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "first", chunks[0].Content)

	assert.Equal(t, "docs", index.collection)
	assert.Equal(t, DefaultTopK, index.k)
}

// TestRetrieveTopKOption はWithTopKが検索件数に反映されることを確認します
func TestRetrieveTopKOption(t *testing.T) {
	index := &stubIndex{}
	retriever := NewRetriever(&stubEmbedder{vector: []float32{1}}, index, "docs", WithTopK(7))

	_, err := retriever.Retrieve(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, 7, index.k)

	// 不正な値は無視してデフォルトを維持する
	fallback := NewRetriever(&stubEmbedder{vector: []float32{1}}, index, "docs", WithTopK(0))
	_, err = fallback.Retrieve(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, index.k)
}

// TestRetrieveEmbedFailure はベクトル化の失敗が検索前にエラーとして返ることを確認します
func TestRetrieveEmbedFailure(t *testing.T) {
	embedErr := errors.New("embedding api down")
	index := &stubIndex{}
	retriever := NewRetriever(&stubEmbedder{err: embedErr}, index, "docs")

	_, err := retriever.Retrieve(context.Background(), "question")
	require.ErrorIs(t, err, embedErr)
	assert.Empty(t, index.collection)
}

// TestRetrieveSearchFailureWrapped はインデックス到達不能が
// ErrRetrievalUnavailableとして返ることを確認します（空の結果では返さない）
func TestRetrieveSearchFailureWrapped(t *testing.T) {
	index := &stubIndex{err: errors.New("connection refused")}
	retriever := NewRetriever(&stubEmbedder{vector: []float32{1}}, index, "docs")

	chunks, err := retriever.Retrieve(context.Background(), "question")
	require.ErrorIs(t, err, ErrRetrievalUnavailable)
	assert.Nil(t, chunks)
}
