package ingestion

import "context"

// Document は取り込んだ1件分の原文を表す
// 読み込み時に作成され、以降は変更されない
type Document struct {
	Content  string
	Metadata map[string]any
}

// Chunk はドキュメントから切り出した固定長以下のテキスト断片
// メタデータはドキュメントのものを引き継ぎ、チャンク固有の情報を追加する
type Chunk struct {
	Content  string
	Metadata map[string]any
}

// Source はドキュメントの取得元（ローカルディレクトリ、URLリストなど）
// 個々のドキュメントの読み込み失敗はスキップして処理を継続すること
type Source interface {
	Load(ctx context.Context) ([]*Document, error)
}

// Embedder はテキストをベクトルに変換する
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	MaxBatchSize() int
}
