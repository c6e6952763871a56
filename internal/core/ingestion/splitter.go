package ingestion

import (
	"fmt"
	"maps"
)

// separatorClasses は分割境界の優先順位
// 段落区切り > 改行 > 文末記号 > 空白 の順に探し、見つからなければ強制分割する
var separatorClasses = [][]rune{
	{'\n', '\n'}, // 段落区切り（連続改行）
	{'\n'},
	{'.'},
	{'!'},
	{'?'},
	{' '},
}

// Splitter はドキュメントを固定長以下のオーバーラップ付きチャンクへ分割する
type Splitter struct {
	maxSize int // チャンクの最大文字数
	overlap int // 隣接チャンクで共有する文字数
}

// NewSplitter は新しいSplitterを作成する
// 不変条件 0 <= overlap < maxSize を満たさない場合はエラーを返す
func NewSplitter(maxSize, overlap int) (*Splitter, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("max size must be positive, got %d", maxSize)
	}
	if overlap < 0 || overlap >= maxSize {
		return nil, fmt.Errorf("overlap %d must satisfy 0 <= overlap < max size %d", overlap, maxSize)
	}
	return &Splitter{maxSize: maxSize, overlap: overlap}, nil
}

// Split は複数ドキュメントを順にチャンク化する
func (s *Splitter) Split(docs []*Document) []*Chunk {
	var chunks []*Chunk
	for _, doc := range docs {
		chunks = append(chunks, s.SplitDocument(doc)...)
	}
	return chunks
}

// SplitDocument は1つのドキュメントをチャンク化する
//
// 各チャンクは前チャンクの開始から maxSize-overlap 文字後に始まる。
// これにより全文字が少なくとも1つのチャンクに含まれ、隣接チャンクは
// overlap 文字を共有する。チャンク末尾は maxSize 以内で最も優先度の
// 高い区切り文字の直後まで縮められる（ただし全文字カバーを崩さない
// 範囲に限る）。maxSize より短いドキュメントはそのまま1チャンクになる。
func (s *Splitter) SplitDocument(doc *Document) []*Chunk {
	runes := []rune(doc.Content)
	if len(runes) == 0 {
		return nil
	}

	stride := s.maxSize - s.overlap

	var chunks []*Chunk
	for start := 0; start < len(runes); start += stride {
		end := start + s.maxSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			// 区切り位置の探索はオーバーラップ領域内に限定する
			// （stride より手前で切ると次チャンクとの間に隙間ができる）
			end = s.cutPoint(runes, start, end, start+stride)
		}

		chunks = append(chunks, s.newChunk(doc, string(runes[start:end]), len(chunks)))

		if end == len(runes) {
			break
		}
	}

	return chunks
}

// cutPoint は [minEnd, maxEnd] の範囲で最適な分割位置を返す
func (s *Splitter) cutPoint(runes []rune, start, maxEnd, minEnd int) int {
	for _, sep := range separatorClasses {
		// 後方から探して区切り文字の直後で切る
		for i := maxEnd - len(sep); i >= start; i-- {
			if i+len(sep) < minEnd {
				break
			}
			if matchAt(runes, i, sep) {
				return i + len(sep)
			}
		}
	}
	// 区切りが見つからない場合は強制分割
	return maxEnd
}

func matchAt(runes []rune, pos int, sep []rune) bool {
	if pos < 0 || pos+len(sep) > len(runes) {
		return false
	}
	for i, r := range sep {
		if runes[pos+i] != r {
			return false
		}
	}
	return true
}

func (s *Splitter) newChunk(doc *Document, content string, index int) *Chunk {
	meta := make(map[string]any, len(doc.Metadata)+1)
	maps.Copy(meta, doc.Metadata)
	meta["chunk_index"] = index
	return &Chunk{
		Content:  content,
		Metadata: meta,
	}
}

// MaxSize はチャンクの最大文字数を返す
func (s *Splitter) MaxSize() int {
	return s.maxSize
}

// Overlap はオーバーラップ文字数を返す
func (s *Splitter) Overlap() int {
	return s.overlap
}
