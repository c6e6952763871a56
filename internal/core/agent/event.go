package agent

// Event はモデル・ツールとのやり取りを正規化したタグ付きバリアント
//
// 外部レスポンスは受信直後にこの形へ変換され、以降のループは
// 生のメッセージ形状（文字列/リスト混在、tool_callフィールドの有無）を
// 一切参照しない。
type Event interface {
	isEvent()
}

// TextEvent はモデルが生成した平文を表す
type TextEvent struct {
	Text string
}

// ToolCallEvent はモデルによるツール呼び出し要求を表す
// ArgsErr は引数JSONを解釈できなかった場合のエラーメッセージ（正常時は空）
type ToolCallEvent struct {
	ID      string
	Name    string
	Args    map[string]any
	ArgsErr string
}

// ToolResultEvent はツール実行結果を表す
type ToolResultEvent struct {
	ID      string
	Name    string
	Content string
}

func (TextEvent) isEvent()       {}
func (ToolCallEvent) isEvent()   {}
func (ToolResultEvent) isEvent() {}
