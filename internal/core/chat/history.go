package chat

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// HistoryWindow は会話履歴をトークン予算内に収めるための窓
// ログ自体は追記専用のまま、プロンプトに載せる範囲だけを絞る
type HistoryWindow struct {
	encoder *tiktoken.Tiktoken
	budget  int // 0で無制限
}

// NewHistoryWindow は新しいHistoryWindowを作成する
// cl100k_baseエンコーダを使用（text-embedding-3-small / gpt-4o系と互換）
func NewHistoryWindow(tokenBudget int) (*HistoryWindow, error) {
	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoder: %w", err)
	}
	return &HistoryWindow{
		encoder: encoder,
		budget:  tokenBudget,
	}, nil
}

// Apply は予算内に収まる直近のターン対のみを返す
//
// 対（質問+回答）単位で末尾から採用し、途中で切れた対は含めない。
// 予算が0の場合は全ターンをそのまま返す。
func (w *HistoryWindow) Apply(turns []Turn) []Turn {
	if w.budget <= 0 || len(turns) == 0 {
		return turns
	}

	total := 0
	start := len(turns)

	// 末尾から対単位で遡る（先頭に不完全な対が残っている場合も対として扱う）
	for i := len(turns); i > 0; i -= 2 {
		lo := i - 2
		if lo < 0 {
			lo = 0
		}

		pairTokens := 0
		for _, turn := range turns[lo:i] {
			pairTokens += len(w.encoder.Encode(turn.Content, nil, nil))
		}

		if total+pairTokens > w.budget {
			break
		}
		total += pairTokens
		start = lo
	}

	return turns[start:]
}
