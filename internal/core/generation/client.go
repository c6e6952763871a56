package generation

import (
	"context"
	"errors"
)

// ErrGenerationFailed はLLM呼び出しの失敗を表す
// レート制限・認証失敗・不正リクエストはすべてこのエラーにラップして返す
var ErrGenerationFailed = errors.New("generation failed")

// CompletionRequest はテキスト生成のリクエスト
type CompletionRequest struct {
	Model       string
	Prompt      string
	Temperature float64
}

// Client はホストされたLLMとの境界インターフェース
type Client interface {
	// Complete はプロンプトに対する生成テキストを一括で返す
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// Stream は生成テキストを断片単位でfnに渡し、完了後に全文を返す
	// fnがエラーを返した場合、またはctxがキャンセルされた場合は中断する
	Stream(ctx context.Context, req CompletionRequest, fn func(fragment string) error) (string, error)
}
