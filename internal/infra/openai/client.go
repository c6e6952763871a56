package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/jinford/doc-chat/internal/core/generation"
)

const (
	// DefaultModel はデフォルトで使用するOpenAIモデル
	DefaultModel = "gpt-4o-mini"

	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 60 * time.Second

	// MaxRetries はレート制限エラー時の最大リトライ回数
	MaxRetries = 3

	// BaseBackoff はExponential Backoffの基底時間
	BaseBackoff = 2 * time.Second

	// MaxBackoff はExponential Backoffの最大待機時間
	MaxBackoff = 32 * time.Second
)

var (
	// ErrAPIKeyNotSet はAPIキーが設定されていない場合のエラー
	ErrAPIKeyNotSet = errors.New("OpenAI API key not set: please set OPENAI_API_KEY environment variable")

	// ErrMaxRetriesExceeded は最大リトライ回数を超過した場合のエラー
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// Client は OpenAI API を使用した generation.Client 実装
type Client struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewClient は新しい Client を作成する
// APIキーは環境変数 OPENAI_API_KEY から読み込む
func NewClient() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	return NewClientWithAPIKey(apiKey, DefaultModel)
}

// NewClientWithAPIKey はAPIキーとモデルを指定して Client を作成する
func NewClientWithAPIKey(apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	if model == "" {
		model = DefaultModel
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	return &Client{
		client:  client,
		model:   model,
		timeout: DefaultTimeout,
	}, nil
}

// SetTimeout はAPIコールのタイムアウトを設定する
func (c *Client) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

// ModelName はモデル名を返す
func (c *Client) ModelName() string {
	return c.model
}

// Complete はプロンプトに対する生成テキストを一括で返す
func (c *Client) Complete(ctx context.Context, req generation.CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var lastErr error

	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			if err := backoffWait(ctx, attempt); err != nil {
				return "", err
			}
		}

		completion, err := c.client.Chat.Completions.New(ctx, c.params(req))
		if err != nil {
			lastErr = err
			if isRateLimitError(err) {
				continue
			}
			return "", fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
		}

		if len(completion.Choices) == 0 {
			return "", fmt.Errorf("%w: no completion choices returned", generation.ErrGenerationFailed)
		}

		return completion.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("%w: %w: %v", generation.ErrGenerationFailed, ErrMaxRetriesExceeded, lastErr)
}

// Stream は生成テキストを断片単位でfnに渡し、完了後に全文を返す
//
// ストリームを読み切る前にエラーまたはキャンセルが発生した場合、
// それまでの断片は破棄され、エラーを返す。
func (c *Client) Stream(ctx context.Context, req generation.CompletionRequest, fn func(string) error) (string, error) {
	stream := c.client.Chat.Completions.NewStreaming(ctx, c.params(req))
	defer stream.Close()

	var sb strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		fragment := chunk.Choices[0].Delta.Content
		if fragment == "" {
			continue
		}
		sb.WriteString(fragment)
		if fn != nil {
			if err := fn(fragment); err != nil {
				return "", fmt.Errorf("%w: stream consumer aborted: %v", generation.ErrGenerationFailed, err)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}

	return sb.String(), nil
}

func (c *Client) params(req generation.CompletionRequest) openai.ChatCompletionNewParams {
	model := c.model
	if req.Model != "" {
		model = req.Model
	}
	return openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(req.Temperature),
	}
}

func backoffWait(ctx context.Context, attempt int) error {
	backoffDuration := time.Duration(math.Pow(2, float64(attempt-1))) * BaseBackoff
	if backoffDuration > MaxBackoff {
		backoffDuration = MaxBackoff
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", generation.ErrGenerationFailed, ctx.Err())
	case <-time.After(backoffDuration):
		return nil
	}
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}

	return false
}

// インターフェース実装の確認
var _ generation.Client = (*Client)(nil)
