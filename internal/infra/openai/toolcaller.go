package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"

	"github.com/jinford/doc-chat/internal/core/agent"
)

// ToolCaller は OpenAI のツール呼び出しAPIを agent.ToolCaller に適合させる
type ToolCaller struct {
	client      openai.Client
	model       string
	temperature float64
}

// NewToolCaller は既存のClientを流用してToolCallerを作成する
func NewToolCaller(c *Client, temperature float64) *ToolCaller {
	return &ToolCaller{
		client:      c.client,
		model:       c.model,
		temperature: temperature,
	}
}

// Step はツール定義付きでモデルに1手を打たせ、応答を正規化して返す
func (t *ToolCaller) Step(ctx context.Context, system, question string, history []agent.Event, tools []agent.Tool) ([]agent.Event, error) {
	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(t.model),
		Messages:    buildMessages(system, question, history),
		Temperature: openai.Float(t.temperature),
		Tools:       buildToolParams(tools),
	}

	completion, err := t.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("no completion choices returned")
	}

	return normalize(completion.Choices[0].Message)
}

// buildMessages は正規化済みイベント列からAPI用メッセージ列を再構成する
func buildMessages(system, question string, history []agent.Event) []openai.ChatCompletionMessageParamUnion {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(system),
		openai.UserMessage(question),
	}

	for _, event := range history {
		switch e := event.(type) {
		case agent.TextEvent:
			messages = append(messages, openai.AssistantMessage(e.Text))
		case agent.ToolCallEvent:
			args, err := json.Marshal(e.Args)
			if err != nil {
				args = []byte("{}")
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					ToolCalls: []openai.ChatCompletionMessageToolCallUnionParam{
						{
							OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
								ID: e.ID,
								Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
									Name:      e.Name,
									Arguments: string(args),
								},
							},
						},
					},
				},
			})
		case agent.ToolResultEvent:
			messages = append(messages, openai.ToolMessage(e.Content, e.ID))
		}
	}

	return messages
}

func buildToolParams(tools []agent.Tool) []openai.ChatCompletionToolUnionParam {
	params := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		params = append(params, openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        tool.Name,
			Description: openai.String(tool.Description),
			Parameters:  shared.FunctionParameters(tool.Parameters),
		}))
	}
	return params
}

// normalize はAPI応答を受信直後にタグ付きイベントへ変換する
// 以降の処理は生のメッセージ形状を参照しない
func normalize(msg openai.ChatCompletionMessage) ([]agent.Event, error) {
	var events []agent.Event

	if msg.Content != "" {
		events = append(events, agent.TextEvent{Text: msg.Content})
	}

	for _, call := range msg.ToolCalls {
		event := agent.ToolCallEvent{
			ID:   call.ID,
			Name: call.Function.Name,
			Args: map[string]any{},
		}
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &event.Args); err != nil {
				// 壊れた引数はループを止めず、結果としてモデルへ差し戻す
				event.ArgsErr = err.Error()
			}
		}
		events = append(events, event)
	}

	if len(events) == 0 {
		return nil, fmt.Errorf("model returned an empty message")
	}

	return events, nil
}

// インターフェース実装の確認
var _ agent.ToolCaller = (*ToolCaller)(nil)
