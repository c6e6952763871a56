package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// DefaultMaxSteps はツール呼び出しループの上限回数
const DefaultMaxSteps = 8

// DefaultSystemPrompt はReActスタイルの振る舞いを指示するシステムプロンプト
const DefaultSystemPrompt = "You are a careful, ReAct-style assistant: plan, use tools when needed, " +
	"and return a concise final answer with brief justification."

// ErrMaxStepsExceeded はループ上限に達しても最終回答が得られない場合のエラー
var ErrMaxStepsExceeded = errors.New("agent exceeded max steps without a final answer")

// Tool はエージェントが呼び出せる1つの機能を表す
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any // JSONスキーマ
	Call        func(ctx context.Context, args map[string]any) (string, error)
}

// ToolCaller はツール定義付きでモデルに1手を打たせる
// 戻り値は正規化済みイベント（TextEventまたはToolCallEventの列）
type ToolCaller interface {
	Step(ctx context.Context, system, question string, history []Event, tools []Tool) ([]Event, error)
}

// RunResult はエージェント実行の結果
type RunResult struct {
	Answer string
	Trace  []Event // 実行過程の全イベント（順序保存）
}

// Agent はツール呼び出しループを実行する
type Agent struct {
	llm      ToolCaller
	tools    map[string]Tool
	order    []string // 登録順を保持してモデルに渡す
	system   string
	maxSteps int
	logger   *slog.Logger
}

// AgentOption は Agent のオプション設定
type AgentOption func(*Agent)

// WithSystemPrompt はシステムプロンプトを上書きする
func WithSystemPrompt(prompt string) AgentOption {
	return func(a *Agent) {
		a.system = prompt
	}
}

// WithMaxSteps はループ上限を上書きする
func WithMaxSteps(n int) AgentOption {
	return func(a *Agent) {
		if n > 0 {
			a.maxSteps = n
		}
	}
}

// WithAgentLogger は Agent にロガーを設定する
func WithAgentLogger(logger *slog.Logger) AgentOption {
	return func(a *Agent) {
		a.logger = logger
	}
}

// New は新しいAgentを作成する
func New(llm ToolCaller, tools []Tool, opts ...AgentOption) *Agent {
	a := &Agent{
		llm:      llm,
		tools:    make(map[string]Tool, len(tools)),
		system:   DefaultSystemPrompt,
		maxSteps: DefaultMaxSteps,
		logger:   slog.Default(),
	}
	for _, tool := range tools {
		a.tools[tool.Name] = tool
		a.order = append(a.order, tool.Name)
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run は質問に対して計画・ツール実行・回答のループを実行する
func (a *Agent) Run(ctx context.Context, question string) (*RunResult, error) {
	tools := make([]Tool, 0, len(a.order))
	for _, name := range a.order {
		tools = append(tools, a.tools[name])
	}

	var history []Event

	for step := 0; step < a.maxSteps; step++ {
		events, err := a.llm.Step(ctx, a.system, question, history, tools)
		if err != nil {
			return nil, fmt.Errorf("agent step %d failed: %w", step+1, err)
		}
		history = append(history, events...)

		calls := toolCalls(events)
		if len(calls) == 0 {
			// ツール要求なし → 平文を最終回答として返す
			answer := strings.TrimSpace(collectText(events))
			if answer == "" {
				return nil, fmt.Errorf("model returned neither text nor tool calls at step %d", step+1)
			}
			return &RunResult{Answer: answer, Trace: history}, nil
		}

		for _, call := range calls {
			result := a.dispatch(ctx, call)
			history = append(history, result)
			a.logger.Info("tool executed", "tool", call.Name, "resultLength", len(result.Content))
		}
	}

	return nil, ErrMaxStepsExceeded
}

// dispatch は1件のツール呼び出しを実行する
// 未知のツールや実行エラーはループを止めず、結果としてモデルへ返す
func (a *Agent) dispatch(ctx context.Context, call ToolCallEvent) ToolResultEvent {
	if call.ArgsErr != "" {
		return ToolResultEvent{
			ID:      call.ID,
			Name:    call.Name,
			Content: fmt.Sprintf("error: invalid arguments for %q: %s", call.Name, call.ArgsErr),
		}
	}

	tool, ok := a.tools[call.Name]
	if !ok {
		return ToolResultEvent{
			ID:      call.ID,
			Name:    call.Name,
			Content: fmt.Sprintf("error: unknown tool %q", call.Name),
		}
	}

	content, err := tool.Call(ctx, call.Args)
	if err != nil {
		return ToolResultEvent{
			ID:      call.ID,
			Name:    call.Name,
			Content: fmt.Sprintf("error: %v", err),
		}
	}

	return ToolResultEvent{
		ID:      call.ID,
		Name:    call.Name,
		Content: content,
	}
}

func toolCalls(events []Event) []ToolCallEvent {
	var calls []ToolCallEvent
	for _, e := range events {
		if call, ok := e.(ToolCallEvent); ok {
			calls = append(calls, call)
		}
	}
	return calls
}

func collectText(events []Event) string {
	var sb strings.Builder
	for _, e := range events {
		if text, ok := e.(TextEvent); ok {
			sb.WriteString(text.Text)
		}
	}
	return sb.String()
}
