package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jinford/doc-chat/internal/core/generation"
	"github.com/jinford/doc-chat/internal/core/ingestion"
	"github.com/jinford/doc-chat/internal/core/vectorindex"
)

// State はセッションの状態
type State string

const (
	StateUnbuilt  State = "unbuilt"
	StateBuilding State = "building"
	StateReady    State = "ready"
	StateQuerying State = "querying"
	StateClosed   State = "closed"
)

var (
	// ErrSessionClosed は終了済みセッションへの操作エラー
	ErrSessionClosed = errors.New("session is closed")

	// ErrSessionBusy は処理中セッションへの多重操作エラー
	// 1セッション内で同時に処理できる質問は1つまで
	ErrSessionBusy = errors.New("session is busy")

	// ErrNotBuilt はインデックス構築前の質問エラー
	ErrNotBuilt = errors.New("index is not built yet")

	// ErrNoBuilder は構築済み前提のセッションでBuildを呼んだ場合のエラー
	ErrNoBuilder = errors.New("session has no builder")
)

// Builder はインデックス構築フェーズを実行する
type Builder interface {
	Build(ctx context.Context, params ingestion.BuildParams) (*ingestion.BuildResult, error)
}

// Retriever は質問に関連するチャンクを取得する
type Retriever interface {
	Retrieve(ctx context.Context, question string) ([]vectorindex.ScoredChunk, error)
}

// Session はRAGパイプライン全体を統括するオーケストレータ
//
// 状態遷移: UNBUILT → BUILDING → READY → QUERYING → READY → ... → CLOSED
// 構築済みインデックスに対して開始する場合はREADYから始まる。
type Session struct {
	builder   Builder
	retriever Retriever
	llm       generation.Client
	memory    *Memory
	window    *HistoryWindow // nilの場合は履歴を無制限に載せる

	model       string
	temperature float64
	logger      *slog.Logger

	mu    sync.Mutex
	state State
}

// SessionOption は Session のオプション設定
type SessionOption func(*Session)

// WithHistoryWindow は履歴のトークン予算窓を設定する
func WithHistoryWindow(window *HistoryWindow) SessionOption {
	return func(s *Session) {
		s.window = window
	}
}

// WithSessionLogger は Session にロガーを設定する
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession は新しいSessionを作成する
// builderがnilの場合、インデックスは構築済みとみなしREADY状態で開始する
func NewSession(builder Builder, retriever Retriever, llm generation.Client, model string, temperature float64, opts ...SessionOption) *Session {
	s := &Session{
		builder:     builder,
		retriever:   retriever,
		llm:         llm,
		memory:      NewMemory(),
		model:       model,
		temperature: temperature,
		logger:      slog.Default(),
		state:       StateUnbuilt,
	}
	if builder == nil {
		s.state = StateReady
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State は現在の状態を返す
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Memory は会話メモリを返す
func (s *Session) Memory() *Memory {
	return s.memory
}

// Build はインデックス構築フェーズを実行し、セッションをREADYへ遷移させる
// 構築済み前提で開始したセッション（builderなし）ではErrNoBuilderを返す
func (s *Session) Build(ctx context.Context, params ingestion.BuildParams) (*ingestion.BuildResult, error) {
	if s.builder == nil {
		// 状態遷移の前に弾く（READYのまま質問を受け付け続けられるように）
		return nil, ErrNoBuilder
	}

	if err := s.transition(StateBuilding, StateUnbuilt, StateReady); err != nil {
		return nil, err
	}

	result, err := s.builder.Build(ctx, params)
	if err != nil {
		// 構築失敗時はUNBUILTに戻す（中途半端なインデックスへの質問を防ぐ）
		s.setState(StateUnbuilt)
		return nil, err
	}

	s.setState(StateReady)
	return result, nil
}

// Ask は1つの質問を処理して回答を返す
//
// 検索 → プロンプト組み立て → 生成 → メモリ追記の順に実行する。
// メモリには生成まで成功したターンだけが記録される。
func (s *Session) Ask(ctx context.Context, question string) (string, error) {
	return s.ask(ctx, question, nil)
}

// AskStream は回答の断片を逐次fnへ渡しつつ質問を処理する
// メモリへの追記はストリームを最後まで読み切った後に一度だけ行う
func (s *Session) AskStream(ctx context.Context, question string, fn func(fragment string) error) (string, error) {
	if fn == nil {
		return "", fmt.Errorf("stream callback is required")
	}
	return s.ask(ctx, question, fn)
}

func (s *Session) ask(ctx context.Context, question string, fn func(string) error) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("question is required")
	}

	if err := s.transition(StateQuerying, StateReady); err != nil {
		return "", err
	}
	defer s.setState(StateReady)

	// 1. 類似チャンクの検索
	chunks, err := s.retriever.Retrieve(ctx, question)
	if err != nil {
		return "", err
	}

	// 2. 履歴スナップショット（レンダリング時にのみ窓を適用）
	history := s.memory.Snapshot()
	if s.window != nil {
		history = s.window.Apply(history)
	}

	// 3. プロンプト組み立て
	prompt := BuildPrompt(chunks, question, history)

	// 4. 生成
	req := generation.CompletionRequest{
		Model:       s.model,
		Prompt:      prompt,
		Temperature: s.temperature,
	}

	var answer string
	if fn != nil {
		answer, err = s.llm.Stream(ctx, req, fn)
	} else {
		answer, err = s.llm.Complete(ctx, req)
	}
	if err != nil {
		// 失敗・キャンセル時はメモリを変更しない
		s.logger.Warn("generation failed, memory unchanged", "error", err)
		return "", err
	}

	// 5. 質問と回答をこの順でメモリへ追記
	s.memory.AppendExchange(question, answer)

	s.logger.Debug("question answered",
		"chunks", len(chunks),
		"historyTurns", len(history),
		"answerLength", len(answer),
	)

	return answer, nil
}

// Close はセッションを終了する
// メモリは破棄され、以後の操作はErrSessionClosedを返す
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateQuerying || s.state == StateBuilding {
		return ErrSessionBusy
	}
	s.state = StateClosed
	return nil
}

// transition は現在の状態がfromのいずれかである場合のみtoへ遷移する
func (s *Session) transition(to State, from ...State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return ErrSessionClosed
	case StateQuerying, StateBuilding:
		return ErrSessionBusy
	}

	for _, f := range from {
		if s.state == f {
			s.state = to
			return nil
		}
	}

	if s.state == StateUnbuilt {
		return ErrNotBuilt
	}
	return fmt.Errorf("invalid state transition: %s -> %s", s.state, to)
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateClosed {
		s.state = state
	}
}
