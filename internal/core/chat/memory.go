package chat

import "sync"

// Role は会話ターンの話者
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn は会話の1発言を表す
type Turn struct {
	Role    Role
	Content string
}

// Memory は会話履歴の追記専用ログ
// セッションと同じ寿命を持ち、プロセスをまたいで永続化されない
type Memory struct {
	mu    sync.Mutex
	turns []Turn
}

// NewMemory は空のMemoryを作成する
func NewMemory() *Memory {
	return &Memory{}
}

// Append はターンを末尾に追加する
func (m *Memory) Append(turn Turn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, turn)
}

// AppendExchange は質問と回答を1組としてこの順で追加する
func (m *Memory) AppendExchange(question, answer string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns,
		Turn{Role: RoleUser, Content: question},
		Turn{Role: RoleAssistant, Content: answer},
	)
}

// Snapshot は挿入順を保った全ターンのコピーを返す
func (m *Memory) Snapshot() []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := make([]Turn, len(m.turns))
	copy(snapshot, m.turns)
	return snapshot
}

// Len は記録済みターン数を返す
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.turns)
}
