package chat

import (
	"fmt"
	"strings"

	"github.com/jinford/doc-chat/internal/core/vectorindex"
)

// NotFoundAnswer は回答がコンテキストから導けない場合にモデルへ指示する定型句
// これはプロンプト上の指示であり、実際の回答がこれに従うかは検証しない
const NotFoundAnswer = "I could not find the answer in the document."

// BuildPrompt はRAG質問応答用のプロンプトを構築する
//
// 検索結果のチャンク（スコア降順）・会話履歴・質問を固定テンプレートに
// 埋め込む。同じ入力に対して常に同じ文字列を返す。
func BuildPrompt(chunks []vectorindex.ScoredChunk, question string, history []Turn) string {
	var sb strings.Builder

	sb.WriteString("You are an expert assistant. Use ONLY the following context to answer.\n")
	sb.WriteString(fmt.Sprintf("If the answer is not in the context, say: %q\n\n", NotFoundAnswer))

	sb.WriteString("Context:\n")
	if len(chunks) > 0 {
		for i, chunk := range chunks {
			sb.WriteString(fmt.Sprintf("[%d] ", i+1))
			sb.WriteString(chunk.Content)
			sb.WriteString("\n")
		}
	} else {
		sb.WriteString("(no context retrieved)\n")
	}
	sb.WriteString("\n")

	if len(history) > 0 {
		sb.WriteString("Conversation so far:\n")
		for _, turn := range history {
			switch turn.Role {
			case RoleUser:
				sb.WriteString("Human: ")
			case RoleAssistant:
				sb.WriteString("AI: ")
			default:
				sb.WriteString(string(turn.Role) + ": ")
			}
			sb.WriteString(turn.Content)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Question:\n")
	sb.WriteString(question)
	sb.WriteString("\n\n")

	sb.WriteString("Answer:")

	return sb.String()
}
