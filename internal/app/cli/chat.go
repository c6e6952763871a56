package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/samber/mo"
	"github.com/urfave/cli/v3"

	"github.com/jinford/doc-chat/internal/core/chat"
	"github.com/jinford/doc-chat/internal/core/ingestion"
)

// ChatAction は対話セッションコマンドのアクション
//
// 1行を1質問として処理し、exit / quit（大文字小文字を区別しない）で
// 正常終了する。回答はストリーミングで標準出力へ流す。
func ChatAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	collection := cmd.String("collection")
	path := cmd.String("path")
	urls := cmd.StringSlice("url")

	var session *chat.Session

	if path != "" || len(urls) > 0 {
		// --path/--url 指定時はセッション内でビルドフェーズを実行する
		service, err := appCtx.newIngestionService(ctx)
		if err != nil {
			return err
		}
		session, err = appCtx.newSession(ctx, collection, service)
		if err != nil {
			return err
		}

		params := ingestion.BuildParams{
			Collection: collection,
			URLs:       urls,
		}
		if path != "" {
			params.Path = mo.Some(path)
		}

		result, err := session.Build(ctx, params)
		if err != nil {
			return err
		}
		fmt.Printf("✅ Indexed %d documents (%d chunks) into %q\n", result.Documents, result.Chunks, collection)
	} else {
		// 構築済みコレクションに対してREADYから開始する
		session, err = appCtx.newSession(ctx, collection, nil)
		if err != nil {
			return err
		}
	}
	defer session.Close()

	fmt.Println("💬 Chat with your documents! Type 'exit' to quit.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if isExitCommand(input) {
			break
		}

		fmt.Print("\n🤖 AI: ")
		_, err := session.AskStream(ctx, input, func(fragment string) error {
			fmt.Print(fragment)
			return nil
		})
		fmt.Println()
		if err != nil {
			if ctx.Err() != nil {
				// 割り込みによるキャンセル（メモリは未更新のまま）
				fmt.Println("(cancelled)")
				break
			}
			appCtx.Logger.Error("質問応答に失敗しました", "error", err)
			fmt.Println("(error - try again)")
		}
		fmt.Println()
	}

	return scanner.Err()
}

// isExitCommand は終了トークンかどうかを判定する
func isExitCommand(input string) bool {
	switch strings.ToLower(input) {
	case "exit", "quit":
		return true
	}
	return false
}
