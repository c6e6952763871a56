package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// AskAction は単発の質問応答コマンドのアクション
func AskAction(ctx context.Context, cmd *cli.Command) error {
	question := cmd.Args().First()
	if question == "" {
		return fmt.Errorf("質問文を指定してください")
	}

	appCtx, err := NewAppContext(cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	// 構築済みコレクションに対するセッション（READYから開始）
	session, err := appCtx.newSession(ctx, cmd.String("collection"), nil)
	if err != nil {
		return err
	}
	defer session.Close()

	answer, err := session.Ask(ctx, question)
	if err != nil {
		appCtx.Logger.Error("質問応答に失敗しました", "error", err)
		return err
	}

	fmt.Println(answer)
	return nil
}
