package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	appcli "github.com/jinford/doc-chat/internal/app/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envFlag := &cli.StringFlag{
		Name:  "env",
		Usage: "環境変数ファイルパス",
		Value: ".env",
	}
	collectionFlag := &cli.StringFlag{
		Name:     "collection",
		Usage:    "ベクトルインデックスのコレクション名",
		Required: true,
	}

	app := &cli.Command{
		Name:  "doc-chat",
		Usage: "ドキュメントQAと検索拡張生成（RAG）のCLI",
		Commands: []*cli.Command{
			{
				Name:  "build",
				Usage: "ドキュメントを取り込んでベクトルインデックスを構築",
				Flags: []cli.Flag{
					envFlag,
					collectionFlag,
					&cli.StringFlag{
						Name:  "path",
						Usage: "取り込み対象のローカルディレクトリ（.txt / .pdf）",
					},
					&cli.StringSliceFlag{
						Name:  "url",
						Usage: "取り込み対象のURL（複数指定可）",
					},
				},
				Action: appcli.BuildAction,
			},
			{
				Name:  "chat",
				Usage: "対話セッションを開始（exit / quit で終了）",
				Flags: []cli.Flag{
					envFlag,
					collectionFlag,
					&cli.StringFlag{
						Name:  "path",
						Usage: "セッション開始前に取り込むローカルディレクトリ",
					},
					&cli.StringSliceFlag{
						Name:  "url",
						Usage: "セッション開始前に取り込むURL（複数指定可）",
					},
				},
				Action: appcli.ChatAction,
			},
			{
				Name:      "ask",
				Usage:     "構築済みコレクションへ単発の質問",
				ArgsUsage: "<question>",
				Flags: []cli.Flag{
					envFlag,
					collectionFlag,
				},
				Action: appcli.AskAction,
			},
			{
				Name:  "collection",
				Usage: "コレクション管理コマンド",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "コレクション一覧を表示",
						Flags:  []cli.Flag{envFlag},
						Action: appcli.CollectionListAction,
					},
					{
						Name:  "delete",
						Usage: "コレクションを削除",
						Flags: []cli.Flag{
							envFlag,
							&cli.StringFlag{
								Name:     "name",
								Usage:    "コレクション名",
								Required: true,
							},
						},
						Action: appcli.CollectionDeleteAction,
					},
				},
			},
			{
				Name:      "agent",
				Usage:     "ツール呼び出しエージェントに質問",
				ArgsUsage: "<question>",
				Flags: []cli.Flag{
					envFlag,
					&cli.BoolFlag{
						Name:  "trace",
						Usage: "ツール実行の過程を表示",
					},
				},
				Action: appcli.AgentAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
