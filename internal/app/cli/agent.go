package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/jinford/doc-chat/internal/core/agent"
	"github.com/jinford/doc-chat/internal/infra/openai"
	"github.com/jinford/doc-chat/internal/infra/places"
	"github.com/jinford/doc-chat/internal/infra/tmdb"
)

// AgentAction はツール呼び出しエージェントコマンドのアクション
func AgentAction(ctx context.Context, cmd *cli.Command) error {
	question := cmd.Args().First()
	if question == "" {
		return fmt.Errorf("質問文を指定してください")
	}

	appCtx, err := NewAppContext(cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	tools := []agent.Tool{
		agent.NewCurrencyTool(),
		agent.NewLocalTimeTool(),
		agent.NewWeatherTool(),
	}

	// APIキーが設定されている外部ツールだけを登録する
	var movieClient *tmdb.Client
	if key := appCtx.Config.Agent.TMDBAPIKey; key != "" {
		movieClient, err = tmdb.NewClient(key)
		if err != nil {
			return err
		}
		tools = append(tools,
			movieClient.Tool(appCtx.Config.Agent.Region),
			movieClient.SearchTool(),
		)
	}
	if key := appCtx.Config.Agent.PlacesAPIKey; key != "" {
		client, err := places.NewClient(key)
		if err != nil {
			return err
		}
		theaters := client.Tool(appCtx.Config.Agent.City)
		tools = append(tools, theaters)

		// 上映確認と映画館検索を1手で行う複合ツール（両APIが使える場合のみ）
		if movieClient != nil {
			tools = append(tools, movieClient.MovieInCityTool(theaters,
				appCtx.Config.Agent.Region, appCtx.Config.Agent.City))
		}
	}

	caller := openai.NewToolCaller(appCtx.LLM, appCtx.Config.OpenAI.Temperature)
	a := agent.New(caller, tools, agent.WithAgentLogger(appCtx.Logger))

	result, err := a.Run(ctx, question)
	if err != nil {
		return err
	}

	if cmd.Bool("trace") {
		fmt.Println("🧠 Reasoning Trace:")
		fmt.Println("--------------------------------------------------")
		printTrace(result.Trace)
		fmt.Println("--------------------------------------------------")
	}

	fmt.Printf("✅ Final Answer: %s\n", result.Answer)
	return nil
}

func printTrace(trace []agent.Event) {
	for _, event := range trace {
		switch e := event.(type) {
		case agent.ToolCallEvent:
			fmt.Printf("🔧 Action: %s(%v)\n", e.Name, e.Args)
		case agent.ToolResultEvent:
			content := e.Content
			if len(content) > 200 {
				content = content[:200] + "..."
			}
			fmt.Printf("📊 Observation: %s\n", content)
		case agent.TextEvent:
			fmt.Printf("💭 %s\n", e.Text)
		}
	}
}
