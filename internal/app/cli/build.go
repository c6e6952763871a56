package cli

import (
	"context"
	"fmt"

	"github.com/samber/mo"
	"github.com/urfave/cli/v3"

	"github.com/jinford/doc-chat/internal/core/ingestion"
)

// BuildAction はインデックス構築コマンドのアクション
func BuildAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	params := ingestion.BuildParams{
		Collection: cmd.String("collection"),
		URLs:       cmd.StringSlice("url"),
	}
	if path := cmd.String("path"); path != "" {
		params.Path = mo.Some(path)
	}

	service, err := appCtx.newIngestionService(ctx)
	if err != nil {
		return err
	}

	result, err := service.Build(ctx, params)
	if err != nil {
		return err
	}

	fmt.Printf("✅ Loaded %d documents\n", result.Documents)
	fmt.Printf("✅ Created %d chunks\n", result.Chunks)
	fmt.Printf("✅ Collection %q built\n", params.Collection)
	return nil
}
