package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// CollectionListAction はコレクション一覧コマンドのアクション
func CollectionListAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	idx, err := appCtx.Index(ctx)
	if err != nil {
		return err
	}

	collections, err := idx.ListCollections(ctx)
	if err != nil {
		return err
	}

	if len(collections) == 0 {
		fmt.Println("(no collections)")
		return nil
	}
	for _, c := range collections {
		fmt.Printf("%s\tdimension=%d\tmetric=%s\n", c.Name, c.Dimension, c.Metric)
	}
	return nil
}

// CollectionDeleteAction はコレクション削除コマンドのアクション
func CollectionDeleteAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	idx, err := appCtx.Index(ctx)
	if err != nil {
		return err
	}

	name := cmd.String("name")
	if err := idx.DeleteCollection(ctx, name); err != nil {
		return err
	}

	fmt.Printf("✅ Collection %q deleted\n", name)
	return nil
}
