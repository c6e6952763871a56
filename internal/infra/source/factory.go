package source

import (
	"log/slog"

	"github.com/jinford/doc-chat/internal/core/ingestion"
)

// Factory はBuildParamsから適切なSourceを組み立てる ingestion.SourceFactory
//
// ローカルパスが指定されていればDirectorySource、URLリストが指定されて
// いればWebSource。どちらも無ければ ErrNoSource（ネットワーク呼び出し
// 前に失敗させる）。両方指定された場合はローカルパスを優先する。
func Factory(logger *slog.Logger) ingestion.SourceFactory {
	return func(params ingestion.BuildParams) (ingestion.Source, error) {
		if path, ok := params.Path.Get(); ok {
			return NewDirectorySource(path, logger), nil
		}
		if len(params.URLs) > 0 {
			return NewWebSource(params.URLs, logger), nil
		}
		return nil, ingestion.ErrNoSource
	}
}
