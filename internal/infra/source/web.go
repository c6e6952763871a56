package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jinford/doc-chat/internal/core/ingestion"
)

// DefaultFetchTimeout はページ取得のデフォルトタイムアウト
const DefaultFetchTimeout = 15 * time.Second

var whitespaceRE = regexp.MustCompile(`[ \t]+`)

// WebSource はURLリストからページを取得し、可視テキストを抽出する
//
// 1件の取得失敗はログに記録してスキップし、残りのURLは継続する。
type WebSource struct {
	urls   []string
	client *http.Client
	logger *slog.Logger
}

// NewWebSource は新しいWebSourceを作成する
func NewWebSource(urls []string, logger *slog.Logger) *WebSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSource{
		urls: urls,
		client: &http.Client{
			Timeout: DefaultFetchTimeout,
		},
		logger: logger,
	}
}

// Load は全URLを順に取得してドキュメント化する
func (s *WebSource) Load(ctx context.Context) ([]*ingestion.Document, error) {
	var docs []*ingestion.Document

	for _, url := range s.urls {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		text, err := s.fetch(ctx, url)
		if err != nil {
			s.logger.Warn("skipping URL", "url", url, "error", err)
			continue
		}

		docs = append(docs, &ingestion.Document{
			Content: text,
			Metadata: map[string]any{
				"source": url,
			},
		})
	}

	return docs, nil
}

func (s *WebSource) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	return extractVisibleText(doc), nil
}

// extractVisibleText はページから表示テキストのみを取り出す
func extractVisibleText(doc *goquery.Document) string {
	// 非表示要素を落としてからテキストを集める
	doc.Find("script, style, noscript, iframe, nav, footer, header").Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	var lines []string
	for _, raw := range strings.Split(root.Text(), "\n") {
		line := strings.TrimSpace(whitespaceRE.ReplaceAllString(raw, " "))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// インターフェース実装の確認
var _ ingestion.Source = (*WebSource)(nil)
