package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/jinford/doc-chat/internal/core/ingestion"
)

// DirectorySource はローカルディレクトリから .txt / .pdf を読み込む
//
// 個々のファイルの読み込み失敗はログに記録してスキップし、
// バッチ全体は継続する。
type DirectorySource struct {
	root   string
	logger *slog.Logger
}

// NewDirectorySource は新しいDirectorySourceを作成する
func NewDirectorySource(root string, logger *slog.Logger) *DirectorySource {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectorySource{
		root:   root,
		logger: logger,
	}
}

// Load はディレクトリ配下の対象ファイルをすべて読み込む
func (s *DirectorySource) Load(ctx context.Context) ([]*ingestion.Document, error) {
	info, err := os.Stat(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to access %q: %w", s.root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%q is not a directory", s.root)
	}

	var docs []*ingestion.Document

	err = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Warn("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var content string
		var readErr error

		switch strings.ToLower(filepath.Ext(path)) {
		case ".txt":
			content, readErr = readTextFile(path)
		case ".pdf":
			content, readErr = readPDFFile(path)
		default:
			return nil
		}

		if readErr != nil {
			// 1ファイルの失敗で取り込み全体を止めない
			s.logger.Warn("skipping document", "path", path, "error", readErr)
			return nil
		}

		docs = append(docs, &ingestion.Document{
			Content: content,
			Metadata: map[string]any{
				"source": path,
			},
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %q: %w", s.root, err)
	}

	return docs, nil
}

func readTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func readPDFFile(path string) (string, error) {
	f, rdr, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	reader, err := rdr.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}

	text := buf.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text extracted from pdf")
	}
	return text, nil
}

// インターフェース実装の確認
var _ ingestion.Source = (*DirectorySource)(nil)
