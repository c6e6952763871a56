package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jinford/doc-chat/internal/core/agent"
)

const (
	// DefaultBaseURL はTMDb APIのエンドポイント
	DefaultBaseURL = "https://api.themoviedb.org/3"

	// DefaultLanguage は結果の言語
	DefaultLanguage = "en-US"

	// DefaultTimeout はAPI呼び出しのタイムアウト
	DefaultTimeout = 10 * time.Second

	// maxPages はページ送りの上限（レート制限への配慮）
	maxPages = 5
)

// Movie は上映中作品の1件分
type Movie struct {
	ID            int     `json:"id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title"`
	ReleaseDate   string  `json:"release_date"`
	Language      string  `json:"original_language"`
	Overview      string  `json:"overview"`
	Popularity    float64 `json:"popularity"`
}

// Client はTMDb APIのクライアント
type Client struct {
	baseURL  string
	apiKey   string
	language string
	client   *http.Client
}

// ClientOption は Client のオプション設定
type ClientOption func(*Client)

// WithBaseURL はエンドポイントを上書きする（テスト用）
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLanguage は結果の言語を上書きする
func WithLanguage(language string) ClientOption {
	return func(c *Client) {
		c.language = language
	}
}

// NewClient は新しいClientを作成する
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("TMDB API key is required")
	}
	c := &Client{
		baseURL:  DefaultBaseURL,
		apiKey:   apiKey,
		language: DefaultLanguage,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NowPlaying は指定リージョンで上映中の作品をページ送りしながら集める
func (c *Client) NowPlaying(ctx context.Context, region string) ([]Movie, error) {
	var movies []Movie

	for page := 1; page <= maxPages; page++ {
		params := url.Values{}
		params.Set("api_key", c.apiKey)
		params.Set("language", c.language)
		params.Set("region", region)
		params.Set("page", strconv.Itoa(page))

		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			c.baseURL+"/movie/now_playing?"+params.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("TMDb request failed: %w", err)
		}

		var body struct {
			Page       int     `json:"page"`
			TotalPages int     `json:"total_pages"`
			Results    []Movie `json:"results"`
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("TMDb API error %d", resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("failed to decode TMDb response: %w", err)
		}
		resp.Body.Close()

		movies = append(movies, body.Results...)
		if page >= body.TotalPages {
			break
		}
	}

	return movies, nil
}

// SearchMovie はタイトルで作品を検索する（関連度順）
func (c *Client) SearchMovie(ctx context.Context, title string) ([]Movie, error) {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("language", c.language)
	params.Set("query", title)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/search/movie?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("TMDb request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("TMDb API error %d", resp.StatusCode)
	}

	var body struct {
		Results []Movie `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode TMDb response: %w", err)
	}

	return body.Results, nil
}

// Tool は上映中作品の一覧を返すエージェント用ツールを作成する
func (c *Client) Tool(defaultRegion string) agent.Tool {
	return agent.Tool{
		Name:        "now_playing_movies",
		Description: "List movies currently playing in theaters for a region (ISO 3166-1 country code).",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"region": map[string]any{
					"type":        "string",
					"description": "ISO 3166-1 country code, e.g. 'IN' or 'US'",
				},
			},
		},
		Call: func(ctx context.Context, args map[string]any) (string, error) {
			region := defaultRegion
			if r, ok := args["region"].(string); ok && r != "" {
				region = r
			}

			movies, err := c.NowPlaying(ctx, region)
			if err != nil {
				return "", err
			}
			if len(movies) == 0 {
				return "No movies found.", nil
			}

			var sb strings.Builder
			fmt.Fprintf(&sb, "Found %d movies now playing:\n", len(movies))
			for i, m := range movies {
				release := m.ReleaseDate
				if release == "" {
					release = "N/A"
				}
				fmt.Fprintf(&sb, "%d. %s (%s) - release: %s - lang: %s\n",
					i+1, m.Title, m.OriginalTitle, release, m.Language)
			}
			return sb.String(), nil
		},
	}
}

// SearchTool はタイトル検索のエージェント用ツールを作成する
func (c *Client) SearchTool() agent.Tool {
	return agent.Tool{
		Name:        "search_movie",
		Description: "Search a specific movie by title and return its details.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{
					"type":        "string",
					"description": "Movie title to search for",
				},
			},
			"required": []string{"title"},
		},
		Call: func(ctx context.Context, args map[string]any) (string, error) {
			title, ok := args["title"].(string)
			if !ok || title == "" {
				return "", fmt.Errorf("title is required")
			}

			movies, err := c.SearchMovie(ctx, title)
			if err != nil {
				return "", err
			}
			if len(movies) == 0 {
				return "No results found.", nil
			}

			// 関連度順の先頭を作品詳細として返す
			m := movies[0]
			release := m.ReleaseDate
			if release == "" {
				release = "N/A"
			}
			return fmt.Sprintf("%s (%s)\nRelease: %s\nLanguage: %s\nOverview: %s",
				m.Title, m.OriginalTitle, release, m.Language, m.Overview), nil
		},
	}
}

// MovieInCityTool は指定作品が上映中かを確認し、上映中なら都市内の
// 映画館候補を挙げる複合ツールを作成する
// theatersには映画館検索ツール（find_theaters）を渡す
func (c *Client) MovieInCityTool(theaters agent.Tool, defaultRegion, defaultCity string) agent.Tool {
	return agent.Tool{
		Name:        "find_movie_in_city",
		Description: "Determine if a movie is currently playing in a region, and if yes, list theaters in a city where it may be running.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"movie_title": map[string]any{
					"type":        "string",
					"description": "Movie title to look for",
				},
				"city": map[string]any{
					"type":        "string",
					"description": "City to search theaters in, e.g. 'Pune'",
				},
			},
			"required": []string{"movie_title"},
		},
		Call: func(ctx context.Context, args map[string]any) (string, error) {
			title, ok := args["movie_title"].(string)
			if !ok || title == "" {
				return "", fmt.Errorf("movie_title is required")
			}
			city := defaultCity
			if v, ok := args["city"].(string); ok && v != "" {
				city = v
			}

			// 1. 上映中リストからタイトルを部分一致で探す
			movies, err := c.NowPlaying(ctx, defaultRegion)
			if err != nil {
				return "", err
			}
			var match *Movie
			for i := range movies {
				if strings.Contains(strings.ToLower(movies[i].Title), strings.ToLower(title)) {
					match = &movies[i]
					break
				}
			}
			if match == nil {
				return fmt.Sprintf("%s is not currently playing in theaters or not found.", title), nil
			}

			// 2. 上映中なら都市内の映画館候補を続けて探す
			theaterList, err := theaters.Call(ctx, map[string]any{"city": city})
			if err != nil {
				theaterList = fmt.Sprintf("(theater lookup failed: %v)", err)
			}

			overview := match.Overview
			if runes := []rune(overview); len(runes) > 180 {
				overview = string(runes[:180]) + "..."
			}

			var sb strings.Builder
			fmt.Fprintf(&sb, "%s is now playing (release: %s).\n", match.Title, match.ReleaseDate)
			if overview != "" {
				fmt.Fprintf(&sb, "Overview: %s\n", overview)
			}
			fmt.Fprintf(&sb, "Likely theaters in %s:\n%s", city, theaterList)
			return sb.String(), nil
		},
	}
}
