package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jinford/doc-chat/internal/core/agent"
)

const (
	// DefaultBaseURL はPlaces Text Search APIのエンドポイント
	DefaultBaseURL = "https://maps.googleapis.com/maps/api/place/textsearch/json"

	// DefaultTimeout はAPI呼び出しのタイムアウト
	DefaultTimeout = 10 * time.Second

	// maxResults は1回の検索で返す件数の上限
	maxResults = 20
)

// Place は検索結果の1件分
type Place struct {
	Name             string  `json:"name"`
	FormattedAddress string  `json:"formatted_address"`
	Rating           float64 `json:"rating"`
	UserRatingsTotal int     `json:"user_ratings_total"`
}

// Client はPlaces Text Searchのクライアント
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// ClientOption は Client のオプション設定
type ClientOption func(*Client)

// WithBaseURL はエンドポイントを上書きする（テスト用）
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// NewClient は新しいClientを作成する
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Places API key is required")
	}
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FindTheaters は指定都市の映画館をテキスト検索する
func (c *Client) FindTheaters(ctx context.Context, city string) ([]Place, error) {
	params := url.Values{}
	params.Set("query", fmt.Sprintf("movie theaters in %s", city))
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Places request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Places API error %d", resp.StatusCode)
	}

	var body struct {
		Results []Place `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode Places response: %w", err)
	}

	results := body.Results
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

// Tool は映画館検索のエージェント用ツールを作成する
func (c *Client) Tool(defaultCity string) agent.Tool {
	return agent.Tool{
		Name:        "find_theaters",
		Description: "Find movie theaters in a city.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city": map[string]any{
					"type":        "string",
					"description": "City name, e.g. 'Pune'",
				},
			},
		},
		Call: func(ctx context.Context, args map[string]any) (string, error) {
			city := defaultCity
			if v, ok := args["city"].(string); ok && v != "" {
				city = v
			}

			theaters, err := c.FindTheaters(ctx, city)
			if err != nil {
				return "", err
			}
			if len(theaters) == 0 {
				return "No theaters found.", nil
			}

			var sb strings.Builder
			fmt.Fprintf(&sb, "Found %d theaters near %s:\n", len(theaters), city)
			for i, p := range theaters {
				fmt.Fprintf(&sb, "%d. %s - %s - rating: %.1f (%d)\n",
					i+1, p.Name, p.FormattedAddress, p.Rating, p.UserRatingsTotal)
			}
			return sb.String(), nil
		},
	}
}
