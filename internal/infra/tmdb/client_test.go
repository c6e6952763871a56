package tmdb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/doc-chat/internal/core/agent"
)

func newTestServer(t *testing.T, pages map[string][]Movie, totalPages int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/now_playing", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))

		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		require.NoError(t, err)

		if err := json.NewEncoder(w).Encode(map[string]any{
			"page":        page,
			"total_pages": totalPages,
			"results":     pages[r.URL.Query().Get("page")],
		}); err != nil {
			t.Errorf("failed to encode response: %v", err)
		}
	}))
}

// TestNowPlayingPagination は複数ページの結果が連結されることを確認します
func TestNowPlayingPagination(t *testing.T) {
	pages := map[string][]Movie{
		"1": {{ID: 1, Title: "First Movie", ReleaseDate: "2025-01-01", Language: "en"}},
		"2": {{ID: 2, Title: "Second Movie", ReleaseDate: "2025-02-01", Language: "hi"}},
	}
	server := newTestServer(t, pages, 2)
	defer server.Close()

	client, err := NewClient("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	movies, err := client.NowPlaying(context.Background(), "IN")
	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, "First Movie", movies[0].Title)
	assert.Equal(t, "Second Movie", movies[1].Title)
}

// TestNowPlayingSinglePage は1ページで完結する場合に追加リクエストしないことを確認します
func TestNowPlayingSinglePage(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		json.NewEncoder(w).Encode(map[string]any{
			"page":        1,
			"total_pages": 1,
			"results":     []Movie{{ID: 1, Title: "Only Movie"}},
		})
	}))
	defer server.Close()

	client, err := NewClient("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	movies, err := client.NowPlaying(context.Background(), "US")
	require.NoError(t, err)
	assert.Len(t, movies, 1)
	assert.Equal(t, 1, requests)
}

// TestNowPlayingAPIError はAPIエラーがステータスコード付きで返ることを確認します
func TestNowPlayingAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client, err := NewClient("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = client.NowPlaying(context.Background(), "IN")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

// TestNewClientRequiresAPIKey はAPIキー未指定をエラーにすることを確認します
func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)
}

// TestToolFormatsMovieList はツール出力が番号付きリストになることを確認します
func TestToolFormatsMovieList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"page":        1,
			"total_pages": 1,
			"results": []Movie{
				{ID: 1, Title: "Movie A", OriginalTitle: "Movie A", ReleaseDate: "2025-03-01", Language: "en"},
				{ID: 2, Title: "Movie B", OriginalTitle: "ムービーB", Language: "ja"},
			},
		})
	}))
	defer server.Close()

	client, err := NewClient("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	tool := client.Tool("IN")
	require.Equal(t, "now_playing_movies", tool.Name)

	result, err := tool.Call(context.Background(), map[string]any{})
	require.NoError(t, err)

	assert.Contains(t, result, "Found 2 movies now playing:")
	assert.Contains(t, result, "1. Movie A")
	assert.Contains(t, result, "2. Movie B")
	// 公開日未設定はN/A表記
	assert.Contains(t, result, "release: N/A")
}

// TestSearchMovie はタイトル検索のクエリ組み立てとデコードを確認します
func TestSearchMovie(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/movie", r.URL.Path)
		assert.Equal(t, "Inception", r.URL.Query().Get("query"))
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))

		json.NewEncoder(w).Encode(map[string]any{
			"results": []Movie{
				{ID: 27205, Title: "Inception", OriginalTitle: "Inception", ReleaseDate: "2010-07-16", Language: "en", Overview: "A thief who steals corporate secrets."},
			},
		})
	}))
	defer server.Close()

	client, err := NewClient("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	movies, err := client.SearchMovie(context.Background(), "Inception")
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, "Inception", movies[0].Title)
}

// TestSearchToolFormatsTopResult は検索ツールが関連度順の先頭を
// 詳細表示することを確認します
func TestSearchToolFormatsTopResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"results": []Movie{
				{Title: "Inception", OriginalTitle: "Inception", ReleaseDate: "2010-07-16", Language: "en", Overview: "A thief who steals corporate secrets."},
				{Title: "Inception: The Cobol Job"},
			},
		})
	}))
	defer server.Close()

	client, err := NewClient("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	tool := client.SearchTool()
	require.Equal(t, "search_movie", tool.Name)

	result, err := tool.Call(context.Background(), map[string]any{"title": "Inception"})
	require.NoError(t, err)
	assert.Contains(t, result, "Inception (Inception)")
	assert.Contains(t, result, "Release: 2010-07-16")
	assert.Contains(t, result, "Overview: A thief who steals corporate secrets.")
	assert.NotContains(t, result, "Cobol Job")
}

// TestSearchToolNoResults は該当なしの場合の文言と引数必須を確認します
func TestSearchToolNoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"results": []Movie{}})
	}))
	defer server.Close()

	client, err := NewClient("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	tool := client.SearchTool()
	result, err := tool.Call(context.Background(), map[string]any{"title": "no such movie"})
	require.NoError(t, err)
	assert.Equal(t, "No results found.", result)

	_, err = tool.Call(context.Background(), map[string]any{})
	assert.Error(t, err)
}

// TestMovieInCityToolPlaying は上映中作品に対して映画館検索まで
// 連結されることを確認します
func TestMovieInCityToolPlaying(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/now_playing", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"page":        1,
			"total_pages": 1,
			"results": []Movie{
				{Title: "The Great Escape", ReleaseDate: "2025-05-01", Overview: "A daring breakout."},
			},
		})
	}))
	defer server.Close()

	client, err := NewClient("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	var theaterArgs map[string]any
	theaters := agent.Tool{
		Name: "find_theaters",
		Call: func(_ context.Context, args map[string]any) (string, error) {
			theaterArgs = args
			return "1. City Pride - MG Road", nil
		},
	}

	tool := client.MovieInCityTool(theaters, "IN", "Pune")
	require.Equal(t, "find_movie_in_city", tool.Name)

	// タイトルの部分一致（大文字小文字を区別しない）
	result, err := tool.Call(context.Background(), map[string]any{"movie_title": "great escape", "city": "Mumbai"})
	require.NoError(t, err)

	assert.Contains(t, result, "The Great Escape is now playing (release: 2025-05-01).")
	assert.Contains(t, result, "Overview: A daring breakout.")
	assert.Contains(t, result, "Likely theaters in Mumbai:")
	assert.Contains(t, result, "1. City Pride - MG Road")
	assert.Equal(t, map[string]any{"city": "Mumbai"}, theaterArgs)
}

// TestMovieInCityToolNotPlaying は上映していない作品では映画館検索を
// 行わないことを確認します
func TestMovieInCityToolNotPlaying(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"page":        1,
			"total_pages": 1,
			"results":     []Movie{{Title: "Something Else"}},
		})
	}))
	defer server.Close()

	client, err := NewClient("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	theaterCalled := false
	theaters := agent.Tool{
		Name: "find_theaters",
		Call: func(_ context.Context, _ map[string]any) (string, error) {
			theaterCalled = true
			return "", nil
		},
	}

	tool := client.MovieInCityTool(theaters, "IN", "Pune")
	result, err := tool.Call(context.Background(), map[string]any{"movie_title": "The Great Escape"})
	require.NoError(t, err)

	assert.Equal(t, "The Great Escape is not currently playing in theaters or not found.", result)
	assert.False(t, theaterCalled)
}

// TestToolEmptyResults は上映中作品がない場合の文言を確認します
func TestToolEmptyResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"page":        1,
			"total_pages": 1,
			"results":     []Movie{},
		})
	}))
	defer server.Close()

	client, err := NewClient("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	result, err := client.Tool("IN").Call(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "No movies found.", result)
}
