package places

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFindTheaters は検索クエリの組み立てと結果のデコードを確認します
func TestFindTheaters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "movie theaters in Pune", r.URL.Query().Get("query"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		json.NewEncoder(w).Encode(map[string]any{
			"results": []Place{
				{Name: "PVR Cinemas", FormattedAddress: "MG Road, Pune", Rating: 4.3, UserRatingsTotal: 1200},
				{Name: "INOX", FormattedAddress: "FC Road, Pune", Rating: 4.1, UserRatingsTotal: 800},
			},
		})
	}))
	defer server.Close()

	client, err := NewClient("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	theaters, err := client.FindTheaters(context.Background(), "Pune")
	require.NoError(t, err)
	require.Len(t, theaters, 2)
	assert.Equal(t, "PVR Cinemas", theaters[0].Name)
	assert.Equal(t, 4.3, theaters[0].Rating)
}

// TestFindTheatersCapsResults は結果が上限件数で打ち切られることを確認します
func TestFindTheatersCapsResults(t *testing.T) {
	many := make([]Place, maxResults+5)
	for i := range many {
		many[i] = Place{Name: "Theater"}
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"results": many})
	}))
	defer server.Close()

	client, err := NewClient("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	theaters, err := client.FindTheaters(context.Background(), "Pune")
	require.NoError(t, err)
	assert.Len(t, theaters, maxResults)
}

// TestFindTheatersAPIError はAPIエラーがステータスコード付きで返ることを確認します
func TestFindTheatersAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client, err := NewClient("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = client.FindTheaters(context.Background(), "Pune")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

// TestNewClientRequiresAPIKey はAPIキー未指定をエラーにすることを確認します
func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)
}

// TestToolUsesDefaultCity は引数未指定時にデフォルト都市が使われることを確認します
func TestToolUsesDefaultCity(t *testing.T) {
	var query string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("query")
		json.NewEncoder(w).Encode(map[string]any{
			"results": []Place{{Name: "City Pride", FormattedAddress: "Pune", Rating: 4.0, UserRatingsTotal: 500}},
		})
	}))
	defer server.Close()

	client, err := NewClient("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	tool := client.Tool("Pune")
	require.Equal(t, "find_theaters", tool.Name)

	result, err := tool.Call(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "movie theaters in Pune", query)
	assert.Contains(t, result, "Found 1 theaters near Pune:")
	assert.Contains(t, result, "1. City Pride")

	// 引数で都市を上書きできる
	_, err = tool.Call(context.Background(), map[string]any{"city": "Mumbai"})
	require.NoError(t, err)
	assert.Equal(t, "movie theaters in Mumbai", query)
}

// TestToolEmptyResults は該当なしの場合の文言を確認します
func TestToolEmptyResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"results": []Place{}})
	}))
	defer server.Close()

	client, err := NewClient("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	result, err := client.Tool("Pune").Call(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "No theaters found.", result)
}
