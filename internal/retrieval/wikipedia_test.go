package retrieval

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newWikipediaTestServer(t *testing.T, handler http.HandlerFunc) *WikipediaClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewWikipediaClientWithBaseURL(srv.URL, zap.NewNop())
}

func TestWikipediaClient_Search(t *testing.T) {
	client := newWikipediaTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "query", q.Get("action"))
		assert.Equal(t, "search", q.Get("list"))
		assert.Equal(t, "moon landing", q.Get("srsearch"))
		assert.Equal(t, "5", q.Get("srlimit"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"query":{"search":[
			{"title":"Apollo 11","snippet":"first crewed landing"},
			{"title":"Moon landing","snippet":"arrival of a spacecraft"}
		]}}`))
	})

	articles, err := client.Search(context.Background(), "moon landing", 5)

	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "Apollo 11", articles[0].Title)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Apollo_11", articles[0].URL)
}

func TestWikipediaClient_Search_Empty(t *testing.T) {
	client := newWikipediaTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"query":{"search":[]}}`))
	})

	articles, err := client.Search(context.Background(), "zxqv nonsense", 5)

	require.NoError(t, err)
	assert.Empty(t, articles)
}

func TestWikipediaClient_FetchExtract(t *testing.T) {
	client := newWikipediaTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "extracts", q.Get("prop"))
		assert.Equal(t, "Apollo 11", q.Get("titles"))
		w.Write([]byte(`{"query":{"pages":{"1234":{"extract":"Apollo 11 was the first crewed Moon landing."}}}}`))
	})

	extract, err := client.FetchExtract(context.Background(), "Apollo 11")

	require.NoError(t, err)
	assert.Equal(t, "Apollo 11 was the first crewed Moon landing.", extract)
}

func TestWikipediaClient_FetchExtract_Missing(t *testing.T) {
	client := newWikipediaTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"query":{"pages":{"-1":{"extract":""}}}}`))
	})

	_, err := client.FetchExtract(context.Background(), "No Such Page")

	assert.Error(t, err)
}

func TestWikipediaClient_ServerError(t *testing.T) {
	client := newWikipediaTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Search(context.Background(), "anything", 5)

	assert.Error(t, err)
}
