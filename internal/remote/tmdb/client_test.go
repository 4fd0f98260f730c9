package tmdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dom/kaf-catalog/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "k3y-do-not-leak"

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Popular(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/popular", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, testKey, r.URL.Query().Get("api_key"))
		w.Write([]byte(`{"page":2,"results":[{"id":550,"title":"Fight Club","poster_path":"/fc.jpg"},{"id":13,"title":"Forrest Gump"}]}`))
	})

	titles, err := NewClient(srv.URL, testKey, time.Second).Popular(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, titles, 2)
	assert.Equal(t, "550", titles[0].ID)
	assert.Equal(t, "Fight Club", titles[0].Title)
	assert.Equal(t, "/fc.jpg", titles[0].PosterPath)
	assert.Equal(t, "13", titles[1].ID)
}

func TestClient_PopularGenreIDs(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[{"id":603,"title":"The Matrix","genre_ids":[28,878]},{"id":1,"title":"Odd","genre_ids":[424242]}]}`))
	})

	titles, err := NewClient(srv.URL, testKey, time.Second).Popular(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, titles, 2)
	assert.Equal(t, []string{"Action", "Science Fiction"}, titles[0].Genres)
	assert.Empty(t, titles[1].Genres, "unknown ids are dropped")

	card := titles[0].Card()
	assert.Equal(t, []string{"Action", "Science Fiction"}, card.Genres)
}

func TestClient_SearchEncodesQuery(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/movie", r.URL.Path)
		assert.Equal(t, "the matrix & co", r.URL.Query().Get("query"))
		w.Write([]byte(`{"results":[]}`))
	})

	titles, err := NewClient(srv.URL, testKey, time.Second).Search(context.Background(), "the matrix & co")
	require.NoError(t, err)
	assert.NotNil(t, titles)
	assert.Empty(t, titles)
}

func TestClient_Movie(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/movie/603":
			w.Write([]byte(`{"id":603,"title":"The Matrix","release_date":"1999-03-30","genres":[{"id":28,"name":"Action"},{"id":878,"name":"Science Fiction"}]}`))
		case "/movie/500":
			w.WriteHeader(http.StatusInternalServerError)
		case "/movie/700":
			w.Write([]byte(`{"id":`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	client := NewClient(srv.URL, testKey, time.Second)

	tests := []struct {
		name    string
		id      string
		wantErr error
	}{
		{name: "found", id: "603"},
		{name: "not found", id: "404", wantErr: domain.ErrNotFound},
		{name: "non numeric id", id: "abc", wantErr: domain.ErrNotFound},
		{name: "server error", id: "500", wantErr: domain.ErrUpstream},
		{name: "truncated body", id: "700", wantErr: domain.ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, err := client.Movie(context.Background(), tt.id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.NotContains(t, err.Error(), testKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "The Matrix", title.Title)
			assert.Equal(t, []string{"Action", "Science Fiction"}, title.Genres)
		})
	}
}

func TestClient_MissingKey(t *testing.T) {
	calls := 0
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
	})

	_, err := NewClient(srv.URL, "", time.Second).Popular(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.Zero(t, calls)
}

func TestClient_TimeoutDoesNotLeakKey(t *testing.T) {
	release := make(chan struct{})
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient(srv.URL, testKey, time.Second).Popular(ctx, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.NotContains(t, err.Error(), testKey)
}
