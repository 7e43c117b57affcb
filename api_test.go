package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler, token string) *apiClient {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := newAPIClient(&fsConfig{APIURL: server.URL + "/", Token: token})
	client.http = server.Client()
	return client
}

func TestGistFilesKeepOrder(t *testing.T) {
	var g gist
	err := json.Unmarshal([]byte(`{
		"created_at": "2020-01-01T00:00:00Z",
		"updated_at": "2020-01-02T00:00:00Z",
		"files": {
			"zeta.txt": {"filename": "zeta.txt", "size": 3, "raw_url": "http://x/zeta", "language": null},
			"alpha.txt": {"filename": "alpha.txt", "size": 5, "raw_url": "http://x/alpha", "truncated": false},
			"mid.txt": {"size": 7, "raw_url": "http://x/mid"}
		}
	}`), &g)
	require.NoError(t, err)
	require.Equal(t, gistFiles{
		{Name: "zeta.txt", Size: 3, RawURL: "http://x/zeta"},
		{Name: "alpha.txt", Size: 5, RawURL: "http://x/alpha"},
		{Name: "mid.txt", Size: 7, RawURL: "http://x/mid"},
	}, g.Files)

	require.NoError(t, json.Unmarshal([]byte(`{"files": null}`), &g))
	require.Nil(t, g.Files)

	require.Error(t, json.Unmarshal([]byte(`{"files": []}`), &g))
}

func TestListGists(t *testing.T) {
	const total = gistsPerPage + 3
	var pages []int
	mux := http.NewServeMux()
	mux.HandleFunc("/users/alice/gists", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		require.Equal(t, apiVersion, r.Header.Get("X-GitHub-Api-Version"))
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.Equal(t, strconv.Itoa(gistsPerPage), r.URL.Query().Get("per_page"))
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		pages = append(pages, page)
		start := (page - 1) * gistsPerPage
		end := start + gistsPerPage
		if end > total {
			end = total
		}
		var out []map[string]interface{}
		for i := start; i < end; i++ {
			name := fmt.Sprintf("f%d", i)
			out = append(out, map[string]interface{}{
				"created_at": "2020-01-01T00:00:00Z",
				"updated_at": "2020-01-02T00:00:00Z",
				"files": map[string]interface{}{
					name: map[string]interface{}{"size": i, "raw_url": "http://x/" + name},
				},
			})
		}
		require.NoError(t, json.NewEncoder(w).Encode(out))
	})
	client := newTestClient(t, mux, "secret")

	gists, err := client.listGists(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, gists, total)
	require.Equal(t, []int{1, 2}, pages)
	require.Equal(t, "f0", gists[0].Files[0].Name)
	require.Equal(t, "http://x/f102", gists[total-1].Files[0].RawURL)
}

func TestListGistsUnknownUser(t *testing.T) {
	client := newTestClient(t, http.NotFoundHandler(), "")
	_, err := client.listGists(context.Background(), "nobody")
	require.True(t, errors.Is(err, errUserNotFound))
}

func TestListGistsServerError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		http.Error(w, "boom", http.StatusInternalServerError)
	}), "")
	_, err := client.listGists(context.Background(), "alice")
	require.Error(t, err)
	require.False(t, errors.Is(err, errUserNotFound))
	require.Contains(t, err.Error(), "boom")
}

func TestListGistsMalformed(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"not": "a list"}`)
	}), "")
	_, err := client.listGists(context.Background(), "alice")
	require.Error(t, err)
}

func TestAuthenticatedUser(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"login": "alice", "id": 1}`)
	})
	client := newTestClient(t, mux, "secret")
	login, err := client.authenticatedUser(context.Background())
	require.NoError(t, err)
	require.Equal(t, "alice", login)

	client.token = ""
	_, err = client.authenticatedUser(context.Background())
	require.Error(t, err)
}

func TestFetchContent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/raw/ok", func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		fmt.Fprint(w, "hello\n")
	})
	mux.HandleFunc("/raw/gone", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	client := newAPIClient(&fsConfig{APIURL: server.URL, Token: "secret"})
	client.http = server.Client()

	content, err := client.fetchContent(context.Background(), server.URL+"/raw/ok")
	require.NoError(t, err)
	require.Equal(t, "hello\n", string(content))

	_, err = client.fetchContent(context.Background(), server.URL+"/raw/gone")
	var rerr *remoteFetchError
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, http.StatusGone, rerr.StatusCode)

	_, err = client.fetchContent(context.Background(), "http://\x7f")
	require.True(t, isRemoteFetchError(err))
}

func TestParseTimestamp(t *testing.T) {
	ts, err := parseTimestamp("2020-01-02T00:00:00Z")
	require.NoError(t, err)
	require.Equal(t, int64(1577923200), ts.Unix())

	ts, err = parseTimestamp("2020-01-02T01:00:00+01:00")
	require.NoError(t, err)
	require.Equal(t, int64(1577923200), ts.Unix())

	ts, err = parseTimestamp("2020-01-02T00:00:00.750Z")
	require.NoError(t, err)
	require.Equal(t, int64(1577923200), ts.Unix())

	_, err = parseTimestamp("")
	require.Error(t, err)
}
