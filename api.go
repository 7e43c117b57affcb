package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/markusmobius/go-dateparser"
	"github.com/pkg/errors"
)

const (
	defaultAPIURL = "https://api.github.com"
	apiVersion    = "2022-11-28"
	userAgent     = "gistfs"
	gistsPerPage  = 100
)

// gist is one entry of a user's gist listing, reduced to what the file
// system needs.
type gist struct {
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
	Files     gistFiles `json:"files"`
}

type gistFileEntry struct {
	Name   string `json:"-"`
	Size   int64  `json:"size"`
	RawURL string `json:"raw_url"`
}

// gistFiles keeps the files of a gist in the order the API serves them.
type gistFiles []gistFileEntry

func (files *gistFiles) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return errors.WithStack(err)
	}
	if tok == nil {
		*files = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.Errorf("files: expected object, got %v", tok)
	}
	var out gistFiles
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return errors.WithStack(err)
		}
		name, ok := tok.(string)
		if !ok {
			return errors.Errorf("files: expected name, got %v", tok)
		}
		entry := gistFileEntry{Name: name}
		if err := dec.Decode(&entry); err != nil {
			return errors.Wrapf(err, "files: %q", name)
		}
		out = append(out, entry)
	}
	if _, err := dec.Token(); err != nil {
		return errors.WithStack(err)
	}
	*files = out
	return nil
}

// gistLister is the part of the API the file system is built from.
type gistLister interface {
	listGists(ctx context.Context, username string) ([]gist, error)
}

// contentFetcher retrieves the full content of a file.
type contentFetcher interface {
	fetchContent(ctx context.Context, rawURL string) ([]byte, error)
}

type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(c *fsConfig) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(c.APIURL, "/"),
		token:   c.Token,
		http:    &http.Client{Timeout: c.fetchTimeout},
	}
}

func (client *apiClient) get(ctx context.Context, path string, params url.Values, v interface{}) error {
	u := client.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	request.Header.Set("Accept", "application/vnd.github+json")
	request.Header.Set("X-GitHub-Api-Version", apiVersion)
	request.Header.Set("User-Agent", userAgent)
	if client.token != "" {
		request.Header.Set("Authorization", "Bearer "+client.token)
	}
	response, err := client.http.Do(request)
	if err != nil {
		return errors.WithStack(err)
	}
	defer response.Body.Close()
	if response.StatusCode == http.StatusNotFound {
		return errors.WithStack(errUserNotFound)
	}
	if response.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return errors.Errorf("GET %s: %s: %s", path, response.Status, bytes.TrimSpace(body))
	}
	if err := json.NewDecoder(response.Body).Decode(v); err != nil {
		return errors.Wrapf(err, "GET %s", path)
	}
	return nil
}

// listGists pages through all gists of username, most recent first as
// the API returns them.
func (client *apiClient) listGists(ctx context.Context, username string) ([]gist, error) {
	path := "/users/" + url.PathEscape(username) + "/gists"
	params := url.Values{}
	params.Set("per_page", fmt.Sprint(gistsPerPage))
	var gists []gist
	for page := 1; ; page++ {
		params.Set("page", fmt.Sprint(page))
		var batch []gist
		if err := client.get(ctx, path, params, &batch); err != nil {
			return nil, err
		}
		gists = append(gists, batch...)
		if len(batch) < gistsPerPage {
			return gists, nil
		}
	}
}

// authenticatedUser returns the login the token belongs to.
func (client *apiClient) authenticatedUser(ctx context.Context) (string, error) {
	if client.token == "" {
		return "", errors.New("no token to identify the user with")
	}
	var user struct {
		Login string `json:"login"`
	}
	if err := client.get(ctx, "/user", nil, &user); err != nil {
		return "", err
	}
	if user.Login == "" {
		return "", errors.New("empty login in /user response")
	}
	return user.Login, nil
}

// fetchContent downloads a raw file. The token is not sent along, raw
// URLs live on a different host.
func (client *apiClient) fetchContent(ctx context.Context, rawURL string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &remoteFetchError{URL: rawURL, Err: errors.WithStack(err)}
	}
	request.Header.Set("User-Agent", userAgent)
	response, err := client.http.Do(request)
	if err != nil {
		return nil, &remoteFetchError{URL: rawURL, Err: errors.WithStack(err)}
	}
	defer response.Body.Close()
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, &remoteFetchError{URL: rawURL, StatusCode: response.StatusCode}
	}
	content, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, &remoteFetchError{URL: rawURL, StatusCode: response.StatusCode, Err: errors.WithStack(err)}
	}
	return content, nil
}

// parseTimestamp converts an API date-time to a time with one second
// resolution. The API speaks RFC 3339; anything else goes through the
// lenient parser.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return time.Unix(t.Unix(), 0), nil
	}
	if strings.TrimSpace(s) == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	date, err := dateparser.Parse(&dateparser.Configuration{
		DefaultTimezone: time.UTC,
		CurrentTime:     time.Now(),
	}, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "timestamp %q", s)
	}
	return time.Unix(date.Time.Unix(), 0), nil
}
