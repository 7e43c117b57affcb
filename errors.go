package main

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// Returned for any path that does not resolve to the root, a user
	// directory or a gist file.
	errNotFound = errors.New("no such file or directory")

	// Returned by the API client when listing gists of a user that does
	// not exist.
	errUserNotFound = errors.New("user not found")
)

// userLoadError is what happens to a configured user whose gists could
// not be listed or turned into a directory. It is contained at start-up:
// the user is left out of the root directory.
type userLoadError struct {
	Username string
	Err      error
}

func (e *userLoadError) Error() string {
	return fmt.Sprintf("invalid user %q: %v", e.Username, e.Err)
}

func (e *userLoadError) Cause() error  { return e.Err }
func (e *userLoadError) Unwrap() error { return e.Err }

// remoteFetchError means the content of a file could not be retrieved.
// Nothing is cached, so the next read tries again.
type remoteFetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *remoteFetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetching %s: unexpected status %d", e.URL, e.StatusCode)
}

func (e *remoteFetchError) Cause() error  { return e.Err }
func (e *remoteFetchError) Unwrap() error { return e.Err }

func isNotFound(err error) bool {
	return errors.Is(err, errNotFound)
}

func isRemoteFetchError(err error) bool {
	var rerr *remoteFetchError
	return errors.As(err, &rerr)
}
