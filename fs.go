package main

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentLoads bounds the gist listings in flight at start-up.
const maxConcurrentLoads = 4

// gistFS is the tree handed to the FUSE and 9P servers. It is fully built
// by newGistFS and never changes afterwards, except for the content
// caches of the files.
type gistFS struct {
	users map[string]*userDir
	root  attr
	now   func() time.Time
}

// resolved is the outcome of a successful path resolution.
type resolved struct {
	kind nodeKind
	user *userDir
	file *gistFile
}

// newGistFS loads the gists of every user in usernames. A user whose gists
// cannot be loaded is logged and left out.
func newGistFS(ctx context.Context, lister gistLister, fetch contentFetcher, usernames []string) *gistFS {
	now := time.Now()
	gfs := &gistFS{
		users: make(map[string]*userDir),
		root: attr{
			Mode:  dirMode,
			Nlink: 2,
			Atime: now,
			Mtime: now,
			Ctime: now,
		},
		now: time.Now,
	}
	usernames = dedupUsernames(usernames)
	dirs := make([]*userDir, len(usernames))
	errs := make([]error, len(usernames))
	var g errgroup.Group
	g.SetLimit(maxConcurrentLoads)
	for i, username := range usernames {
		i, username := i, username
		g.Go(func() error {
			dirs[i], errs[i] = loadUser(ctx, lister, fetch, username)
			return nil
		})
	}
	_ = g.Wait()
	for i, username := range usernames {
		if errs[i] != nil {
			log.Printf("%v", errs[i])
			continue
		}
		gfs.users[username] = dirs[i]
	}
	return gfs
}

func loadUser(ctx context.Context, lister gistLister, fetch contentFetcher, username string) (*userDir, error) {
	gists, err := lister.listGists(ctx, username)
	if err != nil {
		return nil, &userLoadError{Username: username, Err: err}
	}
	dir, err := newUserDir(gists, fetch)
	if err != nil {
		return nil, &userLoadError{Username: username, Err: err}
	}
	return dir, nil
}

func dedupUsernames(usernames []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, u := range usernames {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

// resolve maps a slash-separated path to a user directory or a file. The
// tree is exactly two levels deep; the root itself is handled by callers.
func (gfs *gistFS) resolve(path string) (resolved, error) {
	parts := strings.Split(path, "/")[1:]
	switch len(parts) {
	case 1:
		if user, ok := gfs.users[parts[0]]; ok {
			return resolved{kind: userKind, user: user}, nil
		}
	case 2:
		if user, ok := gfs.users[parts[0]]; ok {
			if file, ok := user.lookup(parts[1]); ok {
				return resolved{kind: fileKind, user: user, file: file}, nil
			}
		}
	}
	return resolved{}, errors.WithStack(errNotFound)
}

func (gfs *gistFS) getattr(path string) (attr, error) {
	if path == "/" {
		return gfs.root, nil
	}
	r, err := gfs.resolve(path)
	if err != nil {
		return attr{}, err
	}
	switch r.kind {
	case userKind:
		return r.user.attr(gfs.now()), nil
	default:
		return r.file.attr(gfs.now()), nil
	}
}

// readdir returns the names in a directory, sorted.
func (gfs *gistFS) readdir(path string) ([]string, error) {
	var names []string
	if path == "/" {
		for username := range gfs.users {
			names = append(names, username)
		}
	} else {
		r, err := gfs.resolve(path)
		if err != nil {
			return nil, err
		}
		if r.kind != userKind {
			return nil, errors.WithStack(errNotFound)
		}
		names = r.user.names()
	}
	sort.Strings(names)
	return names, nil
}

// read returns the whole content of the file at path. Windowing by offset
// and size is left to the servers.
func (gfs *gistFS) read(ctx context.Context, path string) ([]byte, error) {
	r, err := gfs.resolve(path)
	if err != nil {
		return nil, err
	}
	if r.kind != fileKind {
		return nil, errors.WithStack(errNotFound)
	}
	return r.file.read(ctx)
}

// open keeps no per-handle state.
func (gfs *gistFS) open(string) error {
	return nil
}

// window slices content the way a read at off for size bytes sees it.
func window(content []byte, off int64, size int) []byte {
	if off < 0 || off >= int64(len(content)) {
		return nil
	}
	end := off + int64(size)
	if end > int64(len(content)) {
		end = int64(len(content))
	}
	return content[off:end]
}
