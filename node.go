package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// File type bits, as in stat(2).
const (
	modeTypeDir  = 0o040000
	modeTypeFile = 0o100000

	dirMode  = modeTypeDir | 0o755
	fileMode = modeTypeFile | 0o444
)

type nodeKind int

const (
	rootKind nodeKind = iota
	userKind
	fileKind
)

// attr is the synthesized stat record of a node.
type attr struct {
	Mode  uint32
	Nlink uint32
	Size  uint64
	Atime time.Time
	Mtime time.Time
	Ctime time.Time
}

func (a attr) isDir() bool { return a.Mode&modeTypeDir != 0 }

// gistFile is a file of a gist. The content is fetched on first read and
// kept for the lifetime of the process.
type gistFile struct {
	url   string
	size  int64
	ctime time.Time
	mtime time.Time
	fetch contentFetcher

	mu      sync.Mutex
	fetched bool
	content []byte
}

func newGistFile(entry gistFileEntry, ctime, mtime time.Time, fetch contentFetcher) (*gistFile, error) {
	if entry.RawURL == "" {
		return nil, errors.Errorf("file %q: missing raw_url", entry.Name)
	}
	if entry.Size < 0 {
		return nil, errors.Errorf("file %q: negative size %d", entry.Name, entry.Size)
	}
	return &gistFile{
		url:   entry.RawURL,
		size:  entry.Size,
		ctime: ctime,
		mtime: mtime,
		fetch: fetch,
	}, nil
}

// attr reports the size declared by the API, which may differ from the
// length of the content once fetched.
func (f *gistFile) attr(now time.Time) attr {
	return attr{
		Mode:  fileMode,
		Nlink: 1,
		Size:  uint64(f.size),
		Atime: now,
		Mtime: f.mtime,
		Ctime: f.ctime,
	}
}

// read returns the whole content of the file. Concurrent first reads are
// serialized so that only one of them goes to the network; a failed fetch
// leaves the file unfetched.
func (f *gistFile) read(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetched {
		return f.content, nil
	}
	content, err := f.fetch.fetchContent(ctx, f.url)
	if err != nil {
		return nil, err
	}
	f.content = content
	f.fetched = true
	return f.content, nil
}

// userDir holds the gist files of one user, keyed by unique name.
type userDir struct {
	files map[string]*gistFile
}

// newUserDir flattens the gists of a user into a single directory.
// Gists are taken in the order given and files in the order they appear
// in their gist; a name already taken gets the first free "-N" suffix.
func newUserDir(gists []gist, fetch contentFetcher) (*userDir, error) {
	d := &userDir{files: make(map[string]*gistFile)}
	for i, g := range gists {
		ctime, err := parseTimestamp(g.CreatedAt)
		if err != nil {
			return nil, errors.Wrapf(err, "gist %d: created_at", i)
		}
		mtime, err := parseTimestamp(g.UpdatedAt)
		if err != nil {
			return nil, errors.Wrapf(err, "gist %d: updated_at", i)
		}
		for _, entry := range g.Files {
			f, err := newGistFile(entry, ctime, mtime, fetch)
			if err != nil {
				return nil, errors.Wrapf(err, "gist %d", i)
			}
			d.files[uniqueName(d.files, entry.Name)] = f
		}
	}
	return d, nil
}

func uniqueName(taken map[string]*gistFile, raw string) string {
	name := raw
	for i := 1; ; i++ {
		if _, ok := taken[name]; !ok {
			return name
		}
		name = fmt.Sprintf("%s-%d", raw, i)
	}
}

func (d *userDir) attr(now time.Time) attr {
	return attr{
		Mode:  dirMode,
		Nlink: uint32(len(d.files)),
		Size:  1,
		Atime: now,
		Mtime: now,
		Ctime: now,
	}
}

func (d *userDir) names() []string {
	names := make([]string, 0, len(d.files))
	for name := range d.files {
		names = append(names, name)
	}
	return names
}

func (d *userDir) lookup(name string) (*gistFile, bool) {
	f, ok := d.files[name]
	return f, ok
}
