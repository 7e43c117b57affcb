package main

import (
	"fmt"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/require"
)

func oneFileGist(name, rawURL string) gist {
	return gist{
		CreatedAt: "2020-01-01T00:00:00Z",
		UpdatedAt: "2020-01-02T00:00:00Z",
		Files:     gistFiles{{Name: name, Size: 1, RawURL: rawURL}},
	}
}

func TestUniqueNames(t *testing.T) {
	t.Run("second gist gets the suffix", func(t *testing.T) {
		d, err := newUserDir([]gist{
			oneFileGist("a.txt", "http://x/1"),
			oneFileGist("a.txt", "http://x/2"),
		}, nil)
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"a.txt", "a.txt-1"}, d.names())
		f, ok := d.lookup("a.txt")
		require.True(t, ok)
		require.Equal(t, "http://x/1", f.url)
		f, ok = d.lookup("a.txt-1")
		require.True(t, ok)
		require.Equal(t, "http://x/2", f.url)
	})
	t.Run("duplicates within one gist", func(t *testing.T) {
		d, err := newUserDir([]gist{{
			CreatedAt: "2020-01-01T00:00:00Z",
			UpdatedAt: "2020-01-02T00:00:00Z",
			Files: gistFiles{
				{Name: "x", Size: 1, RawURL: "http://x/1"},
				{Name: "x", Size: 2, RawURL: "http://x/2"},
			},
		}}, nil)
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"x", "x-1"}, d.names())
	})
	t.Run("suffix already taken by a real file", func(t *testing.T) {
		d, err := newUserDir([]gist{
			oneFileGist("x-1", "http://x/1"),
			oneFileGist("x", "http://x/2"),
			oneFileGist("x", "http://x/3"),
		}, nil)
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"x-1", "x", "x-2"}, d.names())
		f, _ := d.lookup("x-2")
		require.Equal(t, "http://x/3", f.url)
	})
	t.Run("n collisions follow gist order", func(t *testing.T) {
		f := func(n uint8) bool {
			count := int(n%20) + 1
			var gists []gist
			for i := 0; i < count; i++ {
				gists = append(gists, oneFileGist("x", fmt.Sprintf("http://x/%d", i)))
			}
			d, err := newUserDir(gists, nil)
			if err != nil || len(d.files) != count {
				return false
			}
			for i := 0; i < count; i++ {
				name := "x"
				if i > 0 {
					name = fmt.Sprintf("x-%d", i)
				}
				f, ok := d.lookup(name)
				if !ok || f.url != fmt.Sprintf("http://x/%d", i) {
					return false
				}
			}
			return true
		}
		if err := quick.Check(f, nil); err != nil {
			t.Error(err)
		}
	})
}

func TestNewUserDirRejectsMalformedGists(t *testing.T) {
	testCases := map[string]gist{
		"bad created_at": {
			CreatedAt: "",
			UpdatedAt: "2020-01-02T00:00:00Z",
			Files:     gistFiles{{Name: "x", Size: 1, RawURL: "http://x/x"}},
		},
		"bad updated_at": {
			CreatedAt: "2020-01-01T00:00:00Z",
			UpdatedAt: "   ",
			Files:     gistFiles{{Name: "x", Size: 1, RawURL: "http://x/x"}},
		},
		"missing raw_url": {
			CreatedAt: "2020-01-01T00:00:00Z",
			UpdatedAt: "2020-01-02T00:00:00Z",
			Files:     gistFiles{{Name: "x", Size: 1}},
		},
		"negative size": {
			CreatedAt: "2020-01-01T00:00:00Z",
			UpdatedAt: "2020-01-02T00:00:00Z",
			Files:     gistFiles{{Name: "x", Size: -1, RawURL: "http://x/x"}},
		},
	}
	for name, g := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := newUserDir([]gist{oneFileGist("ok", "http://x/ok"), g}, nil)
			require.Error(t, err)
		})
	}
}

func TestFileTimesComeFromTheGist(t *testing.T) {
	d, err := newUserDir([]gist{oneFileGist("a", "http://x/a")}, nil)
	require.NoError(t, err)
	f, ok := d.lookup("a")
	require.True(t, ok)
	require.Equal(t, int64(1577836800), f.ctime.Unix())
	require.Equal(t, int64(1577923200), f.mtime.Unix())
}
