/*
Command gistfs is a read-only FUSE interface to GitHub gists.

	gistfs [-u user1,user2] [--listen addr] [--tree] <mountpoint>

§ 1. Configuration

Gistfs is configured via $HOME/lib/gistfs/config like so:

	; cat $home/lib/gistfs/config
	{
		// Whose gists to show first. May be omitted when a token is set.
		"username": "your_login",
		"token": "redacted",
		"api_url": "https://api.github.com",
		"listen_address": "localhost:7732",
		"fetch_timeout": "30s",
	}

Comments and trailing commas are allowed. All keys are optional; the
token falls back to $GITHUB_TOKEN. Without a username, the login the
token belongs to is used. An empty fetch_timeout means file content
downloads never time out.

§ 2. File system structure and operation

The root directory contains a directory per user: the configured (or
authenticated) user plus those passed with -u. Users whose gists cannot
be listed at start-up are logged and left out; the rest are unaffected.

Each user directory contains one file per gist file, across all of the
user's gists. When two files share a name, the later one, in the order
the API lists gists, gets a "-1" suffix, the next "-2", and so on.

File sizes and times come from the gist listing. A file's content is
downloaded on its first read and kept until unmount. A failed download
is reported as an I/O error and retried on the next read.

The tree is built once at start-up and never refreshed. It is not
permitted to create, modify or remove anything.

With --listen, the same tree is also served over 9P, e.g. at
tcp!localhost!7732.
*/
package main
