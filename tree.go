package main

import (
	"fmt"
	"path"

	"github.com/disiqueira/gotree/v3"
)

// renderTree draws the loaded users and their files, with the sizes the
// API declared. It does not fetch any content.
func renderTree(gfs *gistFS, rootLabel string) string {
	tree := gotree.New(rootLabel)
	users, _ := gfs.readdir("/")
	for _, username := range users {
		userPath := path.Join("/", username)
		dir := tree.Add(username + "/")
		names, err := gfs.readdir(userPath)
		if err != nil {
			continue
		}
		for _, name := range names {
			a, err := gfs.getattr(path.Join(userPath, name))
			if err != nil {
				continue
			}
			dir.Add(fmt.Sprintf("%s (%d bytes)", name, a.Size))
		}
	}
	return tree.Print()
}
