//go:build !windows

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/pkg/errors"
)

// mountNode is a FUSE inode backed by a path in the gist tree.
type mountNode struct {
	fs.Inode
	gfs  *gistFS
	path string
}

var (
	_ = (fs.NodeLookuper)((*mountNode)(nil))
	_ = (fs.NodeGetattrer)((*mountNode)(nil))
	_ = (fs.NodeReaddirer)((*mountNode)(nil))
	_ = (fs.NodeOpener)((*mountNode)(nil))
	_ = (fs.NodeReader)((*mountNode)(nil))
)

func toErrno(err error) syscall.Errno {
	switch {
	case err == nil:
		return fs.OK
	case isNotFound(err):
		return syscall.ENOENT
	default:
		log.Printf("%v", err)
		return syscall.EIO
	}
}

func fillAttr(a attr, out *fuse.Attr) {
	out.Mode = a.Mode
	out.Nlink = a.Nlink
	out.Size = a.Size
	out.SetTimes(&a.Atime, &a.Mtime, &a.Ctime)
}

func (n *mountNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	childPath := path.Join(n.path, name)
	a, err := n.gfs.getattr(childPath)
	if err != nil {
		return nil, toErrno(err)
	}
	fillAttr(a, &out.Attr)
	child := &mountNode{gfs: n.gfs, path: childPath}
	return n.NewInode(ctx, child, fs.StableAttr{Mode: a.Mode & syscall.S_IFMT}), fs.OK
}

func (n *mountNode) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	a, err := n.gfs.getattr(n.path)
	if err != nil {
		return toErrno(err)
	}
	fillAttr(a, &out.Attr)
	return fs.OK
}

func (n *mountNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	names, err := n.gfs.readdir(n.path)
	if err != nil {
		return nil, toErrno(err)
	}
	entries := make([]fuse.DirEntry, 0, len(names))
	for _, name := range names {
		a, err := n.gfs.getattr(path.Join(n.path, name))
		if err != nil {
			continue
		}
		entries = append(entries, fuse.DirEntry{Name: name, Mode: a.Mode})
	}
	return fs.NewListDirStream(entries), fs.OK
}

func (n *mountNode) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EROFS
	}
	if err := n.gfs.open(n.path); err != nil {
		return nil, 0, toErrno(err)
	}
	return nil, fuse.FOPEN_KEEP_CACHE, fs.OK
}

func (n *mountNode) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	content, err := n.gfs.read(ctx, n.path)
	if err != nil {
		return nil, toErrno(err)
	}
	return fuse.ReadResultData(window(content, off, len(dest))), fs.OK
}

// mountAndServe mounts gfs read-only at mountpoint and serves it until
// interrupted.
func mountAndServe(gfs *gistFS, mountpoint string, debug bool) error {
	log.Printf("mounting at %s", color.HiCyanString(mountpoint))
	timeout := time.Second
	server, err := fs.Mount(mountpoint, &mountNode{gfs: gfs, path: "/"}, &fs.Options{
		MountOptions: fuse.MountOptions{
			Debug:   debug,
			Name:    "gistfs",
			FsName:  "gistfs",
			Options: []string{"ro"},
		},
		AttrTimeout:  &timeout,
		EntryTimeout: &timeout,
	})
	if err != nil {
		return errors.Wrap(err, "mount failed")
	}

	ch := make(chan os.Signal, 1)
	chErr := make(chan error, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		log.Printf("unmounting %s", mountpoint)
		if err := server.Unmount(); err != nil {
			chErr <- errors.Wrap(err, "unmount failed")
			return
		}
		chErr <- nil
	}()

	server.Wait()
	signal.Stop(ch)
	select {
	case err := <-chErr:
		return err
	default:
		return nil
	}
}
