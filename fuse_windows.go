//go:build windows

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/winfsp/cgofuse/fuse"
)

// hostFS adapts the gist tree to the path-addressed cgofuse interface.
type hostFS struct {
	fuse.FileSystemBase
	gfs *gistFS
}

var _ fuse.FileSystemInterface = (*hostFS)(nil)

func toErrno(err error) int {
	if isNotFound(err) {
		return -fuse.ENOENT
	}
	log.Printf("%v", err)
	return -fuse.EIO
}

func fillStat(a attr, stat *fuse.Stat_t) {
	stat.Mode = a.Mode
	stat.Nlink = a.Nlink
	stat.Size = int64(a.Size)
	stat.Atim = fuse.NewTimespec(a.Atime)
	stat.Mtim = fuse.NewTimespec(a.Mtime)
	stat.Ctim = fuse.NewTimespec(a.Ctime)
}

func (h *hostFS) Getattr(path string, stat *fuse.Stat_t, fh uint64) int {
	a, err := h.gfs.getattr(path)
	if err != nil {
		return toErrno(err)
	}
	fillStat(a, stat)
	return 0
}

func (h *hostFS) Opendir(path string) (int, uint64) {
	a, err := h.gfs.getattr(path)
	if err != nil {
		return toErrno(err), ^uint64(0)
	}
	if !a.isDir() {
		return -fuse.ENOTDIR, ^uint64(0)
	}
	return 0, 0
}

func (h *hostFS) Readdir(path string,
	fill func(name string, stat *fuse.Stat_t, ofst int64) bool,
	ofst int64,
	fh uint64,
) int {
	names, err := h.gfs.readdir(path)
	if err != nil {
		return toErrno(err)
	}
	fill(".", nil, 0)
	fill("..", nil, 0)
	for _, name := range names {
		if !fill(name, nil, 0) {
			break
		}
	}
	return 0
}

func (h *hostFS) Open(path string, flags int) (int, uint64) {
	if flags&(fuse.O_WRONLY|fuse.O_RDWR) != 0 {
		return -fuse.EROFS, ^uint64(0)
	}
	if err := h.gfs.open(path); err != nil {
		return toErrno(err), ^uint64(0)
	}
	return 0, 0
}

func (h *hostFS) Read(path string, buff []byte, ofst int64, fh uint64) int {
	content, err := h.gfs.read(context.Background(), path)
	if err != nil {
		return toErrno(err)
	}
	return copy(buff, window(content, ofst, len(buff)))
}

func mountAndServe(gfs *gistFS, mountpoint string, debug bool) error {
	log.Printf("mounting at %s", color.HiCyanString(mountpoint))
	host := fuse.NewFileSystemHost(&hostFS{gfs: gfs})
	args := []string{"-o", "ro", "--FileSystemName=gistfs"}
	if debug {
		args = append(args, "-o", "debug")
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		log.Printf("unmounting %s", mountpoint)
		host.Unmount()
	}()

	if !host.Mount(mountpoint, args) {
		return errors.Errorf("failed to mount %s", mountpoint)
	}
	return nil
}
