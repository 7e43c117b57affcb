package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/lionkov/go9p/p"
	"github.com/lionkov/go9p/p/srv"
)

var (
	Eoff   = &p.Error{Err: "invalid dir read offset", Errornum: p.EINVAL}
	Esmall = &p.Error{Err: "too small read size for dir entry", Errornum: p.EINVAL}

	// Let's find out right at start-up whether these type assertions fail.
	Enoauth *p.Error = srv.Enoauth.(*p.Error)
	Enotdir *p.Error = srv.Enotdir.(*p.Error)
	Eperm   *p.Error = srv.Eperm.(*p.Error)

	owner string
	group string

	lastQIDPath uint64
)

func init() {
	if runtime.GOOS == "plan9" {
		owner = os.Getenv("user")
		group = owner
	} else {
		owner = p.OsUsers.Uid2User(os.Getuid()).Name()
		group = p.OsUsers.Gid2Group(os.Getgid()).Name()
	}
}

func nextQIDPath() uint64 {
	return atomic.AddUint64(&lastQIDPath, 1)
}

func newEIO(err error) *p.Error {
	return &p.Error{
		Errornum: p.EIO,
		Err:      fmt.Sprintf("%v", err),
	}
}

func respondError(r *srv.Req, err *p.Error) {
	log.Printf("Rerror: %v", err)
	r.RespondError(err)
}

// fidState is the Aux of a fid: where it points and, for directories,
// the entries being read.
type fidState struct {
	path string

	// Serialized directory entries and their boundaries, prepared when
	// a directory is read from offset zero.
	buffer     []byte
	boundaries []int
}

// ninepOps serves a gistFS over 9P.
type ninepOps struct {
	gfs *gistFS

	mu   sync.Mutex
	qids map[string]uint64
}

func newNinepOps(gfs *gistFS) *ninepOps {
	return &ninepOps{gfs: gfs, qids: make(map[string]uint64)}
}

// dir builds the 9P stat of the node at name, with a qid path that is
// stable for the life of the server.
func (ops *ninepOps) dir(name string) (*p.Dir, *p.Error) {
	a, err := ops.gfs.getattr(name)
	if err != nil {
		if isNotFound(err) {
			return nil, srv.Enoent
		}
		return nil, newEIO(err)
	}
	ops.mu.Lock()
	qpath, ok := ops.qids[name]
	if !ok {
		qpath = nextQIDPath()
		ops.qids[name] = qpath
	}
	ops.mu.Unlock()
	d := new(p.Dir)
	d.Name = path.Base(name)
	d.Uid = owner
	d.Gid = group
	d.Mode = a.Mode & 0o777
	d.Qid.Path = qpath
	if a.isDir() {
		d.Mode |= p.DMDIR
		d.Qid.Type = p.QTDIR
	} else {
		d.Length = a.Size
	}
	d.Mtime = uint32(a.Mtime.Unix())
	d.Atime = uint32(a.Atime.Unix())
	return d, nil
}

func (ops *ninepOps) Attach(r *srv.Req) {
	if r.Afid != nil {
		respondError(r, Enoauth)
		return
	}
	d, err := ops.dir("/")
	if err != nil {
		respondError(r, err)
		return
	}
	r.Fid.Aux = &fidState{path: "/"}
	r.RespondRattach(&d.Qid)
}

func (ops *ninepOps) Walk(r *srv.Req) {
	var walked []p.Qid
	cur := r.Fid.Aux.(*fidState).path
	for _, name := range r.Tc.Wname {
		d, err := ops.dir(cur)
		if err != nil {
			respondError(r, err)
			return
		}
		if d.Qid.Type&p.QTDIR == 0 {
			if len(walked) == 0 {
				respondError(r, Enotdir)
				return
			}
			break
		}
		next := path.Join(cur, name)
		child, err := ops.dir(next)
		if err != nil {
			break
		}
		cur = next
		walked = append(walked, child.Qid)
	}
	// Per walk(9p), an error should be returned
	// only if the very first name can't be walked.
	if len(walked) == 0 && len(r.Tc.Wname) > 0 {
		respondError(r, srv.Enoent)
		return
	}
	r.Newfid.Aux = &fidState{path: cur}
	r.RespondRwalk(walked)
}

func (ops *ninepOps) Open(r *srv.Req) {
	st := r.Fid.Aux.(*fidState)
	if r.Tc.Mode&3 != p.OREAD {
		respondError(r, Eperm)
		return
	}
	d, err := ops.dir(st.path)
	if err != nil {
		respondError(r, err)
		return
	}
	if err := ops.gfs.open(st.path); err != nil {
		respondError(r, newEIO(err))
		return
	}
	r.RespondRopen(&d.Qid, 0)
}

func (ops *ninepOps) Create(r *srv.Req) {
	respondError(r, Eperm)
}

func (ops *ninepOps) prepareDirEntries(st *fidState) *p.Error {
	names, err := ops.gfs.readdir(st.path)
	if err != nil {
		if isNotFound(err) {
			return srv.Enoent
		}
		return newEIO(err)
	}
	st.buffer = nil
	st.boundaries = nil
	end := 0
	for _, name := range names {
		d, perr := ops.dir(path.Join(st.path, name))
		if perr != nil {
			continue
		}
		dent := p.PackDir(d, false)
		st.buffer = append(st.buffer, dent...)
		end += len(dent)
		st.boundaries = append(st.boundaries, end)
	}
	return nil
}

func (ops *ninepOps) Read(r *srv.Req) {
	st := r.Fid.Aux.(*fidState)
	d, perr := ops.dir(st.path)
	if perr != nil {
		respondError(r, perr)
		return
	}
	offset := int(r.Tc.Offset)
	count := int(r.Tc.Count)
	if d.Qid.Type&p.QTDIR == 0 {
		content, err := ops.gfs.read(context.Background(), st.path)
		if err != nil {
			respondError(r, newEIO(err))
			return
		}
		r.RespondRread(window(content, int64(offset), count))
		return
	}
	if offset == 0 {
		if err := ops.prepareDirEntries(st); err != nil {
			respondError(r, err)
			return
		}
	}
	// The offset must be the end of one of the dir entries.
	if offset > 0 {
		i := sort.SearchInts(st.boundaries, offset)
		if i == len(st.boundaries) || st.boundaries[i] != offset {
			respondError(r, Eoff)
			return
		}
	}
	// We can't return truncated entries, so we may have to decrease count.
	j := sort.SearchInts(st.boundaries, offset+count)
	if j == len(st.boundaries) || st.boundaries[j] != offset+count {
		if j == 0 {
			count = 0
		} else {
			count = st.boundaries[j-1] - offset
		}
	}
	if count < 0 {
		respondError(r, Esmall)
		return
	}
	r.RespondRread(st.buffer[offset : offset+count])
}

func (ops *ninepOps) Write(r *srv.Req) {
	respondError(r, Eperm)
}

func (ops *ninepOps) Clunk(r *srv.Req) {
	r.RespondRclunk()
}

func (ops *ninepOps) Remove(r *srv.Req) {
	respondError(r, Eperm)
}

func (ops *ninepOps) Stat(r *srv.Req) {
	d, err := ops.dir(r.Fid.Aux.(*fidState).path)
	if err != nil {
		respondError(r, err)
		return
	}
	r.RespondRstat(d)
}

func (ops *ninepOps) Wstat(r *srv.Req) {
	respondError(r, Eperm)
}

// serveNinep exports gfs on a TCP address. It blocks.
func serveNinep(gfs *gistFS, addr string, debug bool) error {
	var s srv.Srv
	s.Dotu = false
	if debug {
		s.Debuglevel = srv.DbgPrintFcalls
	}
	s.Id = "gistfs"
	s.Start(newNinepOps(gfs))
	return s.StartNetListener("tcp", addr)
}
