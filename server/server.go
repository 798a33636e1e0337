// Package server maps GET/PUT/DELETE on a slash-delimited path to
// engine calls. Mutating requests run under one coarse transaction:
// begin, engine calls, commit on success, rollback on the first
// failure. Requests are served one at a time; the engine assumes
// exclusive access to the device.
package server

import (
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mit-pdos/go-journal/util"
	"github.com/tchajed/goose/machine/disk"

	"github.com/ufslab/ufsd/common"
	"github.com/ufslab/ufsd/dir"
	"github.com/ufslab/ufsd/fs"
	"github.com/ufslab/ufsd/txdisk"
	"github.com/ufslab/ufsd/util/stats"
)

const (
	getOp int = iota
	putOp
	deleteOp
	numOps
)

var opNames = []string{"GET", "PUT", "DELETE"}

type Server struct {
	mu   sync.Mutex
	td   *txdisk.Disk
	fsys *fs.FileSys
	ops  [numOps]stats.Op
}

func New(d disk.Disk) *Server {
	td := txdisk.New(d)
	return &Server{td: td, fsys: fs.New(td)}
}

func (srv *Server) FileSys() *fs.FileSys {
	return srv.fsys
}

// splitPath drops empty components and the leading service prefix.
func splitPath(p string) []string {
	var comps []string
	for _, c := range strings.Split(p, "/") {
		if c != "" {
			comps = append(comps, c)
		}
	}
	if len(comps) == 0 {
		return nil
	}
	return comps[1:]
}

func status(err error) int {
	switch {
	case errors.Is(err, common.ErrNotEnoughSpace):
		return http.StatusInsufficientStorage
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrInvalidType):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func (srv *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqid := uuid.NewString()
	util.DPrintf(1, "server: req %s %s %s\n", reqid, r.Method, r.URL.Path)
	srv.mu.Lock()
	defer srv.mu.Unlock()
	switch r.Method {
	case http.MethodGet:
		defer srv.ops[getOp].Record(time.Now())
		srv.get(w, r)
	case http.MethodPut:
		defer srv.ops[putOp].Record(time.Now())
		srv.put(w, r)
	case http.MethodDelete:
		defer srv.ops[deleteOp].Record(time.Now())
		srv.delete(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// walk resolves components from the root, returning the final inode.
func (srv *Server) walk(comps []string) (common.Inum, error) {
	cur := common.ROOTINUM
	for _, c := range comps {
		next, err := srv.fsys.Lookup(cur, c)
		if err != nil {
			return common.ROOTINUM, err
		}
		cur = next
	}
	return cur, nil
}

func (srv *Server) get(w http.ResponseWriter, r *http.Request) {
	comps := splitPath(r.URL.Path)
	target, err := srv.walk(comps)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	ip, err := srv.fsys.Stat(target)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	switch {
	case ip.IsFile():
		data, err := srv.fsys.Read(target, ip.Size)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	case ip.IsDir():
		body, err := srv.listDir(target, ip.Size)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// listDir renders the sorted entry names, excluding "." and "..", with
// a trailing slash on subdirectories.
func (srv *Server) listDir(inum common.Inum, size uint64) (string, error) {
	data, err := srv.fsys.Read(inum, size)
	if err != nil {
		return "", err
	}
	var names []string
	for off := uint64(0); off+common.DIRENTSZ <= uint64(len(data)); off += common.DIRENTSZ {
		de := dir.GetEnt(data, off/common.DIRENTSZ)
		if de.Name == "." || de.Name == ".." {
			continue
		}
		ip, err := srv.fsys.Stat(de.Inum)
		if err != nil {
			continue
		}
		name := de.Name
		if ip.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func (srv *Server) put(w http.ResponseWriter, r *http.Request) {
	comps := splitPath(r.URL.Path)
	if len(comps) == 0 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, int64(common.MAXFILESZ)+1))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	srv.td.Begin()
	fail := func(code int) {
		srv.td.Rollback()
		http.Error(w, http.StatusText(code), code)
	}

	cur := common.ROOTINUM
	for _, c := range comps[:len(comps)-1] {
		next, err := srv.fsys.Lookup(cur, c)
		if errors.Is(err, common.ErrNotFound) {
			next, err = srv.fsys.Create(cur, common.KindDir, c)
			if err != nil {
				fail(status(err))
				return
			}
		} else if err != nil {
			fail(http.StatusBadRequest)
			return
		} else {
			ip, err := srv.fsys.Stat(next)
			if err != nil || !ip.IsDir() {
				fail(http.StatusConflict)
				return
			}
		}
		cur = next
	}

	name := comps[len(comps)-1]
	target, err := srv.fsys.Lookup(cur, name)
	if err == nil {
		if _, err := srv.fsys.Write(target, body); err != nil {
			fail(status(err))
			return
		}
	} else if errors.Is(err, common.ErrNotFound) {
		target, err = srv.fsys.Create(cur, common.KindFile, name)
		if err != nil {
			fail(status(err))
			return
		}
		if _, err := srv.fsys.Write(target, body); err != nil {
			fail(status(err))
			return
		}
	} else {
		fail(http.StatusBadRequest)
		return
	}

	srv.td.Commit()
	w.WriteHeader(http.StatusOK)
}

func (srv *Server) delete(w http.ResponseWriter, r *http.Request) {
	comps := splitPath(r.URL.Path)
	if len(comps) == 0 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	parent := common.ROOTINUM
	cur := common.ROOTINUM
	for _, c := range comps {
		parent = cur
		next, err := srv.fsys.Lookup(cur, c)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		cur = next
	}

	srv.td.Begin()
	if err := srv.fsys.Unlink(parent, comps[len(comps)-1]); err != nil {
		srv.td.Rollback()
		code := status(err)
		http.Error(w, http.StatusText(code), code)
		return
	}
	srv.td.Commit()
	w.WriteHeader(http.StatusOK)
}

func (srv *Server) WriteStats(w io.Writer) {
	stats.WriteTable(opNames, srv.ops[:], w)
}
