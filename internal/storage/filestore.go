// Package storage implements the per-subject ledger file layout.
//
// Each subject owns a directory under the ledger root:
//
//	<root>/<kind>/<id>/main.bean   user's main ledger, root of the include graph
//	<root>/<kind>/<id>/trans.bean  platform-owned segment (corrective entries)
//	<root>/<kind>/<id>/sync/       externally synced ledger tree
//
// The platform only ever appends to trans.bean or rewrites it line by
// line; main.bean is touched once, to register the include.
package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	mainFile    = "main.bean"
	segmentFile = "trans.bean"
	syncDir     = "sync"
)

// FileStore reads and mutates subject ledgers under a root directory.
type FileStore struct {
	root string
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

func (s *FileStore) subjectDir(kind, id string) string {
	return filepath.Join(s.root, kind, id)
}

// MainPath returns the path of the subject's main ledger file, the entry
// point for parsing the full ledger.
func (s *FileStore) MainPath(kind, id string) string {
	return filepath.Join(s.subjectDir(kind, id), mainFile)
}

// SegmentPath returns the path of the platform-owned segment.
func (s *FileStore) SegmentPath(kind, id string) string {
	return filepath.Join(s.subjectDir(kind, id), segmentFile)
}

// ModTime returns the newest modification time across the subject's ledger
// tree. Used as a cache key component by the balance reader.
func (s *FileStore) ModTime(kind, id string) (time.Time, error) {
	var newest time.Time
	err := filepath.WalkDir(s.subjectDir(kind, id), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}
	return newest, nil
}

// AppendDirectives appends directive strings to the platform segment,
// creating the segment and registering it in the main ledger's include
// list on first write.
func (s *FileStore) AppendDirectives(kind, id string, directives []string) error {
	if len(directives) == 0 {
		return nil
	}
	dir := s.subjectDir(kind, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := s.ensureInclude(kind, id); err != nil {
		return err
	}

	f, err := os.OpenFile(s.SegmentPath(kind, id), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, d := range directives {
		if _, err := f.WriteString(d + "\n\n"); err != nil {
			return err
		}
	}
	return nil
}

// ensureInclude makes sure main.bean exists and includes the platform
// segment exactly once.
func (s *FileStore) ensureInclude(kind, id string) error {
	include := fmt.Sprintf("include %q", segmentFile)
	mainPath := s.MainPath(kind, id)

	data, err := os.ReadFile(mainPath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == include {
			return nil
		}
	}

	f, err := os.OpenFile(mainPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if len(data) > 0 && !strings.HasSuffix(string(data), "\n") {
		if _, err := f.WriteString("\n"); err != nil {
			return err
		}
	}
	_, err = f.WriteString(include + "\n")
	return err
}

// ReadSegment returns the platform segment split into lines. A missing
// segment reads as empty.
func (s *FileStore) ReadSegment(kind, id string) ([]string, error) {
	data, err := os.ReadFile(s.SegmentPath(kind, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n"), nil
}

// RewriteSegment atomically replaces the platform segment's lines.
func (s *FileStore) RewriteSegment(kind, id string, lines []string) error {
	path := s.SegmentPath(kind, id)
	tmp, err := os.CreateTemp(filepath.Dir(path), segmentFile+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadExternalTree returns the paths of the externally synced ledger
// files, sorted for deterministic processing. An absent sync directory is
// an empty tree.
func (s *FileStore) ReadExternalTree(kind, id string) ([]string, error) {
	base := filepath.Join(s.subjectDir(kind, id), syncDir)
	var paths []string
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".bean") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
