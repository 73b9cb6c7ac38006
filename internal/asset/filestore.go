package asset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Ext is the file extension of prefab documents in a FileStore.
const Ext = ".prefab"

// FileStore keeps one file per asset in a directory.
type FileStore struct {
	dir string
}

// NewFileStore opens dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create store dir: %v", ErrPersistence, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Dir() string { return s.dir }

// Path returns the file backing id.
func (s *FileStore) Path(id string) string {
	return filepath.Join(s.dir, id+Ext)
}

// IDFromPath returns the asset id stored at path, if path is a document of
// this store.
func (s *FileStore) IDFromPath(path string) (string, bool) {
	if filepath.Dir(path) != filepath.Clean(s.dir) || filepath.Ext(path) != Ext {
		return "", false
	}
	id := strings.TrimSuffix(filepath.Base(path), Ext)
	if ValidateID(id) != nil {
		return "", false
	}
	return id, true
}

func (s *FileStore) Load(id string) (*Document, Revision, error) {
	if err := ValidateID(id); err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", fmt.Errorf("load %s: %w", id, ErrNotFound)
		}
		return nil, "", fmt.Errorf("%w: load %s: %v", ErrPersistence, id, err)
	}
	doc, err := Decode(data)
	if err != nil {
		return nil, "", fmt.Errorf("load %s: %w", id, err)
	}
	return doc, RevisionOf(data), nil
}

// Save writes to a temp file in the store directory and renames it over
// the old document.
func (s *FileStore) Save(id string, doc *Document) (Revision, error) {
	data, rev, err := encodeForSave(id, doc)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, "."+id+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("%w: save %s: %v", ErrPersistence, id, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: save %s: %v", ErrPersistence, id, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: save %s: %v", ErrPersistence, id, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: save %s: %v", ErrPersistence, id, err)
	}
	if err := os.Rename(tmpPath, s.Path(id)); err != nil {
		return "", fmt.Errorf("%w: save %s: %v", ErrPersistence, id, err)
	}
	return rev, nil
}

func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", ErrPersistence, err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, ok := s.IDFromPath(filepath.Join(s.dir, e.Name())); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
