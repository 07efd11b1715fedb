// Package spool keeps uploaded tlog files on disk until a background
// ingest job has consumed them.
package spool

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tlog-viewer/backend/internal/ingest"
	"github.com/tlog-viewer/backend/internal/models"
)

// ErrNotFound is returned for ids the spool does not know about.
var ErrNotFound = errors.New("spooled file not found")

const fileExt = ".spool"

// Dir implements a spool backed by a local directory.
type Dir struct {
	mu    sync.RWMutex
	dir   string
	files map[string]*models.FileInfo
}

// NewDir creates the directory if needed and removes files left behind by
// a previous process, whose jobs no longer exist.
func NewDir(dir string) (*Dir, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating spool directory: %w", err)
	}

	stale, err := filepath.Glob(filepath.Join(dir, "*"+fileExt))
	if err != nil {
		return nil, fmt.Errorf("listing spool directory: %w", err)
	}
	for _, path := range stale {
		_ = os.Remove(path)
	}

	return &Dir{
		dir:   dir,
		files: make(map[string]*models.FileInfo),
	}, nil
}

// Save copies r into a new spool file and returns its metadata.
func (d *Dir) Save(name string, r io.Reader) (*models.FileInfo, error) {
	id := uuid.New().String()
	path := d.path(id)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating spool file: %w", err)
	}

	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing spool file: %w", err)
	}

	info := &models.FileInfo{
		ID:         id,
		Name:       name,
		Size:       size,
		UploadedAt: time.Now(),
		Status:     models.FileStatusSpooled,
	}

	d.mu.Lock()
	d.files[id] = info
	d.mu.Unlock()

	return info.Clone(), nil
}

// Get returns a copy of the metadata for id.
func (d *Dir) Get(id string) (*models.FileInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	info, ok := d.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return info.Clone(), nil
}

// List returns up to limit files, newest first. A non-positive limit returns all.
func (d *Dir) List(limit int) []*models.FileInfo {
	d.mu.RLock()
	list := make([]*models.FileInfo, 0, len(d.files))
	for _, info := range d.files {
		list = append(list, info.Clone())
	}
	d.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].UploadedAt.After(list[j].UploadedAt)
	})

	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list
}

// Open opens the spooled content for reading.
func (d *Dir) Open(id string) (io.ReadCloser, error) {
	d.mu.RLock()
	_, ok := d.files[id]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	f, err := os.Open(d.path(id))
	if err != nil {
		return nil, fmt.Errorf("opening spool file: %w", err)
	}
	return f, nil
}

// SetStatus records the ingest status of a spooled file. Unknown ids are ignored.
func (d *Dir) SetStatus(id, status string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if info, ok := d.files[id]; ok {
		info.Status = status
	}
}

// Remove deletes the spool file and forgets its metadata.
func (d *Dir) Remove(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.files[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := os.Remove(d.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting spool file: %w", err)
	}
	delete(d.files, id)
	return nil
}

// Path returns the on-disk location of a spooled file.
func (d *Dir) Path(id string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if _, ok := d.files[id]; !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return d.path(id), nil
}

func (d *Dir) path(id string) string {
	return filepath.Join(d.dir, id+fileExt)
}

var _ ingest.Spool = (*Dir)(nil)
