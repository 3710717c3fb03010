// Package storage enumerates and streams tracks from the music directory.
package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

var (
	ErrNotMounted  = errors.New("storage: not mounted")
	ErrNoFile      = errors.New("storage: no file open")
	ErrInvalidName = errors.New("storage: invalid track name")
)

// Storage is the track store used by the player. One track is open at a time.
type Storage interface {
	Init() error
	ListTracks(limit int) ([]string, error)
	Open(name string) error
	Read(p []byte) (int, error)
	Seek(offset int64, whence int) (int64, error)
	Close() error
	Size() int64
}

// Dir is a Storage over a directory of track files.
type Dir struct {
	root   string
	accept func(name string) bool

	mu      sync.Mutex
	mounted bool
	f       *os.File
	size    int64
}

// NewDir creates a Dir rooted at root. Only names for which accept returns
// true are listed; a nil accept lists every regular file.
func NewDir(root string, accept func(name string) bool) *Dir {
	return &Dir{root: root, accept: accept}
}

// Root returns the directory being served.
func (d *Dir) Root() string { return d.root }

// Init checks that the directory is present and logs its free space.
func (d *Dir) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	fi, err := os.Stat(d.root)
	if err != nil {
		d.mounted = false
		return fmt.Errorf("%w: %v", ErrNotMounted, err)
	}
	if !fi.IsDir() {
		d.mounted = false
		return fmt.Errorf("%w: %s is not a directory", ErrNotMounted, d.root)
	}
	d.mounted = true
	if free, err := freeBytes(d.root); err == nil {
		slog.Info("storage: mounted", "root", d.root, "free_bytes", free)
	} else {
		slog.Info("storage: mounted", "root", d.root)
	}
	return nil
}

// ListTracks returns up to limit track names in lexical order. limit <= 0
// means no limit.
func (d *Dir) ListTracks(limit int) ([]string, error) {
	d.mu.Lock()
	mounted := d.mounted
	d.mu.Unlock()
	if !mounted {
		return nil, ErrNotMounted
	}

	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", d.root, err)
	}
	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if d.accept != nil && !d.accept(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	if limit > 0 && len(names) > limit {
		slog.Warn("storage: track limit reached", "found", len(names), "limit", limit)
		names = names[:limit]
	}
	return names, nil
}

// Open makes name the current file, closing the previous one.
func (d *Dir) Open(name string) error {
	if name == "" || filepath.Base(name) != name || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.mounted {
		return ErrNotMounted
	}
	d.closeLocked()
	f, err := os.Open(filepath.Join(d.root, name))
	if err != nil {
		return fmt.Errorf("storage: open %s: %w", name, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("storage: stat %s: %w", name, err)
	}
	d.f = f
	d.size = fi.Size()
	return nil
}

func (d *Dir) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return 0, ErrNoFile
	}
	return d.f.Read(p)
}

func (d *Dir) Seek(offset int64, whence int) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return 0, ErrNoFile
	}
	return d.f.Seek(offset, whence)
}

// Close closes the current file. It is a no-op when nothing is open.
func (d *Dir) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closeLocked()
}

func (d *Dir) closeLocked() error {
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	d.size = 0
	return err
}

// Size returns the size of the current file, 0 when none is open.
func (d *Dir) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.size
}

var _ io.ReadSeeker = (*Dir)(nil)
