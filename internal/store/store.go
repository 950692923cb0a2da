// Package store persists submissions as lines of a CSV file.
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/akave-ai/consultlog/internal/config"
	"github.com/akave-ai/consultlog/internal/csvcodec"
	"github.com/akave-ai/consultlog/internal/model"
)

// ErrNotFound is returned by Raw when the submissions file does not exist.
var ErrNotFound = errors.New("no submissions found")

// Error wraps an I/O failure with the operation and file it happened on.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Store appends submissions to a single CSV file. Appends are not serialized;
// each one is a single O_APPEND write of a complete line.
type Store struct {
	path   string
	logger zerolog.Logger

	mu     sync.Mutex
	cached *snapshot
}

// snapshot is a decoded file keyed by the stat it was read under. The file only
// grows, so an unchanged size and mtime means unchanged content.
type snapshot struct {
	size    int64
	modTime time.Time
	doc     csvcodec.Document
}

func New(cfg config.StoreConfig, logger zerolog.Logger) *Store {
	return &Store{
		path:   filepath.Join(cfg.DataDir, cfg.FileName),
		logger: logger.With().Str("component", "store").Logger(),
	}
}

// Path returns the location of the submissions file.
func (s *Store) Path() string { return s.path }

// EnsureInitialized creates the data directory and a header-only file if the
// file is absent. Calling it again is a no-op.
func (s *Store) EnsureInitialized() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return &Error{Op: "init", Path: s.path, Err: err}
	}
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return &Error{Op: "init", Path: s.path, Err: err}
	}
	_, werr := f.WriteString(strings.Join(model.Columns, ",") + "\n")
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		return &Error{Op: "init", Path: s.path, Err: err}
	}
	s.logger.Info().Str("path", s.path).Msg("created submissions file")
	return nil
}

// Append encodes sub and writes it as one line at the end of the file.
func (s *Store) Append(ctx context.Context, sub model.Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.EnsureInitialized(); err != nil {
		return err
	}
	line := csvcodec.EncodeLine(sub.Values())

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return &Error{Op: "append", Path: s.path, Err: err}
	}
	_, werr := f.WriteString(line)
	cerr := f.Close()
	s.invalidate()
	if err := errors.Join(werr, cerr); err != nil {
		return &Error{Op: "append", Path: s.path, Err: err}
	}
	return nil
}

// ReadAll decodes the whole file. A missing file yields an empty document.
func (s *Store) ReadAll(ctx context.Context) (csvcodec.Document, error) {
	if err := ctx.Err(); err != nil {
		return csvcodec.Document{}, err
	}
	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return csvcodec.Document{}, nil
	}
	if err != nil {
		return csvcodec.Document{}, &Error{Op: "read", Path: s.path, Err: err}
	}
	if doc, ok := s.lookup(info); ok {
		return doc, nil
	}

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return csvcodec.Document{}, nil
	}
	if err != nil {
		return csvcodec.Document{}, &Error{Op: "read", Path: s.path, Err: err}
	}
	doc := csvcodec.Decode(string(raw))
	// only cache when the bytes we read match the stat we keyed on
	if int64(len(raw)) == info.Size() {
		s.remember(info, doc)
	}
	return doc, nil
}

// Raw returns the file contents as stored, for download.
func (s *Store) Raw(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &Error{Op: "read", Path: s.path, Err: err}
	}
	return raw, nil
}

func (s *Store) lookup(info fs.FileInfo) (csvcodec.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cached
	if c == nil || c.size != info.Size() || !c.modTime.Equal(info.ModTime()) {
		return csvcodec.Document{}, false
	}
	return c.doc, true
}

func (s *Store) remember(info fs.FileInfo, doc csvcodec.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = &snapshot{size: info.Size(), modTime: info.ModTime(), doc: doc}
}

func (s *Store) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
}
