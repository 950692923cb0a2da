package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ObjectStore is the subset of O3Client the archiver needs.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	GetObject(ctx context.Context, key string) ([]byte, error)
}

// ErrOutsideArchive is returned by Get for keys not under the archive prefix.
var ErrOutsideArchive = errors.New("key is not an archived snapshot")

// RawSource yields the current CSV file contents.
type RawSource interface {
	Raw(ctx context.Context) ([]byte, error)
}

// Archiver copies the submissions file into object storage.
type Archiver struct {
	objects ObjectStore
	source  RawSource
	prefix  string
	now     func() time.Time
}

// NewArchiver snapshots source into objects under prefix. A nil *Archiver is
// valid and reports ErrNotConfigured.
func NewArchiver(objects ObjectStore, source RawSource, prefix string) *Archiver {
	return &Archiver{objects: objects, source: source, prefix: prefix, now: time.Now}
}

// Snapshot uploads the current file and returns the object key.
func (a *Archiver) Snapshot(ctx context.Context) (ObjectInfo, error) {
	if a == nil {
		return ObjectInfo{}, ErrNotConfigured
	}
	data, err := a.source.Raw(ctx)
	if err != nil {
		return ObjectInfo{}, err
	}
	now := a.now()
	key := KeyForSnapshot(a.prefix, uuid.NewString(), now)
	if err := a.objects.PutObject(ctx, key, data, "text/csv"); err != nil {
		return ObjectInfo{}, err
	}
	return ObjectInfo{Key: key, Size: int64(len(data)), LastModified: now.UTC()}, nil
}

// List returns the snapshots stored under the archive prefix.
func (a *Archiver) List(ctx context.Context) ([]ObjectInfo, error) {
	if a == nil {
		return nil, ErrNotConfigured
	}
	return a.objects.ListObjects(ctx, a.prefix+"/")
}

// Get downloads one snapshot. Keys outside the archive prefix are refused so
// the admin API cannot read arbitrary objects from the bucket.
func (a *Archiver) Get(ctx context.Context, key string) ([]byte, error) {
	if a == nil {
		return nil, ErrNotConfigured
	}
	key = strings.TrimPrefix(key, "/")
	if !strings.HasPrefix(key, a.prefix+"/") || strings.Contains(key, "..") {
		return nil, ErrOutsideArchive
	}
	return a.objects.GetObject(ctx, key)
}
