package invoicepdf

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Saver persists a finished PDF under a file name and returns where it went
// (a path, an object key, or a URL).
type Saver interface {
	Save(ctx context.Context, filename string, pdf []byte) (string, error)
}

// SaverFunc adapts a function to the Saver interface.
type SaverFunc func(ctx context.Context, filename string, pdf []byte) (string, error)

// Save calls f.
func (f SaverFunc) Save(ctx context.Context, filename string, pdf []byte) (string, error) {
	return f(ctx, filename, pdf)
}

// Notifier shows a short message to the person who requested the export.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(message string)

// Notify calls f.
func (f NotifierFunc) Notify(message string) { f(message) }

type discardNotifier struct{}

func (discardNotifier) Notify(string) {}

// DefaultBlobBaseURL prefixes preview URLs when no base URL is configured.
const DefaultBlobBaseURL = "blob:invoicepdf"

// Blob is a PDF held in memory for preview.
type Blob struct {
	ID       string
	Filename string
	Data     []byte
	Created  time.Time
}

// BlobStore keeps preview PDFs in memory behind revocable URLs.
// Entries live until revoked, until they exceed the TTL, or until they are
// evicted as the oldest entry when the store is full.
type BlobStore struct {
	baseURL    string
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	mu    sync.Mutex
	blobs map[string]Blob
}

// BlobOption configures a BlobStore.
type BlobOption func(*BlobStore)

// WithBlobTTL expires previews after d. Zero keeps them until revoked.
func WithBlobTTL(d time.Duration) BlobOption {
	return func(s *BlobStore) { s.ttl = d }
}

// WithMaxBlobs bounds the number of live previews. Zero means unbounded.
func WithMaxBlobs(n int) BlobOption {
	return func(s *BlobStore) { s.maxEntries = n }
}

// withBlobClock overrides the clock in tests.
func withBlobClock(now func() time.Time) BlobOption {
	return func(s *BlobStore) { s.now = now }
}

// NewBlobStore creates a store whose URLs are baseURL + "/" + id.
func NewBlobStore(baseURL string, opts ...BlobOption) *BlobStore {
	if baseURL == "" {
		baseURL = DefaultBlobBaseURL
	}
	s := &BlobStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
		blobs:   make(map[string]Blob),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put stores data and returns its preview URL.
func (s *BlobStore) Put(filename string, data []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked()
	if s.maxEntries > 0 {
		for len(s.blobs) >= s.maxEntries {
			s.evictOldestLocked()
		}
	}

	id := uuid.NewString()
	s.blobs[id] = Blob{ID: id, Filename: filename, Data: data, Created: s.now()}
	return s.URL(id)
}

// Get returns the blob for an id or URL.
// Returns ErrBlobNotFound when it was never stored, revoked, or expired.
func (s *BlobStore) Get(idOrURL string) (Blob, error) {
	id := s.ID(idOrURL)

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.blobs[id]
	if !ok {
		return Blob{}, fmt.Errorf("%w: %s", ErrBlobNotFound, id)
	}
	if s.expired(b) {
		delete(s.blobs, id)
		return Blob{}, fmt.Errorf("%w: %s expired", ErrBlobNotFound, id)
	}
	return b, nil
}

// Revoke releases a preview. It reports whether anything was removed.
func (s *BlobStore) Revoke(idOrURL string) bool {
	id := s.ID(idOrURL)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[id]; !ok {
		return false
	}
	delete(s.blobs, id)
	return true
}

// Len returns the number of live previews.
func (s *BlobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked()
	return len(s.blobs)
}

// URL builds the preview URL for id.
func (s *BlobStore) URL(id string) string {
	return s.baseURL + "/" + id
}

// ID extracts the blob id from a preview URL. Bare ids pass through.
func (s *BlobStore) ID(idOrURL string) string {
	if i := strings.LastIndex(idOrURL, "/"); i >= 0 {
		return idOrURL[i+1:]
	}
	return idOrURL
}

func (s *BlobStore) expired(b Blob) bool {
	return s.ttl > 0 && s.now().Sub(b.Created) > s.ttl
}

func (s *BlobStore) pruneLocked() {
	if s.ttl <= 0 {
		return
	}
	for id, b := range s.blobs {
		if s.expired(b) {
			delete(s.blobs, id)
		}
	}
}

func (s *BlobStore) evictOldestLocked() {
	var oldest string
	var oldestAt time.Time
	for id, b := range s.blobs {
		if oldest == "" || b.Created.Before(oldestAt) {
			oldest, oldestAt = id, b.Created
		}
	}
	delete(s.blobs, oldest)
}
