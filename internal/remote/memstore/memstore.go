// Package memstore is an in-process DocumentStore.
//
// It backs tests and the CLI's mem and file backends. Calls can be
// intercepted to inject failures or hold a call open, which is how tests
// reproduce slow or failing remote round trips.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/steveyegge/kanbeads/internal/lockfile"
	"github.com/steveyegge/kanbeads/internal/remote"
	"github.com/steveyegge/kanbeads/internal/types"
)

// Op names a store operation.
type Op string

// Operations
const (
	OpInsert Op = "insert"
	OpPatch  Op = "patch"
	OpRemove Op = "remove"
	OpList   Op = "list"
)

// Call describes an intercepted operation. ID is the parent ID for insert
// and list.
type Call struct {
	Op   Op
	Kind types.Kind
	ID   string
}

// Interceptor runs before every operation, outside the store lock. A
// non-nil error fails the call.
type Interceptor func(ctx context.Context, call Call) error

type document struct {
	remote.Document
	seq int64
}

// Store keeps documents in memory.
type Store struct {
	mu          sync.Mutex
	seq         int64
	docs        map[types.Kind]map[string]*document
	intercept   Interceptor
	now         func() time.Time
	calls       []Call
	closed      bool
	persistPath string
	lock        *lockfile.Lock
}

// Option configures a Store.
type Option func(*Store)

// WithStartID makes the first assigned ID start+1.
func WithStartID(start int64) Option {
	return func(s *Store) { s.seq = start }
}

// WithClock overrides the time source used for stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithInterceptor installs an interceptor.
func WithInterceptor(fn Interceptor) Option {
	return func(s *Store) { s.intercept = fn }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		docs: make(map[types.Kind]map[string]*document),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetInterceptor replaces the interceptor; nil removes it.
func (s *Store) SetInterceptor(fn Interceptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intercept = fn
}

// Calls returns every operation seen so far, intercepted or not.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

func (s *Store) before(ctx context.Context, call Call) error {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	fn := s.intercept
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return fmt.Errorf("memstore: closed")
	}
	if fn != nil {
		if err := fn(ctx, call); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// Insert implements remote.DocumentStore.
func (s *Store) Insert(ctx context.Context, kind types.Kind, parentID string, body []byte) (remote.Document, error) {
	if err := s.before(ctx, Call{Op: OpInsert, Kind: kind, ID: parentID}); err != nil {
		return remote.Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	id := strconv.FormatInt(s.seq, 10)
	stamped, err := remote.Stamp(body, id, s.now())
	if err != nil {
		return remote.Document{}, err
	}
	doc := &document{Document: remote.Document{ID: id, ParentID: parentID, Body: stamped}, seq: s.seq}
	if s.docs[kind] == nil {
		s.docs[kind] = make(map[string]*document)
	}
	s.docs[kind][id] = doc
	return doc.Document, nil
}

// Patch implements remote.DocumentStore.
func (s *Store) Patch(ctx context.Context, kind types.Kind, id string, updates map[string]any) error {
	if err := s.before(ctx, Call{Op: OpPatch, Kind: kind, ID: id}); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[kind][id]
	if !ok {
		return fmt.Errorf("%s %s: %w", kind, id, remote.ErrNotFound)
	}
	body, err := remote.MergePatch(doc.Body, updates, s.now())
	if err != nil {
		return err
	}
	doc.Body = body
	return nil
}

// Remove implements remote.DocumentStore.
func (s *Store) Remove(ctx context.Context, kind types.Kind, id string) error {
	if err := s.before(ctx, Call{Op: OpRemove, Kind: kind, ID: id}); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[kind][id]; !ok {
		return fmt.Errorf("%s %s: %w", kind, id, remote.ErrNotFound)
	}
	delete(s.docs[kind], id)
	return nil
}

// List implements remote.DocumentStore. Documents come back in insertion
// order.
func (s *Store) List(ctx context.Context, kind types.Kind, parentID string) ([]remote.Document, error) {
	if err := s.before(ctx, Call{Op: OpList, Kind: kind, ID: parentID}); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []*document
	for _, doc := range s.docs[kind] {
		if doc.ParentID == parentID {
			matched = append(matched, doc)
		}
	}
	slices.SortFunc(matched, func(a, b *document) int { return int(a.seq - b.seq) })
	out := make([]remote.Document, len(matched))
	for i, doc := range matched {
		out[i] = remote.Document{ID: doc.ID, ParentID: doc.ParentID, Body: slices.Clone(doc.Body)}
	}
	return out, nil
}

// Get returns a stored document. Used by tests to inspect state.
func (s *Store) Get(kind types.Kind, id string) (remote.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[kind][id]
	if !ok {
		return remote.Document{}, false
	}
	return remote.Document{ID: doc.ID, ParentID: doc.ParentID, Body: slices.Clone(doc.Body)}, true
}

// Count returns the number of documents of kind.
func (s *Store) Count(kind types.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs[kind])
}

// Close implements remote.DocumentStore. A store opened from a file is
// saved back to it.
func (s *Store) Close() error {
	s.mu.Lock()
	path, lock := s.persistPath, s.lock
	s.closed = true
	s.lock = nil
	s.mu.Unlock()
	if path == "" {
		return nil
	}
	err := s.Save(path)
	if rerr := lock.Release(); err == nil {
		err = rerr
	}
	return err
}
