package memstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/steveyegge/kanbeads/internal/lockfile"
	"github.com/steveyegge/kanbeads/internal/remote"
	"github.com/steveyegge/kanbeads/internal/types"
)

type fileDoc struct {
	Kind     types.Kind      `json:"kind"`
	ID       string          `json:"id"`
	ParentID string          `json:"parentId,omitempty"`
	Seq      int64           `json:"seq"`
	Body     json.RawMessage `json:"body"`
}

type fileImage struct {
	Seq       int64     `json:"seq"`
	Documents []fileDoc `json:"documents"`
}

// OpenFile loads the store saved at path, or starts empty when the file does
// not exist. Close saves it back. The store holds path+".lock" while open,
// so a second process opening the same file fails with lockfile.ErrLockBusy.
func OpenFile(path string, opts ...Option) (*Store, error) {
	lock, err := lockfile.TryLock(path + ".lock")
	if err != nil {
		return nil, err
	}
	s := New(opts...)
	s.persistPath = path
	s.lock = lock
	if err := s.Load(path); err != nil && !os.IsNotExist(err) {
		_ = lock.Release()
		return nil, err
	}
	return s, nil
}

// Load replaces the store's contents with the image at path.
func (s *Store) Load(path string) error {
	// #nosec G304 - path comes from config
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var img fileImage
	if err := remote.Unmarshal(data, &img); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[types.Kind]map[string]*document)
	s.seq = img.Seq
	for _, d := range img.Documents {
		if s.docs[d.Kind] == nil {
			s.docs[d.Kind] = make(map[string]*document)
		}
		s.docs[d.Kind][d.ID] = &document{
			Document: remote.Document{ID: d.ID, ParentID: d.ParentID, Body: slices.Clone([]byte(d.Body))},
			seq:      d.Seq,
		}
	}
	return nil
}

// Save writes the store's contents to path atomically.
func (s *Store) Save(path string) error {
	s.mu.Lock()
	img := fileImage{Seq: s.seq}
	for kind, docs := range s.docs {
		for _, d := range docs {
			img.Documents = append(img.Documents, fileDoc{Kind: kind, ID: d.ID, ParentID: d.ParentID, Seq: d.seq, Body: d.Body})
		}
	}
	s.mu.Unlock()
	slices.SortFunc(img.Documents, func(a, b fileDoc) int { return int(a.Seq - b.Seq) })

	data, err := remote.MarshalIndent(img)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}
