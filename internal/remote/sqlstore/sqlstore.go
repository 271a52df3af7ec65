// Package sqlstore keeps board documents in a MySQL-compatible server
// (MySQL or a Dolt sql-server).
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-sql-driver/mysql"

	"github.com/steveyegge/kanbeads/internal/remote"
	"github.com/steveyegge/kanbeads/internal/types"
)

const schema = `CREATE TABLE IF NOT EXISTS kb_documents (
	id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
	kind VARCHAR(32) NOT NULL,
	parent_id VARCHAR(64) NOT NULL DEFAULT '',
	body LONGTEXT NOT NULL,
	INDEX idx_kb_documents_parent (kind, parent_id)
)`

// DefaultRetryMaxElapsed bounds retries of transient connection errors.
const DefaultRetryMaxElapsed = 30 * time.Second

// Store is a remote.DocumentStore over database/sql.
type Store struct {
	db              *sql.DB
	now             func() time.Time
	retryMaxElapsed time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithRetryMaxElapsed overrides DefaultRetryMaxElapsed; 0 disables retries.
func WithRetryMaxElapsed(d time.Duration) Option {
	return func(s *Store) { s.retryMaxElapsed = d }
}

// Open connects with a go-sql-driver DSN (user:pass@tcp(host:port)/db) and
// creates the document table if needed.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.ParseTime = true
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(time.Minute)

	s := NewWithDB(db, opts...)
	if err := s.withRetry(ctx, func() error {
		_, err := db.ExecContext(ctx, schema)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", s.classify(err))
	}
	return s, nil
}

// NewWithDB wraps an open handle. The schema must already exist.
func NewWithDB(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now, retryMaxElapsed: DefaultRetryMaxElapsed}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Insert implements remote.DocumentStore.
func (s *Store) Insert(ctx context.Context, kind types.Kind, parentID string, body []byte) (remote.Document, error) {
	var doc remote.Document
	err := s.withRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		res, err := tx.ExecContext(ctx,
			"INSERT INTO kb_documents (kind, parent_id, body) VALUES (?, ?, ?)",
			string(kind), parentID, "{}")
		if err != nil {
			return err
		}
		seq, err := res.LastInsertId()
		if err != nil {
			return err
		}
		id := strconv.FormatInt(seq, 10)
		stamped, err := remote.Stamp(body, id, s.now())
		if err != nil {
			return backoff.Permanent(err)
		}
		if _, err := tx.ExecContext(ctx, "UPDATE kb_documents SET body = ? WHERE id = ?", string(stamped), seq); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		doc = remote.Document{ID: id, ParentID: parentID, Body: stamped}
		return nil
	})
	if err != nil {
		return remote.Document{}, s.classify(err)
	}
	return doc, nil
}

// Patch implements remote.DocumentStore.
func (s *Store) Patch(ctx context.Context, kind types.Kind, id string, updates map[string]any) error {
	seq, err := parseID(kind, id)
	if err != nil {
		return err
	}
	err = s.withRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		var body string
		err = tx.QueryRowContext(ctx,
			"SELECT body FROM kb_documents WHERE id = ? AND kind = ? FOR UPDATE", seq, string(kind)).Scan(&body)
		if errors.Is(err, sql.ErrNoRows) {
			return backoff.Permanent(fmt.Errorf("%s %s: %w", kind, id, remote.ErrNotFound))
		}
		if err != nil {
			return err
		}
		merged, err := remote.MergePatch([]byte(body), updates, s.now())
		if err != nil {
			return backoff.Permanent(err)
		}
		if _, err := tx.ExecContext(ctx, "UPDATE kb_documents SET body = ? WHERE id = ?", string(merged), seq); err != nil {
			return err
		}
		return tx.Commit()
	})
	return s.classify(err)
}

// Remove implements remote.DocumentStore.
func (s *Store) Remove(ctx context.Context, kind types.Kind, id string) error {
	seq, err := parseID(kind, id)
	if err != nil {
		return err
	}
	err = s.withRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx, "DELETE FROM kb_documents WHERE id = ? AND kind = ?", seq, string(kind))
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return backoff.Permanent(fmt.Errorf("%s %s: %w", kind, id, remote.ErrNotFound))
		}
		return nil
	})
	return s.classify(err)
}

// List implements remote.DocumentStore. Documents come back in ID order.
func (s *Store) List(ctx context.Context, kind types.Kind, parentID string) ([]remote.Document, error) {
	var out []remote.Document
	err := s.withRetry(ctx, func() error {
		out = out[:0]
		rows, err := s.db.QueryContext(ctx,
			"SELECT id, body FROM kb_documents WHERE kind = ? AND parent_id = ? ORDER BY id",
			string(kind), parentID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				seq  int64
				body string
			)
			if err := rows.Scan(&seq, &body); err != nil {
				return err
			}
			out = append(out, remote.Document{ID: strconv.FormatInt(seq, 10), ParentID: parentID, Body: []byte(body)})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, s.classify(err)
	}
	return out, nil
}

// Close implements remote.DocumentStore.
func (s *Store) Close() error {
	return s.db.Close()
}

func parseID(kind types.Kind, id string) (int64, error) {
	seq, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", kind, id, remote.ErrNotFound)
	}
	return seq, nil
}

// withRetry runs op, retrying transient connection errors with exponential
// backoff.
func (s *Store) withRetry(ctx context.Context, op func() error) error {
	if s.retryMaxElapsed <= 0 {
		err := op()
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return perm.Err
		}
		return err
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = s.retryMaxElapsed
	return backoff.Retry(func() error {
		err := op()
		if err != nil && isRetryableError(err) {
			return err
		}
		if err != nil {
			var perm *backoff.PermanentError
			if errors.As(err, &perm) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(bo, ctx))
}

// classify marks errors that exhausted their retries as transient so
// callers may try again later.
func (s *Store) classify(err error) error {
	if err == nil || errors.Is(err, remote.ErrPersistence) {
		return err
	}
	if isRetryableError(err) || errors.Is(err, context.DeadlineExceeded) {
		return remote.Transient(err)
	}
	return err
}

// isRetryableError reports whether err is a transient connection error.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1205, 1213: // lock wait timeout, deadlock
			return true
		}
	}
	errStr := strings.ToLower(err.Error())
	for _, s := range []string{
		"driver: bad connection",
		"invalid connection",
		"broken pipe",
		"connection reset",
		"connection refused",
		"database is read only",
		"lost connection",
		"gone away",
		"i/o timeout",
	} {
		if strings.Contains(errStr, s) {
			return true
		}
	}
	return false
}
