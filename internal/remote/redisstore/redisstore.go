// Package redisstore keeps board documents in Redis.
//
// Layout, per kind:
//
//	<prefix>:<kind>:seq           INCR counter that assigns IDs
//	<prefix>:<kind>:doc:<id>      hash {parent, body}
//	<prefix>:<kind>:parent:<pid>  sorted set of child IDs scored by ID
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/steveyegge/kanbeads/internal/remote"
	"github.com/steveyegge/kanbeads/internal/types"
)

const maxWatchRetries = 5

// Store is a remote.DocumentStore backed by Redis.
type Store struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// New wraps an existing client. An empty prefix defaults to "kb".
func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "kb"
	}
	return &Store{client: client, prefix: prefix, now: time.Now}
}

// Open connects to the Redis server at url (redis://host:port/db).
func Open(ctx context.Context, url, prefix string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", classify(err))
	}
	return New(client, prefix), nil
}

func (s *Store) seqKey(kind types.Kind) string { return s.prefix + ":" + string(kind) + ":seq" }

func (s *Store) docKey(kind types.Kind, id string) string {
	return s.prefix + ":" + string(kind) + ":doc:" + id
}

func (s *Store) parentKey(kind types.Kind, parentID string) string {
	return s.prefix + ":" + string(kind) + ":parent:" + parentID
}

// Insert implements remote.DocumentStore.
func (s *Store) Insert(ctx context.Context, kind types.Kind, parentID string, body []byte) (remote.Document, error) {
	seq, err := s.client.Incr(ctx, s.seqKey(kind)).Result()
	if err != nil {
		return remote.Document{}, classify(err)
	}
	id := strconv.FormatInt(seq, 10)
	stamped, err := remote.Stamp(body, id, s.now())
	if err != nil {
		return remote.Document{}, err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.docKey(kind, id), "parent", parentID, "body", stamped)
		pipe.ZAdd(ctx, s.parentKey(kind, parentID), redis.Z{Score: float64(seq), Member: id})
		return nil
	})
	if err != nil {
		return remote.Document{}, classify(err)
	}
	return remote.Document{ID: id, ParentID: parentID, Body: stamped}, nil
}

// Patch implements remote.DocumentStore. The read-modify-write runs under
// WATCH so concurrent patches of the same document do not interleave.
func (s *Store) Patch(ctx context.Context, kind types.Kind, id string, updates map[string]any) error {
	key := s.docKey(kind, id)
	txf := func(tx *redis.Tx) error {
		body, err := tx.HGet(ctx, key, "body").Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%s %s: %w", kind, id, remote.ErrNotFound)
		}
		if err != nil {
			return err
		}
		merged, err := remote.MergePatch(body, updates, s.now())
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "body", merged)
			return nil
		})
		return err
	}
	for i := 0; i < maxWatchRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, remote.ErrPersistence) {
			return classify(err)
		}
		return err
	}
	return remote.Transient(fmt.Errorf("patch %s %s: too much contention", kind, id))
}

// Remove implements remote.DocumentStore.
func (s *Store) Remove(ctx context.Context, kind types.Kind, id string) error {
	key := s.docKey(kind, id)
	parent, err := s.client.HGet(ctx, key, "parent").Result()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%s %s: %w", kind, id, remote.ErrNotFound)
	}
	if err != nil {
		return classify(err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.ZRem(ctx, s.parentKey(kind, parent), id)
		return nil
	})
	return classify(err)
}

// List implements remote.DocumentStore. Documents come back in ID order.
func (s *Store) List(ctx context.Context, kind types.Kind, parentID string) ([]remote.Document, error) {
	ids, err := s.client.ZRange(ctx, s.parentKey(kind, parentID), 0, -1).Result()
	if err != nil {
		return nil, classify(err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	cmds := make([]*redis.StringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGet(ctx, s.docKey(kind, id), "body")
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, classify(err)
	}
	out := make([]remote.Document, 0, len(ids))
	for i, cmd := range cmds {
		body, err := cmd.Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, classify(err)
		}
		out = append(out, remote.Document{ID: ids[i], ParentID: parentID, Body: body})
	}
	return out, nil
}

// Close implements remote.DocumentStore.
func (s *Store) Close() error {
	return s.client.Close()
}

// classify marks connection-level failures as transient.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.EOF) || errors.Is(err, context.DeadlineExceeded) {
		return remote.Transient(err)
	}
	msg := err.Error()
	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "LOADING") || strings.Contains(msg, "TRYAGAIN") {
		return remote.Transient(err)
	}
	return err
}
