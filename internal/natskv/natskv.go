// Package natskv stores work logs in a NATS JetStream key-value bucket.
// Each collection maps to a key prefix and each document to one key.
package natskv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"shiftlog/internal/models"
	"shiftlog/internal/remote"
)

// DefaultBucket is used when no bucket name is configured.
const DefaultBucket = "shiftlog"

// Store is a remote.Store over a JetStream KV bucket.
type Store struct {
	logger *slog.Logger
	kv     jetstream.KeyValue
	conn   *nats.Conn
}

// Connect dials url and opens (creating if needed) bucket.
func Connect(ctx context.Context, logger *slog.Logger, url, bucket string) (*Store, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}
	nc, err := nats.Connect(url, nats.Name("shiftlog"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "shiftlog work logs",
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to open KV bucket %s: %w", bucket, err)
	}
	logger.Info("Connected to NATS KV bucket.", "url", url, "bucket", bucket)

	s := New(logger, kv)
	s.conn = nc
	return s, nil
}

// New wraps an existing bucket. The caller keeps ownership of its connection.
func New(logger *slog.Logger, kv jetstream.KeyValue) *Store {
	return &Store{logger: logger, kv: kv}
}

// Subscribe watches every key under the collection's prefix. The initial
// replay is delivered as one snapshot, then every change yields a new one.
func (s *Store) Subscribe(ctx context.Context, collection string, h remote.Handler) (remote.CancelFunc, error) {
	prefix := keyPrefix(collection)
	ctx, cancel := context.WithCancel(ctx)
	watcher, err := s.kv.Watch(ctx, prefix+".*")
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to watch %s: %w", prefix, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.watch(ctx, watcher, h)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			if err := watcher.Stop(); err != nil {
				s.logger.Debug("Failed to stop KV watcher.", "prefix", prefix, "error", err)
			}
			<-done
		})
	}, nil
}

func (s *Store) watch(ctx context.Context, watcher jetstream.KeyWatcher, h remote.Handler) {
	docs := make(map[string]models.Record)
	replayed := false

	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-watcher.Updates():
			if !ok {
				if ctx.Err() == nil && h.OnError != nil {
					h.OnError(errors.New("KV watcher closed"))
				}
				return
			}
			// A nil entry marks the end of the initial replay.
			if entry == nil {
				replayed = true
				deliver(h, docs)
				continue
			}

			switch entry.Operation() {
			case jetstream.KeyValueDelete, jetstream.KeyValuePurge:
				delete(docs, entry.Key())
			default:
				var rec models.Record
				if err := json.Unmarshal(entry.Value(), &rec); err != nil {
					s.logger.Warn("Skipping undecodable work log", "key", entry.Key(), "error", err)
					continue
				}
				docs[entry.Key()] = rec
			}
			if replayed {
				deliver(h, docs)
			}
		}
	}
}

func deliver(h remote.Handler, docs map[string]models.Record) {
	if h.OnSnapshot == nil {
		return
	}
	recs := make([]models.Record, 0, len(docs))
	for _, rec := range docs {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	h.OnSnapshot(recs)
}

// Put stores rec as JSON under the document's key.
func (s *Store) Put(ctx context.Context, path string, rec models.Record) error {
	key, err := documentKey(path)
	if err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := s.kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

// Delete places a delete marker on the document's key.
func (s *Store) Delete(ctx context.Context, path string) error {
	key, err := documentKey(path)
	if err != nil {
		return err
	}
	if err := s.kv.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Close drains the connection opened by Connect.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Drain()
}

// keyPrefix turns /a/b/c into a.b.c, replacing characters KV keys reject.
func keyPrefix(collection string) string {
	parts := strings.Split(strings.Trim(collection, "/"), "/")
	for i, p := range parts {
		parts[i] = sanitize(p)
	}
	return strings.Join(parts, ".")
}

func documentKey(path string) (string, error) {
	collection, id, err := remote.SplitDocument(path)
	if err != nil {
		return "", err
	}
	return keyPrefix(collection) + "." + sanitize(id), nil
}

func sanitize(token string) string {
	if token == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '=':
			return r
		default:
			return '_'
		}
	}, token)
}
