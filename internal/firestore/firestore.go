// Package firestore stores work logs in Cloud Firestore and streams
// collection snapshots with realtime listeners.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	fs "cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"shiftlog/internal/models"
	"shiftlog/internal/remote"
)

// Store is a remote.Store over a Firestore database.
type Store struct {
	logger *slog.Logger
	client *fs.Client
}

// New opens a client for projectID. Pass option.WithTokenSource to act as a
// signed-in Firebase user.
func New(ctx context.Context, logger *slog.Logger, projectID string, opts ...option.ClientOption) (*Store, error) {
	client, err := fs.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	logger.Info("Connected to Firestore.", "project", projectID)
	return &Store{logger: logger, client: client}, nil
}

// Subscribe opens a realtime listener on collection. Every query snapshot
// is delivered in full; a listener error is reported once and ends it.
func (s *Store) Subscribe(ctx context.Context, collection string, h remote.Handler) (remote.CancelFunc, error) {
	ref := s.client.Collection(trim(collection))
	if ref == nil {
		return nil, fmt.Errorf("invalid collection path %q", collection)
	}

	ctx, cancel := context.WithCancel(ctx)
	it := ref.Snapshots(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, iterator.Done) {
					return
				}
				if h.OnError != nil {
					h.OnError(err)
				}
				return
			}

			recs, err := decode(snap)
			if err != nil {
				s.logger.Warn("Skipping undecodable snapshot", "collection", collection, "error", err)
				continue
			}
			if h.OnSnapshot != nil {
				h.OnSnapshot(recs)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}

func decode(snap *fs.QuerySnapshot) ([]models.Record, error) {
	docs, err := snap.Documents.GetAll()
	if err != nil {
		return nil, err
	}
	recs := make([]models.Record, 0, len(docs))
	for _, doc := range docs {
		var rec models.Record
		if err := doc.DataTo(&rec); err != nil {
			return nil, fmt.Errorf("document %s: %w", doc.Ref.ID, err)
		}
		if rec.ID == "" {
			rec.ID = doc.Ref.ID
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Put overwrites the document at path.
func (s *Store) Put(ctx context.Context, path string, rec models.Record) error {
	ref := s.client.Doc(trim(path))
	if ref == nil {
		return fmt.Errorf("invalid document path %q", path)
	}
	if _, err := ref.Set(ctx, rec); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Delete removes the document at path. Missing documents are not an error.
func (s *Store) Delete(ctx context.Context, path string) error {
	ref := s.client.Doc(trim(path))
	if ref == nil {
		return fmt.Errorf("invalid document path %q", path)
	}
	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

// Close closes the Firestore client.
func (s *Store) Close() error {
	return s.client.Close()
}

// trim drops the leading slash; the client rejects absolute paths.
func trim(path string) string {
	return strings.TrimPrefix(path, "/")
}
