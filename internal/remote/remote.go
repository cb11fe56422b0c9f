// Package remote defines the document-store contract the work-log engine
// consumes, and the path convention shared by every backend.
package remote

import (
	"context"
	"fmt"
	"strings"

	"shiftlog/internal/models"
)

// CollectionName is the per-user collection holding one document per worked day.
const CollectionName = "work_registry"

// CancelFunc stops a live subscription. It is safe to call more than once.
type CancelFunc func()

// Handler receives subscription events. OnSnapshot always carries the
// complete current contents of the collection.
type Handler struct {
	OnSnapshot func([]models.Record)
	OnError    func(error)
}

// Store is a document store with live collection subscriptions.
type Store interface {
	// Subscribe opens a live subscription to collection. The returned
	// CancelFunc is the only way to stop it.
	Subscribe(ctx context.Context, collection string, h Handler) (CancelFunc, error)
	// Put fully overwrites the document at path.
	Put(ctx context.Context, path string, rec models.Record) error
	// Delete removes the document at path. Deleting a missing document is not an error.
	Delete(ctx context.Context, path string) error
	// Close releases the backend's resources.
	Close() error
}

// Paths builds collection and document paths for one application.
type Paths struct {
	Namespace string
	AppID     string
}

// Collection returns /{namespace}/{appId}/users/{uid}/work_registry.
func (p Paths) Collection(uid string) string {
	return fmt.Sprintf("/%s/%s/users/%s/%s", p.Namespace, p.AppID, uid, CollectionName)
}

// Document returns the path of the document id inside uid's collection.
func (p Paths) Document(uid, id string) string {
	return p.Collection(uid) + "/" + id
}

// SplitDocument separates a document path into its collection and id.
func SplitDocument(path string) (collection, id string, err error) {
	i := strings.LastIndex(path, "/")
	if i <= 0 || i == len(path)-1 {
		return "", "", fmt.Errorf("invalid document path %q", path)
	}
	return path[:i], path[i+1:], nil
}

func (h Handler) snapshot(recs []models.Record) {
	if h.OnSnapshot != nil {
		h.OnSnapshot(recs)
	}
}

func (h Handler) fail(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}
