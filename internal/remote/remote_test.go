package remote_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftlog/internal/models"
	"shiftlog/internal/remote"
)

func TestPaths(t *testing.T) {
	p := remote.Paths{Namespace: "artifacts", AppID: "app"}
	assert.Equal(t, "/artifacts/app/users/u1/work_registry", p.Collection("u1"))
	assert.Equal(t, "/artifacts/app/users/u1/work_registry/2025-03-08", p.Document("u1", "2025-03-08"))

	col, id, err := remote.SplitDocument(p.Document("u1", "2025-03-08"))
	require.NoError(t, err)
	assert.Equal(t, p.Collection("u1"), col)
	assert.Equal(t, "2025-03-08", id)

	for _, bad := range []string{"", "noslash", "/", "/a/"} {
		_, _, err := remote.SplitDocument(bad)
		assert.Error(t, err, bad)
	}
}

func TestMemoryStoreSubscribe(t *testing.T) {
	ctx := context.Background()
	s := remote.NewMemoryStore()
	p := remote.Paths{Namespace: "ns", AppID: "app"}

	require.NoError(t, s.Put(ctx, p.Document("u1", "2025-03-02"), models.Record{ID: "2025-03-02", Center: "A"}))

	var snaps [][]models.Record
	var errs []error
	cancel, err := s.Subscribe(ctx, p.Collection("u1"), remote.Handler{
		OnSnapshot: func(recs []models.Record) { snaps = append(snaps, recs) },
		OnError:    func(err error) { errs = append(errs, err) },
	})
	require.NoError(t, err)
	require.Len(t, snaps, 1, "current contents are delivered on subscribe")
	assert.Len(t, snaps[0], 1)

	require.NoError(t, s.Put(ctx, p.Document("u1", "2025-03-01"), models.Record{ID: "2025-03-01", Center: "B"}))
	require.Len(t, snaps, 2)
	assert.Equal(t, "2025-03-01", snaps[1][0].ID, "snapshots are ordered by id")

	// Other users' collections do not notify.
	require.NoError(t, s.Put(ctx, p.Document("u2", "2025-03-01"), models.Record{ID: "2025-03-01"}))
	assert.Len(t, snaps, 2)

	require.NoError(t, s.Delete(ctx, p.Document("u1", "2025-03-02")))
	require.Len(t, snaps, 3)
	assert.Len(t, snaps[2], 1)

	boom := errors.New("boom")
	s.Fail(p.Collection("u1"), boom)
	assert.Equal(t, []error{boom}, errs)

	assert.Equal(t, 1, s.ActiveOn(p.Collection("u1")))
	cancel()
	cancel()
	assert.Equal(t, 0, s.Active())
	assert.Equal(t, 1, s.Cancels)

	require.NoError(t, s.Put(ctx, p.Document("u1", "2025-03-05"), models.Record{ID: "2025-03-05"}))
	assert.Len(t, snaps, 3, "no delivery after cancel")
}

func TestMemoryStoreFailuresAndClose(t *testing.T) {
	ctx := context.Background()
	s := remote.NewMemoryStore()
	path := "/ns/app/users/u1/work_registry/2025-03-01"

	s.PutErr = errors.New("offline")
	assert.ErrorIs(t, s.Put(ctx, path, models.Record{ID: "2025-03-01"}), s.PutErr)
	assert.Empty(t, s.Records("/ns/app/users/u1/work_registry"))
	assert.Zero(t, s.Puts)

	require.NoError(t, s.Close())
	_, err := s.Subscribe(ctx, "/ns/app/users/u1/work_registry", remote.Handler{})
	assert.ErrorIs(t, err, remote.ErrClosed)
	assert.ErrorIs(t, s.Delete(ctx, path), remote.ErrClosed)
}
