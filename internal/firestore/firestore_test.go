package firestore_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftlog/internal/firestore"
	"shiftlog/internal/models"
	"shiftlog/internal/remote"
)

// Runs against the emulator: gcloud emulators firestore start, then
// FIRESTORE_EMULATOR_HOST=localhost:8080.
func TestEmulatorRoundTrip(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	s, err := firestore.New(ctx, slog.New(slog.NewTextHandler(io.Discard, nil)), "shiftlog-test")
	require.NoError(t, err)
	defer s.Close()

	paths := remote.Paths{Namespace: "artifacts", AppID: "test"}
	uid := "u" + time.Now().Format("150405.000")
	var mu sync.Mutex
	var last []models.Record
	snapshots := 0
	stop, err := s.Subscribe(ctx, paths.Collection(uid), remote.Handler{
		OnSnapshot: func(recs []models.Record) {
			mu.Lock()
			defer mu.Unlock()
			last = recs
			snapshots++
		},
	})
	require.NoError(t, err)
	defer stop()

	rec := models.Record{ID: "2025-03-08", Date: 1741392000000, Center: "Maternidad", IsWeekendOrHoliday: true}
	require.NoError(t, s.Put(ctx, paths.Document(uid, rec.ID), rec))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(last) == 1
	}, 10*time.Second, 50*time.Millisecond)
	mu.Lock()
	assert.Equal(t, rec, last[0])
	mu.Unlock()

	require.NoError(t, s.Delete(ctx, paths.Document(uid, rec.ID)))
	require.NoError(t, s.Delete(ctx, paths.Document(uid, rec.ID)))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(last) == 0 && snapshots >= 3
	}, 10*time.Second, 50*time.Millisecond)
}
