package natskv

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

	"shiftlog/internal/models"
	"shiftlog/internal/remote"
)

func TestKeyMapping(t *testing.T) {
	paths := remote.Paths{Namespace: "artifacts", AppID: "my.app"}

	assert.Equal(t, "artifacts.my_app.users.u-1.work_registry", keyPrefix(paths.Collection("u-1")))

	key, err := documentKey(paths.Document("u-1", "2025-03-08"))
	require.NoError(t, err)
	assert.Equal(t, "artifacts.my_app.users.u-1.work_registry.2025-03-08", key)

	_, err = documentKey("no-slash")
	assert.Error(t, err)
}

// TestLiveSubscription needs a JetStream-enabled server, e.g.
// NATS_TEST_URL=nats://127.0.0.1:4222 with `nats-server -js`.
func TestLiveSubscription(t *testing.T) {
	url := os.Getenv("NATS_TEST_URL")
	if url == "" {
		t.Skip("NATS_TEST_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := Connect(ctx, logger, url, "shiftlog_test_"+time.Now().Format("150405"))
	require.NoError(t, err)
	defer s.Close()

	paths := remote.Paths{Namespace: "artifacts", AppID: "test"}
	var mu sync.Mutex
	var last []models.Record
	stop, err := s.Subscribe(ctx, paths.Collection("u1"), remote.Handler{
		OnSnapshot: func(recs []models.Record) {
			mu.Lock()
			defer mu.Unlock()
			last = recs
		},
	})
	require.NoError(t, err)
	defer stop()

	rec := models.Record{ID: "2025-03-08", Date: 1741392000000, Center: "Maternidad", IsWeekendOrHoliday: true}
	require.NoError(t, s.Put(ctx, paths.Document("u1", rec.ID), rec))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(last) == 1 && last[0] == rec
	}, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, s.Delete(ctx, paths.Document("u1", rec.ID)))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(last) == 0
	}, 5*time.Second, 50*time.Millisecond)
}
