package filestore

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelevant(t *testing.T) {
	tests := []struct {
		event fsnotify.Event
		want  bool
	}{
		{fsnotify.Event{Name: "/d/flows/a.json", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "/d/flows/a.json", Op: fsnotify.Remove}, true},
		{fsnotify.Event{Name: "/d/flows/tmp-123.json", Op: fsnotify.Create}, false},
		{fsnotify.Event{Name: "/d/flows/a.txt", Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: "/d/flows/a.json", Op: fsnotify.Chmod}, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, relevant(tt.event), tt.event.String())
	}
}

func TestStore_WatchReloadsExternalChanges(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- store.Watch(ctx, slog.New(slog.NewTextHandler(io.Discard, nil)))
	}()

	// файл пишет "внешний" процесс — мимо FlowRepo
	flow := newFlow("acme", "External", time.Now().UTC())
	rec := &flowRecord{Flow: *flow}
	path := store.path(flowsDir, flow.ID)

	assert.Eventually(t, func() bool {
		if _, err := store.Flows().GetByID(context.Background(), flow.ID); err == nil {
			return true
		}
		_ = writeJSON(path, rec)
		return false
	}, 10*time.Second, 500*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not stop after cancel")
	}
}
