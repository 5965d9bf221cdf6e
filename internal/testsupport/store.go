package testsupport

import (
	"context"
	"testing"

	"blogcast/internal/config"
	"blogcast/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewTask creates a new pending task for tests using the provided store.
func NewTask(t testing.TB, store *queue.Store, url string) *queue.Task {
	t.Helper()

	task, err := store.Create(context.Background(), url)
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return task
}
