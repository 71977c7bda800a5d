// Package storagetest opens an isolated in-memory sqlite storage for tests.
package storagetest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/tajious/ejare/internal/storage"
)

func New(t testing.TB) *storage.GormStorage {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	store, err := storage.NewSQLiteStorage(dsn, nil)
	if err != nil {
		t.Fatalf("open sqlite storage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
