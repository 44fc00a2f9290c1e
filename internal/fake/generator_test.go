package fake

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/1Michael23/tf2-surveillance/internal/storage"
)

func TestGenerateData(t *testing.T) {
	ctx := context.Background()
	store, err := storage.New(ctx, filepath.Join(t.TempDir(), "fake.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store.Close() }()

	GenerateData(ctx, store, 40)

	counts, err := store.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Servers != servers {
		t.Errorf("servers = %d, want %d", counts.Servers, servers)
	}
	// every server reports up or down each cycle
	if counts.ServerEvents < 40*servers {
		t.Errorf("server events = %d, want at least %d", counts.ServerEvents, 40*servers)
	}
	if counts.Settings < servers {
		t.Errorf("settings = %d, want at least one per server", counts.Settings)
	}
}
