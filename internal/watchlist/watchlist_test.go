package watchlist

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestNew(t *testing.T) {
	w := New([]string{"alice\r", "", "  ", "bob", "alice", "carol"})

	if got, want := w.Names(), []string{"alice", "bob", "carol"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Names = %v, want %v", got, want)
	}
	if !w.Contains("bob") || w.Contains("dave") || w.Contains("") {
		t.Fatal("unexpected membership")
	}
	if w.Len() != 3 {
		t.Fatalf("Len = %d", w.Len())
	}
}

func TestEqual(t *testing.T) {
	a := New([]string{"alice", "bob"})

	if !a.Equal(New([]string{"alice", "bob", ""})) {
		t.Error("expected equal watchlists")
	}
	if a.Equal(New([]string{"bob", "alice"})) {
		t.Error("order change must be detected")
	}
	if a.Equal(New([]string{"alicebob"})) {
		t.Error("concatenation must not collide")
	}
	if !New(nil).Equal(New([]string{"", "\r"})) {
		t.Error("empty watchlists must be equal")
	}
}

func TestLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.txt")
	loader := NewLoader(path)

	if _, ok := loader.Load(); ok {
		t.Fatal("missing file must not load")
	}

	if err := os.WriteFile(path, []byte("alice\nbob\n"), 0600); err != nil {
		t.Fatal(err)
	}

	first, ok := loader.Load()
	if !ok {
		t.Fatal("expected load to succeed")
	}
	if !first.Contains("alice") || !first.Contains("bob") {
		t.Fatalf("unexpected names %v", first.Names())
	}

	second, _ := loader.Load()
	if !first.Equal(second) {
		t.Fatal("reloading unchanged file must yield an equal watchlist")
	}

	if err := os.WriteFile(path, []byte("alice\n"), 0600); err != nil {
		t.Fatal(err)
	}
	third, _ := loader.Load()
	if first.Equal(third) {
		t.Fatal("changed file must yield a different watchlist")
	}
}

func TestLoaderReusesUnchangedContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.txt")
	loader := NewLoader(path)

	if err := os.WriteFile(path, []byte("alice\nbob\n"), 0600); err != nil {
		t.Fatal(err)
	}

	first, _ := loader.Load()
	second, ok := loader.Load()
	if !ok {
		t.Fatal("expected load to succeed")
	}
	if reflect.ValueOf(first.set).Pointer() != reflect.ValueOf(second.set).Pointer() {
		t.Fatal("unchanged file must return the cached watchlist")
	}

	if err := os.WriteFile(path, []byte("alice\nbob\ncarol\n"), 0600); err != nil {
		t.Fatal(err)
	}

	third, _ := loader.Load()
	if reflect.ValueOf(first.set).Pointer() == reflect.ValueOf(third.set).Pointer() {
		t.Fatal("changed file must rebuild the watchlist")
	}
	if !third.Contains("carol") || first.Equal(third) {
		t.Fatalf("unexpected names %v", third.Names())
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if _, ok := loader.Load(); ok {
		t.Fatal("removed file must not load")
	}
}
