// Package watchlist loads the list of watched player names.
package watchlist

import (
	"os"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Watchlist is an immutable ordered set of watched player names.
type Watchlist struct {
	set   map[string]struct{}
	names []string
	sum   uint64
}

// New builds a watchlist from names, dropping blank entries and duplicates while keeping order.
func New(names []string) Watchlist {
	w := Watchlist{set: make(map[string]struct{}, len(names))}
	digest := xxhash.New()

	for _, name := range names {
		name = strings.TrimRight(name, "\r")
		if strings.TrimSpace(name) == "" {
			continue
		}
		if _, ok := w.set[name]; ok {
			continue
		}

		w.set[name] = struct{}{}
		w.names = append(w.names, name)
		_, _ = digest.WriteString(name)
		_, _ = digest.Write([]byte{0})
	}
	w.sum = digest.Sum64()

	return w
}

// Contains reports whether name is watched.
func (w Watchlist) Contains(name string) bool {
	_, ok := w.set[name]
	return ok
}

// Names returns a copy of the watched names in file order.
func (w Watchlist) Names() []string {
	return slices.Clone(w.names)
}

// Len returns the number of watched names.
func (w Watchlist) Len() int {
	return len(w.names)
}

// Equal reports whether both watchlists hold the same names in the same order.
// Names are compared by digest.
func (w Watchlist) Equal(other Watchlist) bool {
	return w.sum == other.sum && len(w.names) == len(other.names)
}

// Loader reads the watchlist file and rebuilds it only when the content changes.
// It is not safe for concurrent use.
type Loader struct {
	path   string
	last   Watchlist
	digest uint64
	loaded bool
}

// NewLoader returns a loader for the newline-delimited names file at path.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Path returns the watched file path.
func (l *Loader) Path() string {
	return l.path
}

// Load reads the whole file. It returns false when the file cannot be read,
// in which case the caller keeps its previous watchlist.
func (l *Loader) Load() (Watchlist, bool) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return Watchlist{}, false
	}

	digest := xxhash.Sum64(data)
	if l.loaded && digest == l.digest {
		return l.last, true
	}

	l.last = New(strings.Split(string(data), "\n"))
	l.digest = digest
	l.loaded = true

	return l.last, true
}
