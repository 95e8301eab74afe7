// Package fs defines the normalized model of filesystem entries used by the
// synchronizer.
package fs

import "sort"

// Kind is the type of a filesystem entry.
type Kind int

// Supported entry kinds. Any other object type encountered during indexing is
// a fatal error.
const (
	KindFile Kind = iota
	KindDirectory
	KindSymlink
)

func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindSymlink:
		return "symlink"
	default:
		return "file"
	}
}

// Entry represents one filesystem object under a synchronized root.
//
// Name is the sole identity of an entry within a listing: two entries denote
// the same path iff their names are equal, independent of other fields.
type Entry struct {
	// Name is the path relative to the root, using forward slashes.
	Name string

	Kind Kind

	// Size is the byte length; meaningful for files only.
	Size int64

	// ModTime is the modification time in integer seconds, truncated to an
	// even second to match the remote filesystem's timestamp granularity.
	ModTime int64

	// Ignored is set when the entry matched an exclusion pattern during
	// indexing. Ignored entries are indexed so their presence is known, but
	// are never transferred and protect their parents from deletion.
	Ignored bool
}

// TruncateModTime truncates a timestamp in seconds to an even second.
// The remote filesystem records timestamps at two-second granularity; both
// sides must be compared at that granularity or spurious differences appear
// on every run.
func TruncateModTime(seconds int64) int64 {
	return seconds &^ 1
}

// Entries is a listing of one root.
type Entries []*Entry

// SortByName sorts the listing by name using byte-wise lexicographic order.
func (e Entries) SortByName() {
	sort.Slice(e, func(i, j int) bool {
		return e[i].Name < e[j].Name
	})
}

// SortedBySizeTime returns a copy of the listing sorted by (size, modTime)
// ascending. Sorting is a view, not a mutation of identity.
func (e Entries) SortedBySizeTime() Entries {
	s := append(Entries(nil), e...)

	sort.Slice(s, func(i, j int) bool {
		if s[i].Size != s[j].Size {
			return s[i].Size < s[j].Size
		}

		return s[i].ModTime < s[j].ModTime
	})

	return s
}

// FindByName returns the entry with the given name in a name-sorted listing,
// or nil if not found.
func (e Entries) FindByName(n string) *Entry {
	i := sort.Search(len(e), func(i int) bool {
		return e[i].Name >= n
	})

	if i < len(e) && e[i].Name == n {
		return e[i]
	}

	return nil
}
