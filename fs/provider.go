package fs

import (
	"context"

	"github.com/adbsync/adbsync/internal/ignore"
)

// Location distinguishes where a provider's root lives. Policy code branches
// on this explicit enum, never on concrete provider types.
type Location int

// Provider locations.
const (
	LocationLocal Location = iota
	LocationRemote
)

// Provider produces a complete listing of one synchronized root and performs
// the primitive mutating operations against it. Implementations exist for a
// local directory and for a directory reachable over a remote shell session.
//
// All mutators honor a dry-run configuration supplied at construction: no
// mutation is performed but it is still logged as if it had occurred, and
// exists-style queries behave as though the mutation had happened.
type Provider interface {
	// Root returns the root path of this provider.
	Root() string

	// Location reports whether the root is local or remote.
	Location() Location

	// EnsureRoot verifies the root exists, creating it if absent and
	// isDestination. It returns false when the root is (still) absent, which
	// under dry-run is remembered for the rest of the run.
	EnsureRoot(ctx context.Context, isDestination bool) (exists bool, err error)

	// BeginList starts a full recursive index of the root. Remote
	// implementations submit the listing command without waiting so local
	// work can proceed while it runs.
	BeginList(ctx context.Context, followSymlinks bool, excl *ignore.Matcher) (ListJob, error)

	// BeginDigest starts computing one content digest per input entry, in the
	// same order. Remote implementations submit the digest command without
	// waiting; local implementations defer computation to Wait.
	BeginDigest(ctx context.Context, entries Entries, progress DigestProgress) (DigestJob, error)

	// TransferInto copies one file entry from this provider's root into the
	// other root's location, preserving metadata as far as the transport
	// allows. Directory creation is not handled here; the caller realizes
	// directories via MakeDir on the destination.
	TransferInto(ctx context.Context, e *Entry, otherRoot string) error

	// Remove deletes one file or symlink.
	Remove(ctx context.Context, name string) error

	// RemoveDir deletes one (empty) directory.
	RemoveDir(ctx context.Context, name string) error

	// MakeDir creates one directory.
	MakeDir(ctx context.Context, name string) error

	// Rename moves an entry within the root. Renaming is advisory: failure is
	// never fatal and just means the caller does it the slow way instead.
	Rename(ctx context.Context, oldName, newName string) bool

	// SetModTime sets the modification time (seconds) of an entry.
	SetModTime(ctx context.Context, name string, mtime int64) error
}

// ListJob is a pending listing whose result is consumed later, enabling the
// remote/local indexing overlap.
type ListJob interface {
	Wait(ctx context.Context) (Entries, error)
}

// DigestJob is a pending digest computation whose result is consumed later.
type DigestJob interface {
	Wait(ctx context.Context) ([]string, error)
}

// DigestProgress receives digest computation progress.
type DigestProgress interface {
	EstimatedDigestBytes(total int64)
	DigestedBytes(n int64)
}

// NullDigestProgress discards all progress updates.
//
//nolint:gochecknoglobals
var NullDigestProgress DigestProgress = nullDigestProgress{}

type nullDigestProgress struct{}

func (nullDigestProgress) EstimatedDigestBytes(total int64) {}
func (nullDigestProgress) DigestedBytes(n int64)            {}
