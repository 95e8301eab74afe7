// Package sync implements the synchronization engine: tree diffing, move
// detection, comparison policy and action execution.
package sync

import (
	"context"

	"github.com/adbsync/adbsync/fs"
	"github.com/adbsync/adbsync/internal/logging"
)

var log = logging.Module("sync")

// Pair is a comparable pair: one entry from each side sharing a name and
// kind, subject to content-comparison policy.
type Pair struct {
	Source *fs.Entry
	Dest   *fs.Entry
}

// DiffResult partitions the union of two listings into disjoint action sets.
type DiffResult struct {
	// Transfer holds entries present in the source only, or the source side
	// of a clobbered kind conflict.
	Transfer fs.Entries

	// Pairs holds file entries present on both sides with the same kind.
	Pairs []Pair

	// Delete holds entries present in the destination only, in listing
	// order; deletion processes them in reverse so directory contents go
	// before the directory itself.
	Delete fs.Entries
}

// Diff merges two name-sorted listings with a linear two-pointer merge-join.
// Clobber resolves kind conflicts by replacement (delete destination,
// transfer source); without it conflicts are logged and left untouched.
func Diff(ctx context.Context, src, dst fs.Entries, clobber bool) DiffResult {
	var r DiffResult

	i, j := 0, 0

	for i < len(src) && j < len(dst) {
		s, d := src[i], dst[j]

		switch {
		case s.Name == d.Name:
			r.diffPair(ctx, s, d, clobber)

			i++
			j++

		case s.Name < d.Name:
			r.addSourceOnly(ctx, s)
			i++

		default:
			r.Delete = append(r.Delete, d)
			j++
		}
	}

	for ; i < len(src); i++ {
		r.addSourceOnly(ctx, src[i])
	}

	for ; j < len(dst); j++ {
		r.Delete = append(r.Delete, dst[j])
	}

	return r
}

func (r *DiffResult) addSourceOnly(ctx context.Context, s *fs.Entry) {
	if s.Ignored {
		log(ctx).Debugf("not transferring ignored %v", s.Name)
		return
	}

	r.Transfer = append(r.Transfer, s)
}

func (r *DiffResult) diffPair(ctx context.Context, s, d *fs.Entry, clobber bool) {
	switch {
	case s.Ignored && d.Ignored:
		log(ctx).Debugf("ignoring %v on both sides", s.Name)

	case s.Ignored || d.Ignored:
		// the matchers should agree; treat a one-sided match as ignored
		log(ctx).Debugf("ignoring %v (excluded on one side)", s.Name)

	case s.Kind == d.Kind:
		if s.Kind == fs.KindFile {
			r.Pairs = append(r.Pairs, Pair{Source: s, Dest: d})
		} else {
			// no content comparison for directories or symlinks
			log(ctx).Debugf("%v already present on both sides", s.Name)
		}

	case clobber:
		log(ctx).Infof("replacing %v %v with %v", d.Kind, d.Name, s.Kind)

		r.Delete = append(r.Delete, d)
		r.Transfer = append(r.Transfer, s)

	default:
		log(ctx).Warnf("kind conflict for %v (%v in source, %v in destination), not touching; enable deletion to replace", s.Name, s.Kind, d.Kind)
	}
}
