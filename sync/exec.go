package sync

import (
	"context"
	"path"

	"github.com/pkg/errors"

	"github.com/adbsync/adbsync/fs"
)

// Counters accumulates the work performed by one run.
type Counters struct {
	TransferredFiles int
	TransferredBytes int64
	CreatedDirs      int
	DeletedFiles     int
	DeletedDirs      int
	Touched          int
	Renamed          int
}

// Executor applies a plan via the tree providers. Deletions run first, in
// reverse listing order; then transfers in listing order; then timestamp
// corrections. All failures except renames are fatal and abort the run with
// prior mutations left applied.
type Executor struct {
	Source fs.Provider
	Dest   fs.Provider
}

// Apply executes all planned actions and returns the work counters.
func (e *Executor) Apply(ctx context.Context, plan *Plan) (Counters, error) {
	var c Counters

	if err := e.applyDeletions(ctx, plan.Delete, &c); err != nil {
		return c, err
	}

	if err := applyTransfers(ctx, e.Source, e.Dest, plan.Transfer, &c); err != nil {
		return c, err
	}

	// two-way reverse transfers swap the provider roles
	if err := applyTransfers(ctx, e.Dest, e.Source, plan.Reverse, &c); err != nil {
		return c, err
	}

	for _, t := range plan.Touch {
		if err := e.Dest.SetModTime(ctx, t.Entry.Name, t.ModTime); err != nil {
			return c, err
		}

		c.Touched++
	}

	return c, nil
}

// applyDeletions removes destination-only entries in reverse listing order so
// a directory's contents are removed before the directory itself. Ignored
// entries are skipped with a protective note, and protection propagates so a
// skipped child also protects its ancestor directories in the same pass.
func (e *Executor) applyDeletions(ctx context.Context, del fs.Entries, c *Counters) error {
	protected := map[string]bool{}

	protect := func(name string) {
		if parent := path.Dir(name); parent != "." {
			protected[parent] = true
		}
	}

	for i := len(del) - 1; i >= 0; i-- {
		en := del[i]

		switch {
		case en.Ignored:
			log(ctx).Debugf("not deleting ignored %v", en.Name)
			protect(en.Name)

		case protected[en.Name]:
			log(ctx).Debugf("not deleting %v, it contains protected entries", en.Name)
			protect(en.Name)

		case en.Kind == fs.KindDirectory:
			if err := e.Dest.RemoveDir(ctx, en.Name); err != nil {
				return err
			}

			c.DeletedDirs++

		default:
			if err := e.Dest.Remove(ctx, en.Name); err != nil {
				return err
			}

			c.DeletedFiles++
		}
	}

	return nil
}

func applyTransfers(ctx context.Context, from, to fs.Provider, entries fs.Entries, c *Counters) error {
	for _, en := range entries {
		// directories are realized as an empty directory creation; the
		// recursion is driven by the diff emitting one action per entry
		if en.Kind == fs.KindDirectory {
			if err := to.MakeDir(ctx, en.Name); err != nil {
				return err
			}

			c.CreatedDirs++

			continue
		}

		if err := from.TransferInto(ctx, en, to.Root()); err != nil {
			return errors.Wrapf(err, "unable to transfer %v", en.Name)
		}

		c.TransferredFiles++
		c.TransferredBytes += en.Size
	}

	return nil
}
