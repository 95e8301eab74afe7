package sync

import (
	"context"

	"github.com/pkg/errors"

	"github.com/adbsync/adbsync/fs"
	"github.com/adbsync/adbsync/internal/ignore"
)

// Options configures one synchronization run.
type Options struct {
	Mode           Mode
	Delete         bool
	DetectMoves    bool
	FollowSymlinks bool
	Exclusions     *ignore.Matcher

	// Progress receives digest computation progress; nil disables reporting.
	Progress fs.DigestProgress
}

// Validate enforces option compatibility before any work starts.
func (o *Options) Validate() error {
	if o.Mode == ModeTwoWay {
		switch {
		case o.Delete:
			return errors.New("two-way mode is incompatible with deletion")
		case o.DetectMoves:
			return errors.New("two-way mode is incompatible with move detection")
		case o.FollowSymlinks:
			return errors.New("two-way mode is incompatible with symlink following")
		}
	}

	if o.DetectMoves && !o.Delete {
		return errors.New("move detection requires deletion to be enabled")
	}

	return nil
}

// Result summarizes one synchronization run.
type Result struct {
	Counters

	SourceEntries int
	DestEntries   int
}

// Synchronize reconciles the contents of the source root into the destination
// root (or both ways in two-way mode). The remote side's listing and digest
// commands are always submitted before the corresponding local work runs, so
// total wall time approaches the maximum of the two, not the sum.
func Synchronize(ctx context.Context, src, dst fs.Provider, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if opts.Progress == nil {
		opts.Progress = fs.NullDigestProgress
	}

	if _, err := src.EnsureRoot(ctx, opts.Mode == ModeTwoWay); err != nil {
		return nil, err
	}

	if _, err := dst.EnsureRoot(ctx, true); err != nil {
		return nil, err
	}

	srcEntries, dstEntries, err := listBoth(ctx, src, dst, opts)
	if err != nil {
		return nil, err
	}

	if err := rejectSymlinks(dstEntries, dst.Root()); err != nil {
		return nil, err
	}

	if opts.Mode == ModeTwoWay {
		if err := rejectSymlinks(srcEntries, src.Root()); err != nil {
			return nil, err
		}
	}

	log(ctx).Debugf("indexed %v source and %v destination entr(ies)", len(srcEntries), len(dstEntries))

	d := Diff(ctx, srcEntries, dstEntries, opts.Delete)

	var renamed int

	if opts.DetectMoves {
		renamed, err = DetectMoves(ctx, src, dst, &d, opts.Progress)
		if err != nil {
			return nil, err
		}
	}

	plan, err := BuildPlan(ctx, src, dst, d, PolicyOptions{Mode: opts.Mode, Delete: opts.Delete}, opts.Progress)
	if err != nil {
		return nil, err
	}

	ex := &Executor{Source: src, Dest: dst}

	counters, err := ex.Apply(ctx, plan)
	counters.Renamed = renamed

	if err != nil {
		return nil, err
	}

	return &Result{
		Counters:      counters,
		SourceEntries: len(srcEntries),
		DestEntries:   len(dstEntries),
	}, nil
}

// listBoth indexes both roots, submitting the remote listing command before
// the local indexing runs and consuming its response only afterwards.
func listBoth(ctx context.Context, src, dst fs.Provider, opts Options) (srcEntries, dstEntries fs.Entries, err error) {
	srcJob, err := src.BeginList(ctx, opts.FollowSymlinks, opts.Exclusions)
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to start source listing")
	}

	dstJob, err := dst.BeginList(ctx, opts.FollowSymlinks, opts.Exclusions)
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to start destination listing")
	}

	if src.Location() == fs.LocationRemote && dst.Location() == fs.LocationLocal {
		dstEntries, err = dstJob.Wait(ctx)
		if err != nil {
			return nil, nil, errors.Wrap(err, "unable to index destination")
		}

		srcEntries, err = srcJob.Wait(ctx)
		if err != nil {
			return nil, nil, errors.Wrap(err, "unable to index source")
		}

		return srcEntries, dstEntries, nil
	}

	srcEntries, err = srcJob.Wait(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to index source")
	}

	dstEntries, err = dstJob.Wait(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to index destination")
	}

	return srcEntries, dstEntries, nil
}

// rejectSymlinks enforces that a destination tree contains no symlinks.
func rejectSymlinks(entries fs.Entries, root string) error {
	for _, e := range entries {
		if e.Kind == fs.KindSymlink {
			return errors.Errorf("destination %v contains a symlink: %v", root, e.Name)
		}
	}

	return nil
}
