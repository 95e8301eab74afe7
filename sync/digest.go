package sync

import (
	"context"

	"github.com/pkg/errors"

	"github.com/adbsync/adbsync/fs"
)

// digestBoth computes content digests for entry lists on both providers,
// overlapping remote and local computation: remote digest commands are
// submitted by BeginDigest without waiting, local digests are computed first,
// and only then are the remote results collected.
func digestBoth(ctx context.Context, srcP fs.Provider, srcE fs.Entries, dstP fs.Provider, dstE fs.Entries, progress fs.DigestProgress) (srcDigests, dstDigests []string, err error) {
	srcJob, err := srcP.BeginDigest(ctx, srcE, progress)
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to start source digest")
	}

	dstJob, err := dstP.BeginDigest(ctx, dstE, progress)
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to start destination digest")
	}

	// wait on the local side first so it computes while the remote command runs
	if srcP.Location() == fs.LocationRemote && dstP.Location() == fs.LocationLocal {
		dstDigests, err = dstJob.Wait(ctx)
		if err != nil {
			return nil, nil, errors.Wrap(err, "destination digest failed")
		}

		srcDigests, err = srcJob.Wait(ctx)
		if err != nil {
			return nil, nil, errors.Wrap(err, "source digest failed")
		}
	} else {
		srcDigests, err = srcJob.Wait(ctx)
		if err != nil {
			return nil, nil, errors.Wrap(err, "source digest failed")
		}

		dstDigests, err = dstJob.Wait(ctx)
		if err != nil {
			return nil, nil, errors.Wrap(err, "destination digest failed")
		}
	}

	if len(srcDigests) != len(srcE) || len(dstDigests) != len(dstE) {
		return nil, nil, errors.Errorf("digest count mismatch: %v/%v source, %v/%v destination",
			len(srcDigests), len(srcE), len(dstDigests), len(dstE))
	}

	return srcDigests, dstDigests, nil
}
