package localfs

import (
	"context"
	"crypto/md5" //nolint:gosec
	"encoding/hex"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/adbsync/adbsync/fs"
)

// md5 matches the digest the remote side's md5sum tool produces; the digest
// is used purely for equality testing, never as an integrity guarantee.

const digestBufferSize = 1 << 20

type localDigestJob struct {
	p        *localProvider
	entries  fs.Entries
	progress fs.DigestProgress
}

func (p *localProvider) BeginDigest(ctx context.Context, entries fs.Entries, progress fs.DigestProgress) (fs.DigestJob, error) {
	if progress == nil {
		progress = fs.NullDigestProgress
	}

	// computation is deferred to Wait so a remote digest command submitted
	// first can execute while the local digests are produced
	return &localDigestJob{p: p, entries: entries, progress: progress}, nil
}

func (j *localDigestJob) Wait(ctx context.Context) ([]string, error) {
	var total int64

	for _, e := range j.entries {
		total += e.Size
	}

	j.progress.EstimatedDigestBytes(total)

	digests := make([]string, 0, len(j.entries))

	for _, e := range j.entries {
		d, err := j.digestFile(ctx, e)
		if err != nil {
			return nil, err
		}

		digests = append(digests, d)
	}

	return digests, nil
}

func (j *localDigestJob) digestFile(ctx context.Context, e *fs.Entry) (string, error) {
	f, err := os.Open(j.p.abs(e.Name)) //nolint:gosec
	if err != nil {
		return "", errors.Wrapf(err, "unable to open %v for digest", e.Name)
	}
	defer f.Close() //nolint:errcheck

	h := md5.New() //nolint:gosec
	buf := make([]byte, digestBufferSize)

	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n]) //nolint:errcheck
			j.progress.DigestedBytes(int64(n))
		}

		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return "", errors.Wrapf(err, "error reading %v", e.Name)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
