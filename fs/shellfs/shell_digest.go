package shellfs

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/adbsync/adbsync/fs"
)

// digestHexLength is the width of one content digest line prefix: 32 hex
// characters for the 128-bit digest md5sum produces.
const digestHexLength = 32

// maxDigestCommandLen caps one md5sum invocation so the argument list stays
// below the remote shell's command length limit.
const maxDigestCommandLen = 32 << 10

type emptyDigestJob struct{}

func (emptyDigestJob) Wait(ctx context.Context) ([]string, error) { return nil, nil }

type shellDigestJob struct {
	p        *shellProvider
	batches  []string // md5sum command per batch; batches[0] is already in flight
	expected int
}

func (p *shellProvider) BeginDigest(ctx context.Context, entries fs.Entries, progress fs.DigestProgress) (fs.DigestJob, error) {
	if len(entries) == 0 || p.missingRoot {
		return emptyDigestJob{}, nil
	}

	var (
		batches []string
		sb      strings.Builder
	)

	flush := func() {
		if sb.Len() > 0 {
			batches = append(batches, "cd "+quote(p.root)+" && md5sum"+sb.String())
			sb.Reset()
		}
	}

	for _, e := range entries {
		sb.WriteString(" " + quote("./"+e.Name))

		if sb.Len() >= maxDigestCommandLen {
			flush()
		}
	}

	flush()

	// the first batch is submitted without waiting; the caller computes the
	// local digests while it executes remotely
	if err := p.ch.Submit(ctx, batches[0]); err != nil {
		return nil, err //nolint:wrapcheck
	}

	return &shellDigestJob{p: p, batches: batches, expected: len(entries)}, nil
}

func (j *shellDigestJob) Wait(ctx context.Context) ([]string, error) {
	digests := make([]string, 0, j.expected)

	for i := range j.batches {
		if i > 0 {
			if err := j.p.ch.Submit(ctx, j.batches[i]); err != nil {
				return nil, err //nolint:wrapcheck
			}
		}

		for {
			line, ok, err := j.p.ch.NextLine(ctx)
			if err != nil {
				return nil, err //nolint:wrapcheck
			}

			if !ok {
				break
			}

			d, err := parseDigestLine(line)
			if err != nil {
				return nil, err
			}

			digests = append(digests, d)
		}

		if rc := j.p.ch.ReturnCode(); rc != 0 {
			return nil, errors.Errorf("remote digest command failed (rc=%v): %v", rc, strings.TrimSpace(j.p.ch.LastStderr()))
		}
	}

	// a count mismatch means the channel or remote tool diverged from the
	// requested listing
	if len(digests) != j.expected {
		return nil, errors.Errorf("digest count mismatch: requested %v, received %v", j.expected, len(digests))
	}

	return digests, nil
}

func parseDigestLine(line string) (string, error) {
	if len(line) < digestHexLength {
		return "", errors.Errorf("malformed digest line: %q", line)
	}

	d := line[:digestHexLength]

	for i := 0; i < len(d); i++ {
		if !isHexDigit(d[i]) {
			return "", errors.Errorf("malformed digest line: %q", line)
		}
	}

	return strings.ToLower(d), nil
}

func isHexDigit(b byte) bool {
	switch {
	case b >= '0' && b <= '9':
		return true
	case b >= 'a' && b <= 'f':
		return true
	case b >= 'A' && b <= 'F':
		return true
	default:
		return false
	}
}
