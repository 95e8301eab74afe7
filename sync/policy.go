package sync

import (
	"context"

	"github.com/adbsync/adbsync/fs"
)

// Mode selects the change-detection strategy for comparable pairs.
type Mode int

// Comparison modes.
const (
	// ModeTime transfers when the source is newer; a newer destination or an
	// equal-time size mismatch is ambiguous and only warned about.
	ModeTime Mode = iota

	// ModeSize transfers iff sizes differ; modification time is ignored.
	ModeSize

	// ModeChecksum compares content digests for equal-size pairs and
	// corrects the destination timestamp when only the time differs.
	ModeChecksum

	// ModeTwoWay reconciles in both directions; the newer side wins.
	ModeTwoWay
)

func (m Mode) String() string {
	switch m {
	case ModeSize:
		return "size"
	case ModeChecksum:
		return "checksum"
	case ModeTwoWay:
		return "two-way"
	default:
		return "time"
	}
}

// TouchAction corrects the timestamp of one destination entry whose content
// already matches the source.
type TouchAction struct {
	Entry   *fs.Entry
	ModTime int64
}

// Plan is the final list of actions the executor applies.
type Plan struct {
	// Transfer lists entries copied source to destination, in listing order.
	Transfer fs.Entries

	// Reverse lists entries copied destination to source (two-way only).
	Reverse fs.Entries

	// Delete lists destination entries to remove, in listing order.
	Delete fs.Entries

	// Touch lists destination timestamp corrections (checksum mode).
	Touch []TouchAction
}

// PolicyOptions configures plan construction.
type PolicyOptions struct {
	Mode Mode

	// Delete enables removal of destination-only entries.
	Delete bool
}

// BuildPlan turns diff results into the final action lists under the chosen
// comparison mode. For checksum mode, digests of equal-size pairs are
// computed with the remote and local sides overlapping.
func BuildPlan(ctx context.Context, srcP, dstP fs.Provider, d DiffResult, opts PolicyOptions, progress fs.DigestProgress) (*Plan, error) {
	p := &Plan{Transfer: d.Transfer}

	switch opts.Mode {
	case ModeTime:
		for _, pair := range d.Pairs {
			p.resolveByTime(ctx, pair)
		}

	case ModeSize:
		for _, pair := range d.Pairs {
			if pair.Source.Size != pair.Dest.Size {
				p.Transfer = append(p.Transfer, pair.Source)
			}
		}

	case ModeChecksum:
		if err := p.resolveByChecksum(ctx, srcP, dstP, d.Pairs, progress); err != nil {
			return nil, err
		}

	case ModeTwoWay:
		for _, pair := range d.Pairs {
			p.resolveTwoWay(ctx, pair)
		}

		// entries present on one side only are copied toward the other;
		// this can resurrect deletions
		p.Reverse = append(p.Reverse, keepUnignored(d.Delete)...)
	}

	if opts.Mode != ModeTwoWay {
		if opts.Delete {
			p.Delete = d.Delete
		} else if len(d.Delete) > 0 {
			log(ctx).Debugf("%v destination-only entr(ies) left in place; enable deletion to remove", len(d.Delete))
		}
	}

	// plan transfers in listing order so parents precede children
	p.Transfer.SortByName()
	p.Reverse.SortByName()

	return p, nil
}

func (p *Plan) resolveByTime(ctx context.Context, pair Pair) {
	s, d := pair.Source, pair.Dest

	switch {
	case s.ModTime > d.ModTime:
		p.Transfer = append(p.Transfer, s)

	case s.ModTime < d.ModTime:
		log(ctx).Warnf("%v is newer in the destination, not touching", s.Name)

	case s.Size != d.Size:
		log(ctx).Warnf("%v has the same modification time but different sizes (%v vs %v), not touching", s.Name, s.Size, d.Size)
	}
}

func (p *Plan) resolveTwoWay(ctx context.Context, pair Pair) {
	s, d := pair.Source, pair.Dest

	switch {
	case s.ModTime > d.ModTime:
		p.Transfer = append(p.Transfer, s)

	case s.ModTime < d.ModTime:
		p.Reverse = append(p.Reverse, d)

	case s.Size != d.Size:
		log(ctx).Warnf("%v has the same modification time but different sizes (%v vs %v), not touching", s.Name, s.Size, d.Size)
	}
}

func (p *Plan) resolveByChecksum(ctx context.Context, srcP, dstP fs.Provider, pairs []Pair, progress fs.DigestProgress) error {
	var equalSize []Pair

	for _, pair := range pairs {
		// differing size means differing content, no digest needed
		if pair.Source.Size != pair.Dest.Size {
			p.Transfer = append(p.Transfer, pair.Source)
			continue
		}

		equalSize = append(equalSize, pair)
	}

	if len(equalSize) == 0 {
		return nil
	}

	srcE := make(fs.Entries, 0, len(equalSize))
	dstE := make(fs.Entries, 0, len(equalSize))

	for _, pair := range equalSize {
		srcE = append(srcE, pair.Source)
		dstE = append(dstE, pair.Dest)
	}

	srcDigests, dstDigests, err := digestBoth(ctx, srcP, srcE, dstP, dstE, progress)
	if err != nil {
		return err
	}

	for k, pair := range equalSize {
		switch {
		case srcDigests[k] != dstDigests[k]:
			p.Transfer = append(p.Transfer, pair.Source)

		case pair.Source.ModTime != pair.Dest.ModTime:
			// content is identical, only the destination timestamp is off
			p.Touch = append(p.Touch, TouchAction{Entry: pair.Dest, ModTime: pair.Source.ModTime})
		}
	}

	return nil
}

func keepUnignored(entries fs.Entries) fs.Entries {
	var result fs.Entries

	for _, e := range entries {
		if !e.Ignored {
			result = append(result, e)
		}
	}

	return result
}
