package sync

import (
	"context"

	"github.com/adbsync/adbsync/fs"
)

// DetectMoves finds files that were renamed or relocated within the
// destination tree and converts each matching delete+transfer pair into a
// single rename, avoiding a redundant transfer.
//
// Candidates are matched on exact (size, modTime); equality is then verified
// by content digest before the rename is attempted. A failed rename or a
// digest mismatch leaves both entries on the ordinary transfer+delete path.
// Returns the number of renames performed.
func DetectMoves(ctx context.Context, srcP, dstP fs.Provider, d *DiffResult, progress fs.DigestProgress) (int, error) {
	verifySrc, verifyDst := moveCandidates(d.Transfer, d.Delete)
	if len(verifySrc) == 0 {
		return 0, nil
	}

	log(ctx).Debugf("verifying %v move candidate pair(s)", len(verifySrc))

	srcDigests, dstDigests, err := digestBoth(ctx, srcP, verifySrc, dstP, verifyDst, progress)
	if err != nil {
		return 0, err
	}

	moved := map[*fs.Entry]bool{}
	renamed := 0

	for k := range verifySrc {
		s, de := verifySrc[k], verifyDst[k]

		if srcDigests[k] != dstDigests[k] {
			// size+time alone was a false positive
			log(ctx).Debugf("%v and %v differ in content, not a move", de.Name, s.Name)
			continue
		}

		if moved[s] || moved[de] {
			continue
		}

		if !dstP.Rename(ctx, de.Name, s.Name) {
			continue
		}

		moved[s] = true
		moved[de] = true
		renamed++
	}

	if renamed > 0 {
		d.Transfer = dropEntries(d.Transfer, moved)
		d.Delete = dropEntries(d.Delete, moved)
	}

	return renamed, nil
}

// moveCandidates re-sorts both candidate sets by (size, modTime) and merges
// them with two pointers, pairing entries whose keys match exactly. Non-file,
// zero-size and ignored entries are never move candidates; zero-size files
// are indistinguishable by content.
func moveCandidates(transfer, del fs.Entries) (verifySrc, verifyDst fs.Entries) {
	ts := filterMovable(transfer).SortedBySizeTime()
	ds := filterMovable(del).SortedBySizeTime()

	i, j := 0, 0

	for i < len(ts) && j < len(ds) {
		s, d := ts[i], ds[j]

		switch {
		case s.Size == d.Size && s.ModTime == d.ModTime:
			verifySrc = append(verifySrc, s)
			verifyDst = append(verifyDst, d)

			i++
			j++

		case s.Size < d.Size || (s.Size == d.Size && s.ModTime < d.ModTime):
			i++

		default:
			j++
		}
	}

	return verifySrc, verifyDst
}

func filterMovable(entries fs.Entries) fs.Entries {
	var result fs.Entries

	for _, e := range entries {
		if e.Kind != fs.KindFile || e.Size == 0 || e.Ignored {
			continue
		}

		result = append(result, e)
	}

	return result
}

func dropEntries(entries fs.Entries, drop map[*fs.Entry]bool) fs.Entries {
	result := entries[:0]

	for _, e := range entries {
		if !drop[e] {
			result = append(result, e)
		}
	}

	return result
}
