package sync

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adbsync/adbsync/fs"
	"github.com/adbsync/adbsync/internal/testlogging"
)

func pairOf(src, dst *fs.Entry) Pair {
	return Pair{Source: src, Dest: dst}
}

func TestBuildPlanTimeMode(t *testing.T) {
	ctx := testlogging.Context(t)

	d := DiffResult{
		Pairs: []Pair{
			pairOf(
				&fs.Entry{Name: "newer", Kind: fs.KindFile, Size: 5, ModTime: 2000},
				&fs.Entry{Name: "newer", Kind: fs.KindFile, Size: 5, ModTime: 1000},
			),
			pairOf(
				&fs.Entry{Name: "older", Kind: fs.KindFile, Size: 5, ModTime: 1000},
				&fs.Entry{Name: "older", Kind: fs.KindFile, Size: 5, ModTime: 2000},
			),
			pairOf(
				&fs.Entry{Name: "same", Kind: fs.KindFile, Size: 5, ModTime: 1000},
				&fs.Entry{Name: "same", Kind: fs.KindFile, Size: 5, ModTime: 1000},
			),
			pairOf(
				&fs.Entry{Name: "same-time-diff-size", Kind: fs.KindFile, Size: 5, ModTime: 1000},
				&fs.Entry{Name: "same-time-diff-size", Kind: fs.KindFile, Size: 9, ModTime: 1000},
			),
		},
	}

	plan, err := BuildPlan(ctx, nil, nil, d, PolicyOptions{Mode: ModeTime}, fs.NullDigestProgress)
	require.NoError(t, err)

	// only the strictly newer source is transferred; a newer destination and
	// an equal-time size mismatch are ambiguous and skipped
	require.Equal(t, []string{"newer"}, names(plan.Transfer))
	require.Empty(t, plan.Reverse)
	require.Empty(t, plan.Touch)
}

func TestBuildPlanSizeMode(t *testing.T) {
	ctx := testlogging.Context(t)

	d := DiffResult{
		Pairs: []Pair{
			pairOf(
				&fs.Entry{Name: "same-size", Kind: fs.KindFile, Size: 5, ModTime: 9999},
				&fs.Entry{Name: "same-size", Kind: fs.KindFile, Size: 5, ModTime: 0},
			),
			pairOf(
				&fs.Entry{Name: "diff-size", Kind: fs.KindFile, Size: 5, ModTime: 0},
				&fs.Entry{Name: "diff-size", Kind: fs.KindFile, Size: 6, ModTime: 9999},
			),
		},
	}

	plan, err := BuildPlan(ctx, nil, nil, d, PolicyOptions{Mode: ModeSize}, fs.NullDigestProgress)
	require.NoError(t, err)

	// time is ignored entirely in size mode
	require.Equal(t, []string{"diff-size"}, names(plan.Transfer))
}

func TestBuildPlanChecksumMode(t *testing.T) {
	ctx := testlogging.Context(t)

	src := newFakeProvider("/src", fs.LocationLocal)
	dst := newFakeProvider("/dst", fs.LocationRemote)

	src.addFile("changed", 5, 1000, "aaaa")
	dst.addFile("changed", 5, 1000, "bbbb")

	src.addFile("time-drift", 5, 2000, "cccc")
	dst.addFile("time-drift", 5, 1000, "cccc")

	src.addFile("identical", 5, 1000, "dddd")
	dst.addFile("identical", 5, 1000, "dddd")

	src.addFile("size-diff", 5, 1000, "eeee")
	dst.addFile("size-diff", 7, 1000, "ffff")

	var pairs []Pair
	srcList, dstList := src.listing(), dst.listing()

	for i := range srcList {
		pairs = append(pairs, pairOf(srcList[i], dstList[i]))
	}

	plan, err := BuildPlan(ctx, src, dst, DiffResult{Pairs: pairs}, PolicyOptions{Mode: ModeChecksum}, fs.NullDigestProgress)
	require.NoError(t, err)

	// size-diff needs no digest, changed fails digest comparison; time-drift
	// has identical content and only gets its timestamp corrected
	require.Equal(t, []string{"changed", "size-diff"}, names(plan.Transfer))
	require.Len(t, plan.Touch, 1)
	require.Equal(t, "time-drift", plan.Touch[0].Entry.Name)
	require.Equal(t, int64(2000), plan.Touch[0].ModTime)
}

func TestBuildPlanTwoWayMode(t *testing.T) {
	ctx := testlogging.Context(t)

	d := DiffResult{
		Pairs: []Pair{
			pairOf(
				&fs.Entry{Name: "src-newer", Kind: fs.KindFile, Size: 5, ModTime: 2000},
				&fs.Entry{Name: "src-newer", Kind: fs.KindFile, Size: 5, ModTime: 1000},
			),
			pairOf(
				&fs.Entry{Name: "dst-newer", Kind: fs.KindFile, Size: 5, ModTime: 1000},
				&fs.Entry{Name: "dst-newer", Kind: fs.KindFile, Size: 5, ModTime: 2000},
			),
		},
		Delete: fs.Entries{
			{Name: "dst-only", Kind: fs.KindFile, Size: 3},
			{Name: "dst-only-ignored", Kind: fs.KindFile, Size: 3, Ignored: true},
		},
	}

	plan, err := BuildPlan(ctx, nil, nil, d, PolicyOptions{Mode: ModeTwoWay, Delete: false}, fs.NullDigestProgress)
	require.NoError(t, err)

	require.Equal(t, []string{"src-newer"}, names(plan.Transfer))

	// destination-only entries flow back instead of being deleted
	require.Equal(t, []string{"dst-newer", "dst-only"}, names(plan.Reverse))
	require.Empty(t, plan.Delete)
}

func TestBuildPlanDeleteGate(t *testing.T) {
	ctx := testlogging.Context(t)

	d := DiffResult{
		Delete: fs.Entries{{Name: "extra", Kind: fs.KindFile}},
	}

	plan, err := BuildPlan(ctx, nil, nil, d, PolicyOptions{Mode: ModeTime, Delete: false}, fs.NullDigestProgress)
	require.NoError(t, err)
	require.Empty(t, plan.Delete)

	plan, err = BuildPlan(ctx, nil, nil, d, PolicyOptions{Mode: ModeTime, Delete: true}, fs.NullDigestProgress)
	require.NoError(t, err)
	require.Equal(t, []string{"extra"}, names(plan.Delete))
}

func TestBuildPlanTransferOrder(t *testing.T) {
	ctx := testlogging.Context(t)

	d := DiffResult{
		Transfer: fs.Entries{
			{Name: "z", Kind: fs.KindFile},
			{Name: "a/b", Kind: fs.KindFile},
			{Name: "a", Kind: fs.KindDirectory},
		},
	}

	plan, err := BuildPlan(ctx, nil, nil, d, PolicyOptions{Mode: ModeTime}, fs.NullDigestProgress)
	require.NoError(t, err)

	// parents must precede children
	require.Equal(t, []string{"a", "a/b", "z"}, names(plan.Transfer))
}

func TestModeString(t *testing.T) {
	require.Equal(t, "time", ModeTime.String())
	require.Equal(t, "size", ModeSize.String())
	require.Equal(t, "checksum", ModeChecksum.String())
	require.Equal(t, "two-way", ModeTwoWay.String())
}
