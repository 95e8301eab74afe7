package sync

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adbsync/adbsync/fs"
	"github.com/adbsync/adbsync/internal/testlogging"
)

func newFakePair() (src, dst *fakeProvider) {
	src = newFakeProvider("/src", fs.LocationLocal)
	dst = newFakeProvider("/dst", fs.LocationRemote)
	src.peer, dst.peer = dst, src

	return src, dst
}

func TestOptionsValidate(t *testing.T) {
	require.NoError(t, (&Options{Mode: ModeTime}).Validate())
	require.NoError(t, (&Options{Mode: ModeTime, Delete: true, DetectMoves: true}).Validate())

	require.Error(t, (&Options{Mode: ModeTwoWay, Delete: true}).Validate())
	require.Error(t, (&Options{Mode: ModeTwoWay, DetectMoves: true}).Validate())
	require.Error(t, (&Options{Mode: ModeTwoWay, FollowSymlinks: true}).Validate())
	require.Error(t, (&Options{Mode: ModeTime, DetectMoves: true}).Validate())
}

func TestSynchronizeBasic(t *testing.T) {
	ctx := testlogging.Context(t)

	src, dst := newFakePair()

	src.addDir("sub", 1000)
	src.addFile("sub/f.txt", 10, 2000, "d1")
	src.addFile("top.txt", 5, 2000, "d2")
	dst.addFile("stale.txt", 3, 1000, "d3")

	res, err := Synchronize(ctx, src, dst, Options{Mode: ModeTime, Delete: true})
	require.NoError(t, err)

	require.Equal(t, 2, res.TransferredFiles)
	require.Equal(t, int64(15), res.TransferredBytes)
	require.Equal(t, 1, res.CreatedDirs)
	require.Equal(t, 1, res.DeletedFiles)
	require.Equal(t, 3, res.SourceEntries)
	require.Equal(t, 1, res.DestEntries)

	require.Contains(t, dst.entries, "sub")
	require.Contains(t, dst.entries, "sub/f.txt")
	require.Contains(t, dst.entries, "top.txt")
	require.NotContains(t, dst.entries, "stale.txt")
}

func TestSynchronizeIdempotent(t *testing.T) {
	ctx := testlogging.Context(t)

	src, dst := newFakePair()

	src.addDir("sub", 1000)
	src.addFile("sub/f.txt", 10, 2000, "d1")
	dst.addFile("stale.txt", 3, 1000, "d3")

	_, err := Synchronize(ctx, src, dst, Options{Mode: ModeTime, Delete: true})
	require.NoError(t, err)

	// a second run over the result makes no changes
	res, err := Synchronize(ctx, src, dst, Options{Mode: ModeTime, Delete: true})
	require.NoError(t, err)

	require.Equal(t, 0, res.TransferredFiles)
	require.Equal(t, 0, res.CreatedDirs)
	require.Equal(t, 0, res.DeletedFiles)
	require.Equal(t, 0, res.DeletedDirs)
}

func TestSynchronizeMoveDetection(t *testing.T) {
	ctx := testlogging.Context(t)

	src, dst := newFakePair()

	src.addFile("a.txt", 10, 1000, "d1")
	dst.addFile("old/a.txt", 10, 1000, "d1")
	dst.addDir("old", 1000)
	src.addDir("old", 1000)

	res, err := Synchronize(ctx, src, dst, Options{Mode: ModeTime, Delete: true, DetectMoves: true})
	require.NoError(t, err)

	require.Equal(t, 1, res.Renamed)
	require.Equal(t, 0, res.TransferredFiles)
	require.Contains(t, dst.entries, "a.txt")
	require.NotContains(t, dst.entries, "old/a.txt")
}

func TestSynchronizeTwoWay(t *testing.T) {
	ctx := testlogging.Context(t)

	src, dst := newFakePair()

	src.addFile("x", 5, 2000, "d1")
	dst.addFile("x", 5, 1000, "d2")
	src.addFile("y", 5, 1000, "d3")
	dst.addFile("y", 5, 2000, "d4")
	src.addFile("src-only", 1, 1000, "d5")
	dst.addFile("dst-only", 1, 1000, "d6")

	res, err := Synchronize(ctx, src, dst, Options{Mode: ModeTwoWay})
	require.NoError(t, err)

	// x flows forward, y flows back, one-sided entries flow toward the other side
	require.Equal(t, 4, res.TransferredFiles)

	require.Equal(t, "d1", dst.digests["x"])
	require.Equal(t, "d4", src.digests["y"])
	require.Contains(t, dst.entries, "src-only")
	require.Contains(t, src.entries, "dst-only")

	// both sides now agree
	res, err = Synchronize(ctx, src, dst, Options{Mode: ModeTwoWay})
	require.NoError(t, err)
	require.Equal(t, 0, res.TransferredFiles)
}

func TestSynchronizeRejectsDestinationSymlink(t *testing.T) {
	ctx := testlogging.Context(t)

	src, dst := newFakePair()
	dst.addSymlink("link", 1000)

	_, err := Synchronize(ctx, src, dst, Options{Mode: ModeTime})
	require.Error(t, err)
	require.Contains(t, err.Error(), "symlink")
}

func TestSynchronizeChecksumTouch(t *testing.T) {
	ctx := testlogging.Context(t)

	src, dst := newFakePair()

	src.addFile("f", 5, 2000, "same")
	dst.addFile("f", 5, 1000, "same")

	res, err := Synchronize(ctx, src, dst, Options{Mode: ModeChecksum})
	require.NoError(t, err)

	require.Equal(t, 0, res.TransferredFiles)
	require.Equal(t, 1, res.Touched)
	require.Equal(t, int64(2000), dst.entries["f"].ModTime)
}
