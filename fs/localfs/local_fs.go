// Package localfs implements the tree provider for a local directory root.
package localfs

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/adbsync/adbsync/fs"
	"github.com/adbsync/adbsync/internal/adb"
	"github.com/adbsync/adbsync/internal/ignore"
	"github.com/adbsync/adbsync/internal/logging"
)

const (
	numEntriesToRead   = 100 // number of directory entry names to read in one shot
	dirListingPrefetch = 200 // number of directory items to os.Lstat() in advance
	statWorkers        = 16
)

var log = logging.Module("localfs")

// Options configures a local provider.
type Options struct {
	// Adb launches one-shot adb commands for transfers into the remote root.
	Adb adb.Launcher

	DryRun bool
}

type localProvider struct {
	root string
	opts Options

	// set when a dry-run simulated the creation of a missing destination
	// root; all further operations short-circuit but still log intent.
	missingRoot bool
}

// NewProvider returns a tree provider rooted at the given local directory.
func NewProvider(root string, opts Options) fs.Provider {
	return &localProvider{root: root, opts: opts}
}

func (p *localProvider) Root() string          { return p.root }
func (p *localProvider) Location() fs.Location { return fs.LocationLocal }

func (p *localProvider) abs(name string) string {
	return filepath.Join(p.root, filepath.FromSlash(name))
}

func (p *localProvider) EnsureRoot(ctx context.Context, isDestination bool) (bool, error) {
	st, err := os.Stat(p.root)

	switch {
	case err == nil:
		if !st.IsDir() {
			return false, errors.Errorf("root is not a directory: %v", p.root)
		}

		return true, nil

	case os.IsNotExist(err):
		if !isDestination {
			return false, errors.Errorf("source root does not exist: %v", p.root)
		}

		if p.opts.DryRun {
			log(ctx).Infof("would create directory %v (DRY RUN)", p.root)

			p.missingRoot = true

			return false, nil
		}

		if err := os.MkdirAll(p.root, 0o755); err != nil {
			return false, errors.Wrap(err, "unable to create destination root")
		}

		log(ctx).Infof("created directory %v", p.root)

		return true, nil

	default:
		return false, errors.Wrapf(err, "unable to stat root %v", p.root)
	}
}

type localListJob struct {
	p       *localProvider
	follow  bool
	matcher *ignore.Matcher
}

func (p *localProvider) BeginList(ctx context.Context, followSymlinks bool, excl *ignore.Matcher) (fs.ListJob, error) {
	// local listing is deferred to Wait so a remote listing submitted first
	// can run concurrently with it
	return &localListJob{p: p, follow: followSymlinks, matcher: excl}, nil
}

func (j *localListJob) Wait(ctx context.Context) (fs.Entries, error) {
	if j.p.missingRoot {
		return nil, nil
	}

	var entries fs.Entries

	if err := j.p.walk(ctx, ".", j.follow, j.matcher, &entries); err != nil {
		return nil, err
	}

	entries.SortByName()

	return entries, nil
}

type stattedName struct {
	name string
	fi   os.FileInfo
}

func (p *localProvider) walk(ctx context.Context, rel string, follow bool, excl *ignore.Matcher, out *fs.Entries) error {
	children, err := statDirEntries(ctx, p.abs(rel), follow)
	if err != nil {
		return err
	}

	for _, c := range children {
		childRel := c.name
		if rel != "." {
			childRel = rel + "/" + c.name
		}

		kind, err := kindOf(c.fi)
		if err != nil {
			return errors.Wrapf(err, "while indexing %v", childRel)
		}

		e := &fs.Entry{
			Name:    childRel,
			Kind:    kind,
			ModTime: fs.TruncateModTime(c.fi.ModTime().Unix()),
			Ignored: excl.Match(childRel, c.name),
		}

		if kind == fs.KindFile {
			e.Size = c.fi.Size()
		}

		*out = append(*out, e)

		// an excluded directory is not descended into
		if kind == fs.KindDirectory && !e.Ignored {
			if err := p.walk(ctx, childRel, follow, excl, out); err != nil {
				return err
			}
		}
	}

	return nil
}

func kindOf(fi os.FileInfo) (fs.Kind, error) {
	switch fi.Mode() & os.ModeType {
	case os.ModeDir:
		return fs.KindDirectory, nil
	case os.ModeSymlink:
		return fs.KindSymlink, nil
	case 0:
		return fs.KindFile, nil
	default:
		return 0, errors.Errorf("unsupported file type %v", fi.Mode())
	}
}

// statDirEntries reads one directory and stats each name using a pool of
// workers, returning the results sorted by name.
func statDirEntries(ctx context.Context, fullPath string, follow bool) ([]stattedName, error) {
	f, err := os.Open(fullPath) //nolint:gosec
	if err != nil {
		return nil, errors.Wrap(err, "unable to read directory")
	}
	defer f.Close() //nolint:errcheck

	namesCh := make(chan string, dirListingPrefetch)
	resultCh := make(chan stattedName, dirListingPrefetch)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(namesCh)

		for {
			names, err := f.Readdirnames(numEntriesToRead)
			for _, n := range names {
				select {
				case namesCh <- n:
				case <-gctx.Done():
					return gctx.Err() //nolint:wrapcheck
				}
			}

			if errors.Is(err, io.EOF) {
				return nil
			}

			if err != nil {
				return errors.Wrap(err, "error listing directory")
			}
		}
	})

	for i := 0; i < statWorkers; i++ {
		g.Go(func() error {
			for n := range namesCh {
				fi, err := statEntry(filepath.Join(fullPath, n), follow)

				switch {
				case os.IsNotExist(err):
					// lost the race with a concurrent delete - ignore
					continue

				case err != nil:
					return errors.Wrapf(err, "unable to stat directory entry %q", n)
				}

				select {
				case resultCh <- stattedName{n, fi}:
				case <-gctx.Done():
					return gctx.Err() //nolint:wrapcheck
				}
			}

			return nil
		})
	}

	var waitErr error

	go func() {
		waitErr = g.Wait()
		close(resultCh)
	}()

	var result []stattedName
	for r := range resultCh {
		result = append(result, r)
	}

	if waitErr != nil {
		return nil, waitErr
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].name < result[j].name
	})

	return result, nil
}

func statEntry(fullPath string, follow bool) (os.FileInfo, error) {
	fi, err := os.Lstat(fullPath)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	if follow && fi.Mode()&os.ModeSymlink != 0 {
		return os.Stat(fullPath) //nolint:wrapcheck
	}

	return fi, nil
}

func (p *localProvider) TransferInto(ctx context.Context, e *fs.Entry, otherRoot string) error {
	dest := path.Join(otherRoot, e.Name)

	if p.opts.DryRun || p.missingRoot {
		log(ctx).Infof("would push %v to %v (DRY RUN)", e.Name, dest)
		return nil
	}

	log(ctx).Infof("push %v", e.Name)

	return p.opts.Adb.Run(ctx, "push", p.abs(e.Name), dest)
}

func (p *localProvider) Remove(ctx context.Context, name string) error {
	if p.opts.DryRun || p.missingRoot {
		log(ctx).Infof("would remove %v (DRY RUN)", name)
		return nil
	}

	log(ctx).Infof("remove %v", name)

	return errors.Wrapf(os.Remove(p.abs(name)), "unable to remove %v", name)
}

func (p *localProvider) RemoveDir(ctx context.Context, name string) error {
	if p.opts.DryRun || p.missingRoot {
		log(ctx).Infof("would remove directory %v (DRY RUN)", name)
		return nil
	}

	log(ctx).Infof("remove directory %v", name)

	return errors.Wrapf(os.Remove(p.abs(name)), "unable to remove directory %v", name)
}

func (p *localProvider) MakeDir(ctx context.Context, name string) error {
	if p.opts.DryRun || p.missingRoot {
		log(ctx).Infof("would create directory %v (DRY RUN)", name)
		return nil
	}

	log(ctx).Infof("create directory %v", name)

	return errors.Wrapf(os.Mkdir(p.abs(name), 0o755), "unable to create directory %v", name)
}

func (p *localProvider) Rename(ctx context.Context, oldName, newName string) bool {
	if p.opts.DryRun || p.missingRoot {
		log(ctx).Infof("would rename %v to %v (DRY RUN)", oldName, newName)
		return true
	}

	if err := os.Rename(p.abs(oldName), p.abs(newName)); err != nil {
		log(ctx).Warnf("rename %v to %v failed: %v", oldName, newName, err)
		return false
	}

	log(ctx).Infof("renamed %v to %v", oldName, newName)

	return true
}

func (p *localProvider) SetModTime(ctx context.Context, name string, mtime int64) error {
	if p.opts.DryRun || p.missingRoot {
		log(ctx).Infof("would set mtime of %v to %v (DRY RUN)", name, mtime)
		return nil
	}

	log(ctx).Infof("set mtime of %v to %v", name, mtime)

	t := time.Unix(mtime, 0)

	return errors.Wrapf(os.Chtimes(p.abs(name), t, t), "unable to set mtime of %v", name)
}

var _ fs.Provider = (*localProvider)(nil)
