// Package shellfs implements the tree provider for a directory root reachable
// through a line-oriented remote shell session.
//
// Listings, digests and single-shot mutations are issued over the persistent
// shell channel; bulk file transfers use one-shot adb push/pull invocations.
package shellfs

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/pkg/errors"

	"github.com/adbsync/adbsync/fs"
	"github.com/adbsync/adbsync/internal/adb"
	"github.com/adbsync/adbsync/internal/ignore"
	"github.com/adbsync/adbsync/internal/logging"
	"github.com/adbsync/adbsync/internal/shellrpc"
)

var log = logging.Module("shellfs")

// Options configures a remote provider.
type Options struct {
	// Adb launches one-shot adb commands for transfers out of the remote root.
	Adb adb.Launcher

	DryRun bool
}

type shellProvider struct {
	root string
	ch   *shellrpc.Channel
	opts Options

	missingRoot bool
}

// NewProvider returns a tree provider rooted at the given remote directory,
// driving the supplied shell channel. The provider owns the channel
// exclusively.
func NewProvider(root string, ch *shellrpc.Channel, opts Options) fs.Provider {
	return &shellProvider{root: root, ch: ch, opts: opts}
}

func (p *shellProvider) Root() string          { return p.root }
func (p *shellProvider) Location() fs.Location { return fs.LocationRemote }

func (p *shellProvider) abs(name string) string {
	return path.Join(p.root, name)
}

// quote wraps s in single quotes for the remote shell.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// run executes a command to completion and returns its exit status.
func (p *shellProvider) run(ctx context.Context, command string) (int, error) {
	if err := p.ch.Submit(ctx, command); err != nil {
		return 0, err //nolint:wrapcheck
	}

	return p.ch.Finish(ctx) //nolint:wrapcheck
}

// mustRun executes a command and fails on a nonzero exit status, including
// the captured stderr text.
func (p *shellProvider) mustRun(ctx context.Context, command string) error {
	rc, err := p.run(ctx, command)
	if err != nil {
		return err
	}

	if rc != 0 {
		return errors.Errorf("remote command failed (rc=%v): %v", rc, strings.TrimSpace(p.ch.LastStderr()))
	}

	return nil
}

func (p *shellProvider) EnsureRoot(ctx context.Context, isDestination bool) (bool, error) {
	rc, err := p.run(ctx, "test -d "+quote(p.root))
	if err != nil {
		return false, err
	}

	if rc == 0 {
		return true, nil
	}

	if !isDestination {
		return false, errors.Errorf("source root does not exist: %v", p.root)
	}

	if p.opts.DryRun {
		log(ctx).Infof("would create directory %v (DRY RUN)", p.root)

		p.missingRoot = true

		return false, nil
	}

	if err := p.mustRun(ctx, "mkdir -p "+quote(p.root)); err != nil {
		return false, errors.Wrap(err, "unable to create destination root")
	}

	log(ctx).Infof("created directory %v", p.root)

	return true, nil
}

// listingCommand builds the remote find invocation producing one record per
// entry in the wire format consumed by fs.ListingParser. The exclusion
// matcher is rendered as native find predicate fragments so excluded entries
// are tagged and not descended into.
func (p *shellProvider) listingCommand(followSymlinks bool, excl *ignore.Matcher) string {
	findFlags := ""
	statFlags := ""

	if followSymlinks {
		findFlags = "-L "
		statFlags = "-L "
	}

	statNormal := fmt.Sprintf("-exec stat %s-c '//|%%f|%%s|%%Y|%%n' '{}' +", statFlags)

	var sb strings.Builder

	sb.WriteString("cd " + quote(p.root) + " && find " + findFlags + ".")

	if excl.Active() {
		var preds []string

		for _, pat := range excl.NamePatterns() {
			preds = append(preds, "-name "+quote(pat))
		}

		for _, pat := range excl.PathPatterns() {
			preds = append(preds, "-path "+quote("./"+pat))
		}

		statIgnored := fmt.Sprintf("-exec stat %s-c '//x|%%f|%%s|%%Y|%%n' '{}' +", statFlags)

		sb.WriteString(" \\( " + strings.Join(preds, " -o ") + " \\) ")
		sb.WriteString(statIgnored)
		sb.WriteString(" -prune -o ")
		sb.WriteString(statNormal)
	} else {
		sb.WriteString(" " + statNormal)
	}

	return sb.String()
}

type emptyListJob struct{}

func (emptyListJob) Wait(ctx context.Context) (fs.Entries, error) { return nil, nil }

type shellListJob struct {
	p *shellProvider
}

func (p *shellProvider) BeginList(ctx context.Context, followSymlinks bool, excl *ignore.Matcher) (fs.ListJob, error) {
	if p.missingRoot {
		return emptyListJob{}, nil
	}

	// submitted without waiting; the caller indexes the local side before
	// consuming the response
	if err := p.ch.Submit(ctx, p.listingCommand(followSymlinks, excl)); err != nil {
		return nil, err //nolint:wrapcheck
	}

	return &shellListJob{p: p}, nil
}

func (j *shellListJob) Wait(ctx context.Context) (fs.Entries, error) {
	parser := fs.NewListingParser()

	for {
		line, ok, err := j.p.ch.NextLine(ctx)
		if err != nil {
			return nil, err //nolint:wrapcheck
		}

		if !ok {
			break
		}

		if err := parser.ParseLine(line); err != nil {
			return nil, err //nolint:wrapcheck
		}
	}

	if rc := j.p.ch.ReturnCode(); rc != 0 {
		return nil, errors.Errorf("remote listing failed (rc=%v): %v", rc, strings.TrimSpace(j.p.ch.LastStderr()))
	}

	return parser.Entries(), nil
}

func (p *shellProvider) TransferInto(ctx context.Context, e *fs.Entry, otherRoot string) error {
	dest := path.Join(otherRoot, e.Name)

	if p.opts.DryRun || p.missingRoot {
		log(ctx).Infof("would pull %v to %v (DRY RUN)", e.Name, dest)
		return nil
	}

	log(ctx).Infof("pull %v", e.Name)

	// -a preserves timestamps as far as the transport allows
	return p.opts.Adb.Run(ctx, "pull", "-a", p.abs(e.Name), dest)
}

func (p *shellProvider) Remove(ctx context.Context, name string) error {
	if p.opts.DryRun || p.missingRoot {
		log(ctx).Infof("would remove %v (DRY RUN)", name)
		return nil
	}

	log(ctx).Infof("remove %v", name)

	return errors.Wrapf(p.mustRun(ctx, "rm "+quote(p.abs(name))), "unable to remove %v", name)
}

func (p *shellProvider) RemoveDir(ctx context.Context, name string) error {
	if p.opts.DryRun || p.missingRoot {
		log(ctx).Infof("would remove directory %v (DRY RUN)", name)
		return nil
	}

	log(ctx).Infof("remove directory %v", name)

	return errors.Wrapf(p.mustRun(ctx, "rmdir "+quote(p.abs(name))), "unable to remove directory %v", name)
}

func (p *shellProvider) MakeDir(ctx context.Context, name string) error {
	if p.opts.DryRun || p.missingRoot {
		log(ctx).Infof("would create directory %v (DRY RUN)", name)
		return nil
	}

	log(ctx).Infof("create directory %v", name)

	return errors.Wrapf(p.mustRun(ctx, "mkdir "+quote(p.abs(name))), "unable to create directory %v", name)
}

func (p *shellProvider) Rename(ctx context.Context, oldName, newName string) bool {
	if p.opts.DryRun || p.missingRoot {
		log(ctx).Infof("would rename %v to %v (DRY RUN)", oldName, newName)
		return true
	}

	rc, err := p.run(ctx, "mv "+quote(p.abs(oldName))+" "+quote(p.abs(newName)))
	if err != nil || rc != 0 {
		log(ctx).Warnf("rename %v to %v failed: %v", oldName, newName, strings.TrimSpace(p.ch.LastStderr()))
		return false
	}

	log(ctx).Infof("renamed %v to %v", oldName, newName)

	return true
}

func (p *shellProvider) SetModTime(ctx context.Context, name string, mtime int64) error {
	if p.opts.DryRun || p.missingRoot {
		log(ctx).Infof("would set mtime of %v to %v (DRY RUN)", name, mtime)
		return nil
	}

	log(ctx).Infof("set mtime of %v to %v", name, mtime)

	cmd := fmt.Sprintf("touch -m -d @%v %v", mtime, quote(p.abs(name)))

	return errors.Wrapf(p.mustRun(ctx, cmd), "unable to set mtime of %v", name)
}

var _ fs.Provider = (*shellProvider)(nil)
