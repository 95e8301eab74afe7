// Package cli implements the command-line interface of adbsync.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"
	"github.com/pkg/errors"

	"github.com/adbsync/adbsync/fs"
	"github.com/adbsync/adbsync/fs/localfs"
	"github.com/adbsync/adbsync/fs/shellfs"
	"github.com/adbsync/adbsync/internal/adb"
	"github.com/adbsync/adbsync/internal/clock"
	"github.com/adbsync/adbsync/internal/ignore"
	"github.com/adbsync/adbsync/internal/logging"
	"github.com/adbsync/adbsync/internal/shellrpc"
	"github.com/adbsync/adbsync/internal/units"
	"github.com/adbsync/adbsync/sync"
)

//nolint:gochecknoglobals
var (
	noticeColor  = color.New(color.FgHiCyan)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgHiRed)
)

// App implements the adbsync command line application.
type App struct {
	localPath  string
	remotePath string

	reverse      bool
	twoWay       bool
	sizeOnly     bool
	checksum     bool
	deleteExtra  bool
	detectMoves  bool
	followLinks  bool
	dryRun       bool
	adbCommand   string
	excludeNames []string
	excludePaths []string

	loggingFlags
	progress *cliProgress
	out      textOutput

	// overridable for testing
	stdoutWriter io.Writer
	stderrWriter io.Writer
}

// Attach registers all flags and arguments on the given kingpin application.
func Attach(app *kingpin.Application) *App {
	a := &App{
		stdoutWriter: os.Stdout,
		stderrWriter: os.Stderr,
	}

	app.Arg("local", "Local directory to synchronize.").Required().StringVar(&a.localPath)
	app.Arg("remote", "Directory on the device to synchronize.").Required().StringVar(&a.remotePath)

	app.Flag("reverse", "Synchronize from the device to the local directory.").Short('R').BoolVar(&a.reverse)
	app.Flag("two-way", "Synchronize in both directions; the newer side wins.").Short('2').BoolVar(&a.twoWay)
	app.Flag("size-only", "Compare files by size only.").BoolVar(&a.sizeOnly)
	app.Flag("checksum", "Compare files of equal size by content digest.").Short('c').BoolVar(&a.checksum)
	app.Flag("delete", "Delete destination entries that are absent in the source.").Short('d').BoolVar(&a.deleteExtra)
	app.Flag("detect-moves", "Detect renamed files and move them instead of re-transferring.").Short('m').BoolVar(&a.detectMoves)
	app.Flag("follow-links", "Follow symlinks while indexing.").Short('L').BoolVar(&a.followLinks)
	app.Flag("dry-run", "Log all actions without performing them.").Short('n').BoolVar(&a.dryRun)
	app.Flag("adb", "adb command used to reach the device.").Default("adb").StringVar(&a.adbCommand)
	app.Flag("exclude", "Exclude entries whose basename matches the glob (repeatable).").StringsVar(&a.excludeNames)
	app.Flag("exclude-path", "Exclude entries whose relative path matches the glob (repeatable).").StringsVar(&a.excludePaths)

	a.loggingFlags.setup(app)
	a.progress = newCLIProgress(app, a)
	a.out.setup(a)

	return a
}

func (a *App) mode() (sync.Mode, error) {
	selected := 0

	for _, f := range []bool{a.sizeOnly, a.checksum, a.twoWay} {
		if f {
			selected++
		}
	}

	if selected > 1 {
		return 0, errors.New("--size-only, --checksum and --two-way are mutually exclusive")
	}

	switch {
	case a.sizeOnly:
		return sync.ModeSize, nil
	case a.checksum:
		return sync.ModeChecksum, nil
	case a.twoWay:
		return sync.ModeTwoWay, nil
	default:
		return sync.ModeTime, nil
	}
}

// Run performs one synchronization run and returns a process exit code.
func (a *App) Run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ctx = logging.WithLogger(ctx, a.loggerFactory())

	if err := a.runSync(ctx); err != nil {
		errorColor.Fprintf(a.out.stderr(), "ERROR: %v\n", err) //nolint:errcheck
		return 1
	}

	return 0
}

func (a *App) runSync(ctx context.Context) error {
	mode, err := a.mode()
	if err != nil {
		return err
	}

	matcher, err := ignore.NewMatcher(a.excludeNames, a.excludePaths)
	if err != nil {
		return err
	}

	launcher, err := adb.Parse(a.adbCommand)
	if err != nil {
		return err
	}

	transport, err := shellrpc.StartProcess(ctx, append(launcher, "shell"))
	if err != nil {
		return errors.Wrap(err, "unable to start device shell")
	}

	ch, err := shellrpc.NewChannel(ctx, transport)
	if err != nil {
		return errors.Wrap(err, "unable to establish device shell channel")
	}
	defer ch.Close() //nolint:errcheck

	local := localfs.NewProvider(a.localPath, localfs.Options{Adb: launcher, DryRun: a.dryRun})
	remote := shellfs.NewProvider(a.remotePath, ch, shellfs.Options{Adb: launcher, DryRun: a.dryRun})

	src, dst := fs.Provider(local), fs.Provider(remote)
	if a.reverse {
		src, dst = remote, local
	}

	if a.dryRun {
		noticeColor.Fprintf(a.out.stderr(), "DRY RUN: no changes will be made\n") //nolint:errcheck
	}

	startTime := clock.Now()

	res, err := sync.Synchronize(ctx, src, dst, sync.Options{
		Mode:           mode,
		Delete:         a.deleteExtra,
		DetectMoves:    a.detectMoves,
		FollowSymlinks: a.followLinks,
		Exclusions:     matcher,
		Progress:       a.progress,
	})

	a.progress.Finish()

	if err != nil {
		return err
	}

	a.printSummary(res, clock.Since(startTime))

	return nil
}

func (a *App) printSummary(res *sync.Result, elapsed time.Duration) {
	a.out.printf("Transferred %v file(s) (%v), created %v, deleted %v file(s) and %v dir(s), touched %v, renamed %v in %v.\n",
		res.TransferredFiles,
		units.BytesString(res.TransferredBytes),
		res.CreatedDirs,
		res.DeletedFiles,
		res.DeletedDirs,
		res.Touched,
		res.Renamed,
		elapsed)
}

// textOutput encapsulates CLI output streams.
type textOutput struct {
	app *App
}

func (o *textOutput) setup(a *App) {
	o.app = a
}

func (o *textOutput) stdout() io.Writer {
	return o.app.stdoutWriter
}

func (o *textOutput) stderr() io.Writer {
	return o.app.stderrWriter
}

func (o *textOutput) printf(msg string, args ...interface{}) {
	fmt.Fprintf(o.stdout(), msg, args...) //nolint:errcheck
}

func (o *textOutput) printStderr(msg string, args ...interface{}) {
	fmt.Fprintf(o.stderr(), msg, args...) //nolint:errcheck
}
