package cli

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/mattn/go-isatty"

	"github.com/adbsync/adbsync/fs"
	"github.com/adbsync/adbsync/internal/timetrack"
	"github.com/adbsync/adbsync/internal/units"
)

const spinner = `|/-\`

// cliProgress renders a single-line progress display for digest computation,
// based on bytes processed out of the estimated total and elapsed time.
type cliProgress struct {
	// all int64 must precede all int32 due to alignment requirements on ARM
	// +checkatomic
	digestedBytes int64
	// +checkatomic
	estimatedTotalBytes int64

	outputThrottle timetrack.Throttle // is int64

	// +checkatomic
	active int32

	outputMutex sync.Mutex

	// +checklocks:outputMutex
	lastLineLength int
	// +checklocks:outputMutex
	spinPhase int

	startTime timetrack.Estimator // +checklocksignore

	enableProgress bool
	updateInterval time.Duration

	app *App
}

func newCLIProgress(app *kingpin.Application, a *App) *cliProgress {
	p := &cliProgress{app: a}

	app.Flag("progress", "Enable progress display").Default(fmt.Sprint(isatty.IsTerminal(os.Stderr.Fd()))).BoolVar(&p.enableProgress)
	app.Flag("progress-update-interval", "How often to update progress information").Hidden().Default("300ms").DurationVar(&p.updateInterval)

	return p
}

// EstimatedDigestBytes implements fs.DigestProgress. Starting a new digest
// phase adds to the running total so consecutive phases (move verification,
// checksum comparison) share one display.
func (p *cliProgress) EstimatedDigestBytes(total int64) {
	if atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		p.startTime = timetrack.Start()
	}

	atomic.AddInt64(&p.estimatedTotalBytes, total)
}

// DigestedBytes implements fs.DigestProgress.
func (p *cliProgress) DigestedBytes(n int64) {
	atomic.AddInt64(&p.digestedBytes, n)
	p.maybeOutput()
}

func (p *cliProgress) maybeOutput() {
	if atomic.LoadInt32(&p.active) == 0 || !p.enableProgress {
		return
	}

	if p.outputThrottle.ShouldOutput(p.updateInterval) {
		p.output()
	}
}

func (p *cliProgress) output() {
	p.outputMutex.Lock()
	defer p.outputMutex.Unlock()

	digested := atomic.LoadInt64(&p.digestedBytes)
	total := atomic.LoadInt64(&p.estimatedTotalBytes)

	line := fmt.Sprintf(
		" %v hashing, %v of %v",
		p.spinnerCharacter(),
		units.BytesString(digested),
		units.BytesString(total),
	)

	if est, ok := p.startTime.Estimate(float64(digested), float64(total)); ok {
		line += fmt.Sprintf(" (%.1f%%) %v, %v left",
			est.PercentComplete,
			units.BytesPerSecondsString(est.SpeedPerSecond),
			est.Remaining)
	} else {
		line += ", estimating..."
	}

	var extraSpaces string

	if len(line) < p.lastLineLength {
		// wipe over the previous line if it was longer
		extraSpaces = strings.Repeat(" ", p.lastLineLength-len(line))
	}

	p.lastLineLength = len(line)
	p.app.out.printStderr("\r%v%v", line, extraSpaces)
}

// +checklocks:p.outputMutex
func (p *cliProgress) spinnerCharacter() string {
	x := p.spinPhase % len(spinner)
	s := spinner[x : x+1]
	p.spinPhase = (p.spinPhase + 1) % len(spinner)

	return s
}

// Finish terminates the progress line, if one was shown.
func (p *cliProgress) Finish() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) && p.enableProgress {
		p.outputMutex.Lock()
		defer p.outputMutex.Unlock()

		if p.lastLineLength > 0 {
			p.app.out.printStderr("\r%v\r", strings.Repeat(" ", p.lastLineLength))
			p.lastLineLength = 0
		}
	}
}

var _ fs.DigestProgress = (*cliProgress)(nil)
