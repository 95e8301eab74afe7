package shellrpc

import (
	"context"
	"io"
	"os/exec"

	"github.com/pkg/errors"
)

// Transport is a raw duplex byte-stream connection to an interactive shell.
type Transport interface {
	Stdin() io.Writer
	Stdout() io.Reader
	Stderr() io.Reader
	Close() error
}

type processTransport struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser
}

func (t *processTransport) Stdin() io.Writer  { return t.stdin }
func (t *processTransport) Stdout() io.Reader { return t.stdout }
func (t *processTransport) Stderr() io.Reader { return t.stderr }

func (t *processTransport) Close() error {
	t.stdin.Close() //nolint:errcheck

	return errors.Wrap(t.cmd.Wait(), "shell process")
}

// StartProcess launches the given command line and returns a transport over
// its standard pipes. The process is killed when the context is canceled.
func StartProcess(ctx context.Context, argv []string) (Transport, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty shell command")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) //nolint:gosec
	disableInterruptSignal(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "unable to open stdin pipe")
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "unable to open stdout pipe")
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.Wrap(err, "unable to open stderr pipe")
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "unable to start %v", argv[0])
	}

	return &processTransport{cmd: cmd, stdin: stdin, stdout: stdout, stderr: stderr}, nil
}
