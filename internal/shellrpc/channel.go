// Package shellrpc turns a long-lived remote shell session into a reliable
// request/response channel over its raw byte pipes.
//
// Each submitted command is followed by a trailer that makes the shell echo a
// NUL byte, its numeric exit status and another NUL byte to standard output,
// and a single NUL byte to standard error. Because the trailer is executed by
// the shell itself, strictly after the command, the NUL sentinels are a
// reliable frame terminator even when the command's own output is arbitrary
// text.
package shellrpc

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/adbsync/adbsync/internal/logging"
)

var log = logging.Module("shellrpc")

// ErrProtocol indicates that the channel framing was violated. The channel is
// unrecoverable once this is returned.
var ErrProtocol = errors.New("shell channel protocol error")

// commandTrailer is appended to every submitted command. printf is used
// because it emits NUL bytes portably, unlike echo.
const commandTrailer = `; printf '\000%s\000' "$?"; printf '\000' 1>&2` + "\n"

type channelState int

const (
	stateIdle channelState = iota
	stateAwaitingLine
	stateAwaitingReturnCode
)

// Channel frames command execution over a persistent shell session.
//
// Exactly one command may be in flight at a time: Submit must not be called
// again until the previous response has been consumed to the end via NextLine
// or Finish.
type Channel struct {
	transport Transport

	out    *frameScanner
	errSeg <-chan string

	state      channelState
	crlf       bool
	returnCode int
	lastStderr string
}

// NewChannel creates a channel over the given transport and performs the
// line-ending self-test: a trivial echo command is issued and, if the
// transport translates line endings (observed as a trailing carriage-return
// byte), the channel strips the extra byte from every subsequent line.
func NewChannel(ctx context.Context, t Transport) (*Channel, error) {
	segCh := make(chan string, 1)

	c := &Channel{
		transport: t,
		out:       newFrameScanner(t.Stdout()),
		errSeg:    segCh,
	}

	go pumpStderrSegments(t.Stderr(), segCh)

	if err := c.detectLineEndings(ctx); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Channel) detectLineEndings(ctx context.Context) error {
	if err := c.Submit(ctx, "echo hi"); err != nil {
		return err
	}

	sawCR := false

	for {
		line, ok, err := c.nextRawLine()
		if err != nil {
			return err
		}

		if !ok {
			break
		}

		sawCR = strings.HasSuffix(line, "\r")
	}

	if _, err := c.Finish(ctx); err != nil {
		return err
	}

	c.crlf = sawCR

	if sawCR {
		log(ctx).Debug("transport translates line endings, stripping CR")
	}

	return nil
}

// Submit writes a command to the shell followed by the sentinel trailer.
// It fails if the response of a previous command has not been fully consumed.
func (c *Channel) Submit(ctx context.Context, command string) error {
	if c.state != stateIdle {
		return errors.Wrap(ErrProtocol, "previous command response not fully consumed")
	}

	log(ctx).Debugw("submit", "command", command)

	if _, err := c.transport.Stdin().Write([]byte(command + commandTrailer)); err != nil {
		return errors.Wrap(err, "unable to write command to shell")
	}

	c.state = stateAwaitingLine

	return nil
}

// NextLine returns one line of command output with the trailing newline
// stripped. It returns ok==false once all output has been consumed, at which
// point the return code has been parsed and the command's stderr captured.
func (c *Channel) NextLine(ctx context.Context) (line string, ok bool, err error) {
	line, ok, err = c.nextRawLine()
	if err != nil || !ok {
		return "", ok, err
	}

	if c.crlf {
		line = strings.TrimSuffix(line, "\r")
	}

	return line, true, nil
}

func (c *Channel) nextRawLine() (line string, ok bool, err error) {
	switch c.state {
	case stateAwaitingReturnCode:
		// a final unterminated line was already delivered, only the
		// trailer remains
		if err := c.parseReturnCode(); err != nil {
			return "", false, err
		}

		return "", false, nil

	case stateAwaitingLine:

	default:
		return "", false, errors.Wrap(ErrProtocol, "no command output pending")
	}

	tok, delim, err := c.out.next()
	if err != nil {
		return "", false, errors.Wrap(err, "shell transport closed")
	}

	if delim == '\n' {
		return string(tok), true, nil
	}

	// First trailer NUL reached. Any bytes preceding it form a final
	// unterminated line; hold the return-code parse until they are delivered.
	if len(tok) > 0 {
		c.state = stateAwaitingReturnCode

		return string(tok), true, nil
	}

	if err := c.parseReturnCode(); err != nil {
		return "", false, err
	}

	return "", false, nil
}

// parseReturnCode reads the numeric exit status between two NUL bytes and
// captures the stderr text of the completed command.
func (c *Channel) parseReturnCode() error {
	tok, delim, err := c.out.next()
	if err != nil {
		return errors.Wrap(err, "shell transport closed while reading return code")
	}

	if delim != 0 {
		return errors.Wrap(ErrProtocol, "return code field not NUL-terminated")
	}

	field := strings.Trim(string(tok), "\r\n ")

	rc, err := strconv.Atoi(field)
	if err != nil {
		return errors.Wrapf(ErrProtocol, "malformed return code field %q", field)
	}

	c.returnCode = rc

	stderr, ok := <-c.errSeg
	if !ok {
		return errors.Wrap(ErrProtocol, "stderr stream closed")
	}

	if c.crlf {
		stderr = strings.ReplaceAll(stderr, "\r\n", "\n")
	}

	c.lastStderr = stderr
	c.state = stateIdle

	return nil
}

// Finish consumes any remaining unread output of the current command and
// returns its exit status.
func (c *Channel) Finish(ctx context.Context) (int, error) {
	for c.state != stateIdle {
		_, ok, err := c.NextLine(ctx)
		if err != nil {
			return 0, err
		}

		if !ok {
			break
		}
	}

	return c.returnCode, nil
}

// ReturnCode returns the exit status of the most recently completed command.
func (c *Channel) ReturnCode() int {
	return c.returnCode
}

// LastStderr returns the stderr text captured for the most recently completed
// command.
func (c *Channel) LastStderr() string {
	return c.lastStderr
}

// Close shuts down the underlying transport.
func (c *Channel) Close() error {
	//nolint:wrapcheck
	return c.transport.Close()
}

// pumpStderrSegments reads the stderr stream and delivers one segment per
// command, delimited by the trailer NUL.
func pumpStderrSegments(r io.Reader, out chan<- string) {
	defer close(out)

	var (
		pending []byte
		buf     [4096]byte
	)

	for {
		n, err := r.Read(buf[:])
		if n > 0 {
			pending = append(pending, buf[:n]...)

			for {
				i := bytes.IndexByte(pending, 0)
				if i < 0 {
					break
				}

				out <- string(pending[:i])
				pending = append(pending[:0], pending[i+1:]...)
			}
		}

		if err != nil {
			return
		}
	}
}
