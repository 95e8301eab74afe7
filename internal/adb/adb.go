// Package adb invokes one-shot adb subcommands (push, pull, shell).
package adb

import (
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"github.com/adbsync/adbsync/internal/logging"
)

var log = logging.Module("adb")

// Launcher is the adb command line prefix, e.g. ["adb"] or
// ["adb", "-s", "SERIAL"].
type Launcher []string

// DefaultLauncher is used when no override is configured.
func DefaultLauncher() Launcher {
	return Launcher{"adb"}
}

// Parse splits a launcher override on whitespace.
func Parse(s string) (Launcher, error) {
	f := strings.Fields(s)
	if len(f) == 0 {
		return nil, errors.New("empty adb command")
	}

	return Launcher(f), nil
}

// Command builds an exec.Cmd for the given adb arguments.
func (l Launcher) Command(ctx context.Context, args ...string) *exec.Cmd {
	argv := append(append([]string(nil), l...), args...)

	//nolint:gosec
	return exec.CommandContext(ctx, argv[0], argv[1:]...)
}

// Run executes an adb subcommand to completion, returning an error that
// includes the combined output on failure.
func (l Launcher) Run(ctx context.Context, args ...string) error {
	log(ctx).Debugw("adb", "args", args)

	out, err := l.Command(ctx, args...).CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "adb %v failed: %v", strings.Join(args, " "), strings.TrimSpace(string(out)))
	}

	return nil
}
