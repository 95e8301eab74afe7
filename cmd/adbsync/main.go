// Command adbsync synchronizes a local directory tree with a directory tree
// on a device reachable through a persistent adb shell session.
package main

import (
	"os"

	"github.com/alecthomas/kingpin/v2"

	"github.com/adbsync/adbsync/cli"
)

func main() {
	app := kingpin.New("adbsync", "Synchronize directories between this machine and an adb-connected device.")

	a := cli.Attach(app)

	kingpin.MustParse(app.Parse(os.Args[1:]))

	os.Exit(a.Run())
}
