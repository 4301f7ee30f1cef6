// Command qflow validates, draws, simulates and replays quantum circuits.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/qflow/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
