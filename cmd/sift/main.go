// Command sift validates filter schemas, shows what requests compile to,
// runs scenario files and serves filters over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/sift/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
