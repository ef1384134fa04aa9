// Command querylab runs SQL lessons: ad-hoc queries, scenario validation
// and exercise grading.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/querylab/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
