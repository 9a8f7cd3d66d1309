// Command ruleflow compiles, validates and evolves multiway rewriting
// programs.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/ruleflow/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(cli.GetExitCode(err))
}
