/*
This is the entrypoint for the shardstat binary.
*/
package main

import (
	"fmt"
	"os"

	"github.com/vegasq/shardstat/cmd"
)

func main() {
	rootCmd := cmd.NewRootCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
