// Package main provides the entry point for the modelstore CLI.
package main

import (
	"fmt"
	"os"

	"github.com/JIMMY-KSU/modelstore/cmd/modelstore/commands"

	_ "github.com/JIMMY-KSU/modelstore/estimators" // registers the bundled estimator types
)

func main() {
	err := commands.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(commands.ExitCode(err))
	}
}
