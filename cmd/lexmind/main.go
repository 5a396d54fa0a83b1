// Package main provides the entry point for the lexmind CLI.
package main

import (
	"fmt"
	"os"

	"github.com/Aman-CERP/lexmind/cmd/lexmind/cmd"
	lexerrors "github.com/Aman-CERP/lexmind/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, lexerrors.FormatForCLI(err))
		os.Exit(1)
	}
}
