// Package main provides the entry point for the guidemcp CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/guidemcp/cmd/guidemcp/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
