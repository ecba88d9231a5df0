// Package main provides the entry point for the knowledgeengine CLI.
package main

import (
	"os"

	"github.com/knowledgeengine/core/cmd/knowledgeengine/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
