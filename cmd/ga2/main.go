// Package main provides the ga2 CLI application.
// ga2 ingests biodiversity occurrence archives and keeps user alerts
// in sync with the current occurrence snapshot.
package main

import (
	"os"
)

func main() {
	if err := getRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
