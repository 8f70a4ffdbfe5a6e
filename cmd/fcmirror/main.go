// Package main provides the entry point for the fcmirror CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/fcmirror/cmd/fcmirror/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
