package main

import (
	"fmt"
	"os"
)

var (
	version = "dev"
)

// Entry point for the application
func main() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		if !isSilent(err) {
			fmt.Fprintln(os.Stderr, errorText("Error: "+err.Error()))
		}
		os.Exit(1)
	}
}
