package main

import (
	"os"

	"github.com/cozy/cozy-cloudfiles/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
