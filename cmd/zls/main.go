package main

import (
	"os"

	"github.com/Mindgibber/zls/cmd/zls/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
