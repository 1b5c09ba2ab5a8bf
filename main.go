package main

import (
	"os"

	"github.com/eapayk/quanlitien/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
