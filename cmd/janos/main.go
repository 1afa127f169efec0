package main

import (
	"os"

	"github.com/D3h420/janos-app/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
