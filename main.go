// Package main provides the entrypoint for collaby-bot.
package main

import (
	"os"

	"github.com/collaby/collaby-bot/cmd"
)

func main() {
	if err := cmd.New().Execute(); err != nil {
		os.Exit(1)
	}
}
