package main

import (
	"os"

	"github.com/tripmate-ai/tripmate/trip/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
