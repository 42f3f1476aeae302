package main

import (
	"os"

	"noet_automation/presentation/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
