// Package main provides the entry point for the riskpulse admin CLI.
package main

import (
	"github.com/turtacn/riskpulse/cmd/cli"
)

func main() {
	cli.Execute()
}
