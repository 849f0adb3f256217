package main

import "github.com/tarmac-project/bindings/internal/cli"

// main runs the workerd command line.
func main() {
	cli.Execute()
}
