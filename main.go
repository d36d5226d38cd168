package main

import "github.com/wagnerlima/memory-cloud/iac-memory/internal/cli"

func main() {
	cli.Execute()
}
