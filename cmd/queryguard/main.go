package main

import "github.com/unilakehq/queryguard/internal/cli"

func main() {
	cli.Execute()
}
