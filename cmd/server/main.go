package main

import (
	"os"

	"vitebridge/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
