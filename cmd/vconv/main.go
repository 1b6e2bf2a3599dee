package main

import (
	"os"

	"vconv/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
