package main

import (
	"os"

	"github.com/aezell/prview/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
