package main

import (
	"os"

	"github.com/dshills/apigate/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
