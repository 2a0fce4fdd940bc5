package main

import (
	"os"

	"github.com/isometry/ldifutil/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
