package main

import (
	"os"

	"github.com/Astrolithia/qvtu-shopping/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
