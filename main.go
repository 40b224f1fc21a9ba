package main

import (
	"context"
	"os"

	"github.com/m-mizutani/relwatch/pkg/cli"
)

func main() {
	os.Exit(cli.ExitCode(cli.Run(context.Background(), os.Args)))
}
