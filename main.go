package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	"github.com/moyoez/batchshare/cmd"
)

const version = "1.0.0"

func main() {
	if err := fang.Execute(
		context.Background(),
		cmd.NewRootCmd(),
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}
