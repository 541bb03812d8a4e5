package main

import (
	"os"

	"github.com/firefly-engineering/ai-pod/cmd"
	"github.com/firefly-engineering/ai-pod/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(errors.GetExitCode(err))
	}
}
