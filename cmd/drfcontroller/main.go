package main

import (
	"os"

	"github.com/armadaproject/drf-controller/cmd/drfcontroller/cmd"
	"github.com/armadaproject/drf-controller/internal/common/logging"
)

func main() {
	logging.ConfigureLogging()
	err := cmd.RootCmd().Execute()
	if err != nil {
		os.Exit(1)
	}
}
