package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	_ "go.uber.org/automaxprocs"
	"k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/fleetsim/cmd/fleetsim/app"
)

func main() {
	// A .env file next to the binary feeds the FLEETSIM_* overrides.
	_ = godotenv.Load()

	ctx := server.SetupSignalContext()
	if err := app.NewFleetsimCommand(ctx).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
