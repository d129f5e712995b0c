// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/rapidride/verifyd/internal/config"
	"github.com/rapidride/verifyd/internal/server"
)

func main() {
	cmd := &cli.Command{
		Name:   "verifyd",
		Usage:  "Start the verification and authentication service",
		Flags:  config.Flags(),
		Action: server.Run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
