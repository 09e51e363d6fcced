// Command staminald is the minimal CLI entrypoint wiring the Staminal host
// components together. The bootstrapping/packaging harness itself is out of
// scope; this wrapper only parses STAM_* configuration and drives the
// Connection Driver's handshake and supervisor loop.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/staminal/host/internal/config"
	"github.com/staminal/host/internal/connection"
	"github.com/staminal/host/internal/logging"
	"github.com/staminal/host/internal/modreg"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "staminald",
		Short: "Staminal game engine host",
	}
	root.AddCommand(newConnectCmd())
	return root
}

func newConnectCmd() *cobra.Command {
	var uriFlag string

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect to a stam:// or http(s):// host and run the engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			env := config.FromEnviron()
			if uriFlag != "" {
				env.URI = uriFlag
			}
			if env.URI == "" {
				return fmt.Errorf("no connection URI: set STAM_URI or pass --uri")
			}

			log := logging.New(logging.Config{
				Level:     env.LogLevel,
				Component: "staminald",
			})

			uri, err := connection.ParseURI(env.URI)
			if err != nil {
				return err
			}

			registry := modreg.New()
			driver := connection.New(connection.Config{
				Log:      log,
				Registry: registry,
			})

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if err := driver.Connect(ctx, uri, env.Lang); err != nil {
				return err
			}

			supervisor := connection.NewSupervisor(driver, nil, 0, log)
			return supervisor.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&uriFlag, "uri", "", "connection URI (overrides STAM_URI)")
	return cmd
}
