package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hiershare/hiershare/internal/common"
	"github.com/hiershare/hiershare/internal/gateway"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway in the foreground",
	Long: `Start the gateway web service in the foreground and block until
interrupted. For unattended operation see 'hiershare service install'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := gateway.StartWebService(cfg)
		if err != nil {
			return fmt.Errorf("failed to start web service: %w", err)
		}

		fmt.Println(successStyle.Render("Gateway listening on " + cfg.GetListenAddr()))
		fmt.Println(dimStyle.Render("Press Ctrl+C to stop"))

		<-common.NewInterruptChannel()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Stop(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
