package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hiershare/hiershare/internal/common"
	"github.com/hiershare/hiershare/internal/config"
	"github.com/hiershare/hiershare/internal/gateway"
)

var (
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the hiershare gateway",
	Long: `Start the hiershare gateway web service.

If no config file is specified, the gateway will look for config files in the following locations:
  - ./config.yaml
  - ./config/config.yaml
  - /etc/hiershare/config.yaml
  - ~/.config/hiershare/config.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configFile)
		if err != nil {
			logrus.Fatalf("Failed to load configuration: %v", err)
		}
		if err := cfg.Validate(); err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}

		server, err := gateway.StartWebService(cfg)
		if err != nil {
			logrus.Fatalf("Failed to start web service: %v", err)
		}

		<-common.NewInterruptChannel()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Stop(ctx); err != nil {
			logrus.Fatalf("Failed to stop web service: %v", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to the configuration file (optional)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatalf("Failed to execute command: %v", err)
	}
}
