package gateway

import (
	"context"
	"os"
	"time"

	"github.com/kardianos/service"
	"github.com/sirupsen/logrus"

	"github.com/hiershare/hiershare/internal/config"
	"github.com/hiershare/hiershare/internal/daemon"
)

// ServiceProgram implements service.Interface so the gateway can run under
// the platform service manager (systemd, launchd, Windows services).
type ServiceProgram struct {
	exit   chan struct{}
	server *daemon.Server
	config *config.Config
}

func (p *ServiceProgram) Start(s service.Service) error {
	logrus.Infoln("Hiershare gateway service starting")
	go p.run()
	return nil
}

func (p *ServiceProgram) run() {
	server, err := StartWebService(p.config)
	if err != nil {
		logrus.WithError(err).Errorf("Failed to start web service")
		return
	}
	p.server = server

	logrus.Infoln("Hiershare gateway service is running")
	<-p.exit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logrus.WithError(err).Error("Failed to stop web service cleanly")
	}
}

func (p *ServiceProgram) Stop(s service.Service) error {
	logrus.Infoln("Hiershare gateway service stopping")
	close(p.exit)
	return nil
}

// CreateService creates a new service manager handle for the gateway.
func CreateService(cfg *config.Config) (service.Service, error) {
	svcConfig := getServiceConfig()

	prg := &ServiceProgram{
		exit:   make(chan struct{}),
		config: cfg,
	}

	return service.New(prg, svcConfig)
}

// getServiceConfig returns the service configuration
func getServiceConfig() *service.Config {
	exePath, err := os.Executable()

	if err != nil {
		logrus.Fatal(err)
	}

	return &service.Config{
		Name:        "hiershare",
		DisplayName: "Hiershare Gateway Service",
		Description: "Hiershare Gateway - Hierarchical resource sharing backed by OpenFGA",
		Executable:  exePath,
		Arguments: []string{
			"serve", // Runs the web server
		},
	}
}
