package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/hiershare/hiershare/internal/client"
	"github.com/hiershare/hiershare/internal/config"
	"github.com/hiershare/hiershare/internal/models"
)

var watchStatus bool

// statusReport is a single snapshot of both services.
type statusReport struct {
	openfgaErr error
	stores     int
	storeName  string
	storeErr   error
	gateway    models.HealthResponse
	gatewayErr error
	takenAt    time.Time
}

// fetchStatus probes the OpenFGA server and the gateway.
func fetchStatus(cfg *config.Config) statusReport {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	report := statusReport{takenAt: time.Now()}

	fgaClient := client.NewOpenFGAClient(cfg.OpenFGA.URL(), cfg.OpenFGA.Token)
	if err := fgaClient.Healthz(ctx); err != nil {
		report.openfgaErr = err
	} else {
		if stores, err := fgaClient.ListStores(ctx); err == nil {
			report.stores = len(stores)
		}
		if len(cfg.OpenFGA.StoreID) > 0 {
			store, err := fgaClient.GetStore(ctx, cfg.OpenFGA.StoreID)
			if err != nil {
				report.storeErr = err
			} else {
				report.storeName = store.Name
			}
		}
	}

	backend := client.NewBackendClient(cfg.GetBackendUrl())
	health, err := backend.Health(ctx)
	if err != nil {
		report.gatewayErr = err
	} else {
		report.gateway = health
	}

	return report
}

func renderStatus(cfg *config.Config, report statusReport) string {
	out := titleStyle.Render("Hiershare Status") + "\n"

	out += headerStyle.Render("OpenFGA") + dimStyle.Render("  "+cfg.OpenFGA.URL()) + "\n"
	if report.openfgaErr != nil {
		out += errorStyle.Render("  ✗ unreachable") + dimStyle.Render("  "+report.openfgaErr.Error()) + "\n"
	} else {
		out += successStyle.Render("  ✓ serving") + dimStyle.Render(fmt.Sprintf("  %d store(s)", report.stores)) + "\n"
		switch {
		case len(cfg.OpenFGA.StoreID) == 0:
			out += warningStyle.Render("  ! no store configured") + dimStyle.Render("  run 'hiershare bootstrap'") + "\n"
		case report.storeErr != nil:
			out += errorStyle.Render("  ✗ configured store missing") + dimStyle.Render("  "+cfg.OpenFGA.StoreID) + "\n"
		default:
			out += successStyle.Render("  ✓ store "+report.storeName) + dimStyle.Render("  "+cfg.OpenFGA.StoreID) + "\n"
		}
	}

	out += "\n" + headerStyle.Render("Gateway") + dimStyle.Render("  "+cfg.GetBackendUrl()) + "\n"
	if report.gatewayErr != nil {
		out += errorStyle.Render("  ✗ unreachable") + dimStyle.Render("  "+report.gatewayErr.Error()) + "\n"
	} else {
		health := report.gateway
		switch health.Status {
		case models.HealthStatusHealthy:
			out += successStyle.Render("  ✓ "+string(health.Status)) + dimStyle.Render("  "+health.Version) + "\n"
		case models.HealthStatusDegraded:
			out += warningStyle.Render("  ! "+string(health.Status)) + dimStyle.Render("  "+health.Version) + "\n"
		default:
			out += errorStyle.Render("  ✗ "+string(health.Status)) + "\n"
		}
		for name, state := range health.Services {
			out += dimStyle.Render(fmt.Sprintf("    %s: %s", name, state)) + "\n"
		}
	}

	return out
}

type statusMsg statusReport

type statusModel struct {
	cfg      *config.Config
	spinner  spinner.Model
	report   *statusReport
	quitting bool
}

func newStatusModel(cfg *config.Config) statusModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#3b82f6"))

	return statusModel{cfg: cfg, spinner: s}
}

func (m statusModel) fetch() tea.Msg {
	return statusMsg(fetchStatus(m.cfg))
}

func (m statusModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch)
}

func (m statusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case statusMsg:
		report := statusReport(msg)
		m.report = &report
		return m, tea.Tick(2*time.Second, func(time.Time) tea.Msg {
			return m.fetch()
		})

	case tea.WindowSizeMsg:
		return m, nil
	}

	return m, nil
}

func (m statusModel) View() string {
	if m.quitting {
		return ""
	}
	if m.report == nil {
		return m.spinner.View() + " Probing services...\n"
	}
	out := renderStatus(m.cfg, *m.report)
	out += "\n" + dimStyle.Render(fmt.Sprintf("updated %s  (q to quit)", m.report.takenAt.Format("15:04:05")))
	return out + "\n"
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the OpenFGA server and gateway",
	Long:  `Probe the OpenFGA authorization server and the gateway and report their health.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if watchStatus {
			program := tea.NewProgram(newStatusModel(cfg))
			_, err := program.Run()
			return err
		}

		report := fetchStatus(cfg)
		fmt.Print(renderStatus(cfg, report))

		if report.openfgaErr != nil || report.gatewayErr != nil {
			return fmt.Errorf("one or more services are unreachable")
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Keep polling and refresh the display")
	rootCmd.AddCommand(statusCmd)
}
