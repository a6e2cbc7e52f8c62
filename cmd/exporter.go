package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/kardianos/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/client"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/config"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/logging"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/metrics"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/poller"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/server"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/session"
)

// Variables to hold flag values
var (
	expUser       string
	expPass       string
	expPort       string
	serviceAction string // "install", "uninstall", "start", "stop"
)

// --- SERVICE WRAPPER ---

// program implements the kardianos/service interface
type program struct {
	settings config.Settings
	username string
	password string

	mu     sync.Mutex
	server *http.Server
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (p *program) Start(s service.Service) error {
	// Start should not block. Do the actual work async.
	ctx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()
	p.wg.Add(1)
	go p.run(ctx)
	return nil
}

func (p *program) run(ctx context.Context) {
	defer p.wg.Done()
	logger := logging.With("exporter")

	api := newAPIClient(p.settings)
	// The service keeps its own session; it never touches the operator's config file.
	store := session.NewStore(nil)

	breaker := client.NewBreakerFetcher(api, client.BreakerConfig{
		Name:                "events-api",
		ConsecutiveFailures: p.settings.BreakerFailures,
		OpenTimeout:         time.Minute,
	})
	sched := poller.New(store, breaker, poller.Config{Interval: p.settings.PollInterval})
	sched.Attach()
	defer sched.Close()

	keeper := &session.Keeper{
		Store:    store,
		Auth:     api,
		Username: p.username,
		Password: p.password,
		Delay:    p.settings.ReloginDelay,
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		keeper.Run(ctx)
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(metrics.NewSyncCollector(sched, breaker))
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	addr := fmt.Sprintf(":%s", expPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.NewRouter(sched, registry),
		ReadHeaderTimeout: 10 * time.Second,
	}
	p.mu.Lock()
	if ctx.Err() != nil {
		p.mu.Unlock()
		return
	}
	p.server = srv
	p.mu.Unlock()

	logger.Info().Str("addr", addr).Str("api_url", p.settings.APIURL).Msg("CCTV exporter listening")

	// Blocking call to listen
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("HTTP server error")
	}
}

func (p *program) Stop(s service.Service) error {
	logging.Info().Msg("Stopping service...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	srv := p.server
	p.mu.Unlock()

	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			logging.Warn().Err(err).Msg("Server forced to shutdown")
		}
	}
	p.wg.Wait()
	return nil
}

// --- COMMAND ---

var exporterCmd = &cobra.Command{
	Use:   "exporter",
	Short: "Start the event sync exporter service",
	Long: `Starts a long-running process that keeps a session open, polls the
event list and serves it over HTTP:

  /metrics   Prometheus metrics
  /events    current events as JSON (?camera=&type=&date=)
  /healthz   poller health

Can be installed as a system service.`,
	Run: func(cmd *cobra.Command, args []string) {
		settings := config.Load()
		if expUser == "" {
			expUser = settings.Username
		}
		if expPass == "" {
			expPass = viper.GetString("password")
		}

		svcConfig := &service.Config{
			Name:        "cctv-exporter",
			DisplayName: "CCTV Event Exporter",
			Description: "Syncs surveillance events and exposes them to Prometheus",
			// Arguments passed to the binary when run as a service
			Arguments: []string{
				"exporter",
				"--api-url", settings.APIURL,
				"--username", expUser,
				"--password", expPass,
				"--port", expPort,
			},
		}
		if cfgFile != "" {
			svcConfig.Arguments = append(svcConfig.Arguments, "--config", cfgFile)
		}

		prg := &program{
			settings: settings,
			username: expUser,
			password: expPass,
		}

		s, err := service.New(prg, svcConfig)
		if err != nil {
			log.Fatal(err)
		}

		// Handle Service Control Actions (Install, Start, Stop, Uninstall)
		if serviceAction != "" {
			if serviceAction == "install" && (expUser == "" || expPass == "") {
				log.Fatal("Error: You must provide --username and --password to install the service.")
			}

			err = service.Control(s, serviceAction)
			if err != nil {
				log.Fatalf("Failed to %s service: %v", serviceAction, err)
			}
			fmt.Printf("Service action '%s' completed successfully.\n", serviceAction)
			return
		}

		if expUser == "" || expPass == "" {
			log.Fatal("Error: --username and --password (or CCTV_USERNAME / CCTV_PASSWORD) are required.")
		}

		// Run the Service (Blocking)
		// This happens when the Service Manager starts the binary, OR when run interactively without flags
		logger, err := s.Logger(nil)
		if err != nil {
			log.Fatal(err)
		}
		if err = s.Run(); err != nil {
			_ = logger.Error(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(exporterCmd)
	exporterCmd.Flags().StringVar(&expUser, "username", "", "Dashboard username")
	exporterCmd.Flags().StringVar(&expPass, "password", "", "Dashboard password")
	exporterCmd.Flags().StringVar(&expPort, "port", "9100", "Port to listen on")

	exporterCmd.Flags().StringVar(&serviceAction, "service", "", "Service action: install, uninstall, start, stop")
}
