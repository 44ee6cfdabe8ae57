// Command resourcemgr runs the resource manager daemon: a periodic
// control loop that watches per-service CPU and memory usage and
// adjusts limits within configured bounds.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/acme/resourcemgr/pkg/actuator"
	"github.com/acme/resourcemgr/pkg/clock"
	"github.com/acme/resourcemgr/pkg/config"
	"github.com/acme/resourcemgr/pkg/controller"
	"github.com/acme/resourcemgr/pkg/docker"
	"github.com/acme/resourcemgr/pkg/httpapi"
	"github.com/acme/resourcemgr/pkg/logger"
	"github.com/acme/resourcemgr/pkg/metrics"
	"github.com/acme/resourcemgr/pkg/notifier"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.LoadOrDie(os.Getenv("CONFIG_PATH"))

	if err := logger.Initialize(cfg.Logging.Level, cfg.Logging.Format, loggerOutput(cfg)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.Global().WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := waitForPrometheusReady(ctx, cfg.Monitoring.PrometheusURL); err != nil {
		return err
	}

	dockerClient, err := docker.New(docker.Config{Host: cfg.Docker.Host})
	if err != nil {
		return fmt.Errorf("failed to build docker client: %w", err)
	}
	defer dockerClient.Close()

	clk := clock.New()
	gateway := metrics.NewPrometheusGateway(cfg.Monitoring.PrometheusURL, cfg.Monitoring.AnalysisWindow, dockerClient, clk)
	directActuator := actuator.NewDockerActuator(dockerClient)
	blueGreenActuator := actuator.NewBlueGreenActuator(cfg.BlueGreen.Script, time.Duration(cfg.BlueGreen.HealthCheckTimeoutS)*time.Second)
	n := notifier.New(cfg.Notifications, clk)

	ctrl := controller.New(cfg, gateway, directActuator, blueGreenActuator, n, clk)

	addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
	srv := httpapi.NewServer(addr, controller.MetricsRegistry(), clk)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ctrl.Run(gctx)
	})
	g.Go(func() error {
		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe() }()
		select {
		case <-gctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-errCh:
			if err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		}
	})

	log.Info("resource manager started", "check_interval", cfg.Monitoring.CheckIntervalS, "metrics_port", cfg.Metrics.Port)
	return g.Wait()
}

func loggerOutput(cfg *config.Config) string {
	if cfg.Logging.File != "" {
		return cfg.Logging.File
	}
	return cfg.Logging.Output
}

// waitForPrometheusReady polls the metrics backend's readiness
// endpoint every 5s until it returns 200.
func waitForPrometheusReady(ctx context.Context, baseURL string) error {
	log := logger.Global().WithComponent("main")
	client := &http.Client{Timeout: 5 * time.Second}
	url := baseURL + "/-/ready"

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err == nil {
			resp, err := client.Do(req)
			if err == nil {
				resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					return nil
				}
			}
		}

		log.Info("waiting for prometheus readiness", "url", url)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}
}
