package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"whatsflow/pkg/api"
	"whatsflow/pkg/config"
	"whatsflow/pkg/logger"
	"whatsflow/pkg/scheduler"
	"whatsflow/pkg/server"
)

func main() {
	configPath := flag.String("config", "", "config file path (yaml or json)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "whatsflow: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logs := logger.NewBootstrap(logger.Options{
		Development:   cfg.Debug(),
		Level:         cfg.App.LogLevel,
		AuditFile:     cfg.App.AuditLogFile,
		AuditRequired: cfg.App.AuditRequired,
		Timezone:      cfg.App.Timezone,
		CallerMode:    logger.CallerMedium,
		Compress:      true,
	})
	log, err := logs.Init()
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logs.Close()

	srv, rotator, err := setup(cfg, logs, log)
	if err != nil {
		return err
	}

	// Started last: nothing on the error paths above stops it.
	if rotator != nil {
		rotator.Start()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start()
	}()

	select {
	case err = <-serveErr:
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeoutDuration())
	defer cancel()

	var errs []error
	errs = append(errs, err)
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		errs = append(errs, shutdownErr)
	}
	if rotator != nil {
		if stopErr := rotator.Stop(shutdownCtx); stopErr != nil {
			errs = append(errs, fmt.Errorf("stop audit rotation: %w", stopErr))
		}
	}

	if err := errors.Join(errs...); err != nil {
		log.Error("Server stopped with errors", zap.Error(err))
		return err
	}
	log.Info("Server stopped")
	return nil
}

// setup builds the server and, when the audit sink is attached, an unstarted
// audit rotator.
func setup(cfg *config.Config, logs *logger.Bootstrap, log *zap.Logger) (*server.HTTPServer, *scheduler.AuditRotator, error) {
	routerOpts := []api.Option{
		api.WithAuditState(logs.AuditEnabled),
		api.WithLevelController(logs),
	}

	var rotator *scheduler.AuditRotator
	if logs.AuditEnabled() {
		var err error
		rotator, err = scheduler.NewAuditRotator(cfg.App.AuditRotateCron, logs.Location(), logs, log)
		if err != nil {
			log.Error("Failed to create audit rotation scheduler", zap.Error(err))
			return nil, nil, err
		}
		routerOpts = append(routerOpts, api.WithRotationReporter(rotator))
	}

	engine, err := api.NewRouter(cfg, log, routerOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("build router: %w", err)
	}

	srv, err := server.NewHTTPServer(cfg.Server, engine, log)
	if err != nil {
		return nil, nil, err
	}
	return srv, rotator, nil
}
