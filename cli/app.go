package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"library-lms/config"
	"library-lms/library"
	"library-lms/logger"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const serviceName = "library-lms"

// app holds everything a command needs once the environment is loaded.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	registry *prometheus.Registry
	mgr      *library.LibraryManager
	closers  []io.Closer
}

// bootstrap loads .env and LMS_* config, opens the log sink and the
// library. The shell logs to a file or discards so menus stay readable.
func bootstrap(ctx context.Context, quietConsole bool) (*app, error) {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}

	var out io.Writer = os.Stderr
	switch {
	case cfg.App.LogFile != "":
		f, err := os.OpenFile(cfg.App.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		a.closers = append(a.closers, f)
		out = f
	case quietConsole:
		out = io.Discard
	}

	a.log = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
		Output:      out,
	})
	if envErr != nil {
		a.log.Debug(ctx, "no .env file loaded")
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mgr, err := library.NewLibraryManager(ctx, cfg, library.Options{
		Logger:     a.log,
		Registerer: a.registry,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.mgr = mgr
	return a, nil
}

func (a *app) Close() {
	if a.mgr != nil {
		if err := a.mgr.Close(); err != nil {
			a.log.Error(context.Background(), "closing database", err)
		}
	}
	for _, c := range a.closers {
		_ = c.Close()
	}
}
