// Package app wires the console's components from a resolved configuration.
// Both the HTTP server and the CLI build on it.
package app

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/osa911/proxydesk/internal/api/handlers"
	"github.com/osa911/proxydesk/internal/api/middleware"
	"github.com/osa911/proxydesk/internal/backup"
	"github.com/osa911/proxydesk/internal/config"
	"github.com/osa911/proxydesk/internal/fragment"
	"github.com/osa911/proxydesk/internal/ledger"
	"github.com/osa911/proxydesk/internal/logging"
	"github.com/osa911/proxydesk/internal/metrics"
	"github.com/osa911/proxydesk/internal/nginx"
	"github.com/osa911/proxydesk/internal/probe"
	"github.com/osa911/proxydesk/internal/server"
	"github.com/osa911/proxydesk/internal/server/routes"
	"github.com/osa911/proxydesk/internal/service"
	"github.com/osa911/proxydesk/internal/shell"
	"github.com/osa911/proxydesk/internal/telemetry"
	"github.com/osa911/proxydesk/internal/web"
)

// App holds every long-lived component.
type App struct {
	Config     *config.Config
	Logger     *logging.Logger
	Metrics    *metrics.Collector
	Store      *fragment.Store
	Ledger     *ledger.Ledger
	Archiver   *backup.Archiver
	Controller *nginx.Controller
	Probe      probe.SystemProbe
	Service    *service.ProxyService
}

// New builds the component graph. Nothing touches the filesystem or runs
// a command until an operation is invoked.
func New(cfg *config.Config, logger *logging.Logger) *App {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.NewCollector(nil)
	}

	// nginx may need elevation; the read-only probes never do
	nginxRunner := shell.NewExecRunner(cfg.CommandTimeout, cfg.SudoPrefix()...)
	probeRunner := shell.NewExecRunner(cfg.CommandTimeout)

	sysProbe := probe.NewDefaultProbe(probeRunner, probe.Options{
		ServiceName: cfg.ServiceName,
		ProcessName: cfg.ProcessName,
	})

	controller := nginx.NewController(nginx.Options{
		Binary:     cfg.NginxBinary,
		Prefix:     cfg.NginxPrefix,
		ConfigFile: cfg.NginxConfFile,
	}, nginxRunner, sysProbe, collector, logger)

	store := fragment.NewStore(cfg.FragmentDir, logger)
	recordLedger := ledger.New(cfg.LedgerPath)
	archiver := backup.NewArchiver(backup.Paths{
		BackupDir:   absPath(cfg.BackupPath),
		ConfigRoot:  cfg.ConfRoot,
		FragmentDir: cfg.FragmentDir,
		LedgerPath:  cfg.LedgerPath,
	}, logger)

	svc := service.NewProxyService(store, recordLedger, controller, archiver, sysProbe, collector, logger, service.Options{
		BackupRetain: cfg.BackupRetain,
		LogDir:       cfg.NginxLogDir,
		NginxPath:    cfg.NginxPath,
	})

	return &App{
		Config:     cfg,
		Logger:     logger,
		Metrics:    collector,
		Store:      store,
		Ledger:     recordLedger,
		Archiver:   archiver,
		Controller: controller,
		Probe:      sysProbe,
		Service:    svc,
	}
}

// absPath keeps relative backup paths stable if the working directory
// changes later.
func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// HTTPServer builds the HTTP server over the app's service.
func (a *App) HTTPServer(tracing bool) (*server.Server, error) {
	ui, err := handlers.NewUIHandler(web.Static())
	if err != nil {
		return nil, fmt.Errorf("console assets: %w", err)
	}

	h := &routes.Handlers{
		Health: handlers.NewHealthHandler(a.Store),
		Proxy:  handlers.NewProxyHandler(a.Service),
		Nginx:  handlers.NewNginxHandler(a.Service),
		Backup: handlers.NewBackupHandler(a.Service),
		System: handlers.NewSystemHandler(a.Service),
		UI:     ui,
	}
	m := &routes.Middleware{
		Logger:  a.Logger,
		Metrics: a.Metrics,
		RateLimit: middleware.RateLimitConfig{
			RPS:   a.Config.RateLimitRPS,
			Burst: a.Config.RateLimitBurst,
		},
		Tracing:     tracing,
		ServiceName: telemetry.ServiceName,
	}

	return server.NewServer(server.Config{
		Addr:         a.Config.Addr(),
		Production:   a.Config.IsProduction(),
		// add runs a dry run and a reload back to back
		WriteTimeout: 2*a.Config.CommandTimeout + time.Minute,
	}, h, m), nil
}
