package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/osa911/proxydesk/internal/logging"
)

// Config holds all configuration for the console. It is resolved once at
// startup and passed to every component.
type Config struct {
	// Server Configuration
	Environment string `env:"ENV" envDefault:"development"`
	BindAddress string `env:"BIND_ADDRESS" envDefault:"127.0.0.1"`
	Port        int    `env:"PORT" envDefault:"8080"`

	// Nginx Configuration
	NginxPath     string `env:"NGINX_PATH"`
	NginxBinary   string `env:"NGINX_BIN"`
	NginxPrefix   string `env:"NGINX_PREFIX"`
	NginxConfFile string `env:"NGINX_CONF"`
	ConfRoot      string `env:"NGINX_CONF_ROOT"`
	FragmentDir   string `env:"NGINX_CONF_D"`
	NginxLogDir   string `env:"NGINX_LOG_DIR"`
	ServiceName   string `env:"NGINX_SERVICE" envDefault:"nginx"`
	ProcessName   string `env:"NGINX_PROCESS" envDefault:"nginx"`
	UseSudo       bool   `env:"NGINX_SUDO" envDefault:"false"`

	// Storage Configuration
	LedgerPath     string        `env:"LEDGER_PATH"`
	BackupPath     string        `env:"BACKUP_PATH" envDefault:"./backups"`
	BackupSchedule string        `env:"BACKUP_SCHEDULE"`
	BackupRetain   int           `env:"BACKUP_RETAIN" envDefault:"0"`
	CommandTimeout time.Duration `env:"COMMAND_TIMEOUT" envDefault:"30s"`
	WatchFragments bool          `env:"WATCH_FRAGMENTS" envDefault:"true"`

	// Logging Configuration
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile     string `env:"LOG_FILE"`
	LogRequests bool   `env:"LOG_REQUESTS" envDefault:"false"`

	// Rate Limiting
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"20"`

	// Telemetry Configuration
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	OTLPEndpoint   string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure   bool   `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
}

// Load loads the configuration from environment variables and .env files
func Load() (*Config, error) {
	envLocations := []string{".env"}

	// If ENV is set, try to load that specific file first
	if envName := os.Getenv("ENV"); envName != "" {
		envLocations = append([]string{fmt.Sprintf(".env.%s", envName)}, envLocations...)
	}

	for _, loc := range envLocations {
		// godotenv.Load never overrides variables that are already set,
		// so the more specific file wins
		_ = godotenv.Load(loc)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.resolve()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultNginxPath() string {
	if runtime.GOOS == "windows" {
		return `C:\nginx`
	}
	return "/etc/nginx"
}

// resolve fills every path that defaults relative to another setting.
func (c *Config) resolve() {
	if c.NginxPath == "" {
		c.NginxPath = defaultNginxPath()
	}

	if c.NginxBinary == "" {
		if runtime.GOOS == "windows" {
			c.NginxBinary = filepath.Join(c.NginxPath, "nginx.exe")
		} else {
			c.NginxBinary = "nginx"
		}
	}
	// nginx.exe resolves its configuration relative to the install directory
	if c.NginxPrefix == "" && runtime.GOOS == "windows" {
		c.NginxPrefix = c.NginxPath
	}

	if c.ConfRoot == "" {
		c.ConfRoot = c.NginxPath
		if info, err := os.Stat(filepath.Join(c.NginxPath, "conf")); err == nil && info.IsDir() {
			c.ConfRoot = filepath.Join(c.NginxPath, "conf")
		}
	}
	if c.FragmentDir == "" {
		c.FragmentDir = filepath.Join(c.ConfRoot, "conf.d")
	}
	if c.NginxLogDir == "" {
		if runtime.GOOS == "windows" {
			c.NginxLogDir = filepath.Join(c.NginxPath, "logs")
		} else {
			c.NginxLogDir = "/var/log/nginx"
		}
	}
	if c.LedgerPath == "" {
		c.LedgerPath = filepath.Join(c.NginxPath, "services.csv")
	}

	if c.LogFile == "" {
		if c.Environment == "production" {
			c.LogFile = filepath.Join(c.NginxLogDir, "web-ui.log")
		} else {
			c.LogFile = "./logs/web-ui.log"
		}
	}
	c.LogLevel = strings.ToLower(c.LogLevel)
}

// Validate checks the resolved configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	if net.ParseIP(c.BindAddress) == nil && c.BindAddress != "localhost" {
		errs = append(errs, fmt.Errorf("BIND_ADDRESS %q is not an IP address", c.BindAddress))
	}
	if c.CommandTimeout <= 0 {
		errs = append(errs, fmt.Errorf("COMMAND_TIMEOUT must be positive, got %s", c.CommandTimeout))
	}
	if c.BackupRetain < 0 {
		errs = append(errs, fmt.Errorf("BACKUP_RETAIN must not be negative, got %d", c.BackupRetain))
	}
	if c.BackupSchedule != "" {
		if _, err := cron.ParseStandard(c.BackupSchedule); err != nil {
			errs = append(errs, fmt.Errorf("BACKUP_SCHEDULE %q: %w", c.BackupSchedule, err))
		}
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must not be negative"))
	}
	if err := c.Logging().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.BackupPath == "" {
		errs = append(errs, errors.New("BACKUP_PATH must not be empty"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.BindAddress, strconv.Itoa(c.Port))
}

// IsProduction reports whether ENV is production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Logging returns the logger configuration.
func (c *Config) Logging() *logging.Config {
	return &logging.Config{
		Level:      c.LogLevel,
		File:       c.LogFile,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Requests:   c.LogRequests,
	}
}

// SudoPrefix returns the command prefix for privileged invocations.
func (c *Config) SudoPrefix() []string {
	if c.UseSudo && runtime.GOOS != "windows" {
		return []string{"sudo", "-n"}
	}
	return nil
}
