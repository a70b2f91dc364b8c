package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/osa911/proxydesk/internal/api/validation"
	"github.com/osa911/proxydesk/internal/logging"
	"github.com/osa911/proxydesk/internal/metrics"
	"github.com/osa911/proxydesk/internal/models"
	"github.com/osa911/proxydesk/internal/probe"
)

const tracerName = "github.com/osa911/proxydesk/internal/service"

// FragmentStore reads and writes proxy fragments.
type FragmentStore interface {
	List(ctx context.Context) ([]models.Fragment, error)
	Write(def models.ProxyDefinition) (string, error)
	Exists(filename string) (bool, error)
	Remove(filename string) error
	Path(filename string) string
}

// RecordLedger is the append-only audit trail of submissions.
type RecordLedger interface {
	Append(def models.ProxyDefinition) error
}

// ServerController drives the proxy server binary.
type ServerController interface {
	ValidateConfig(ctx context.Context) (string, error)
	Reload(ctx context.Context) error
	QueryRunningState(ctx context.Context) models.RunningState
}

// BackupArchiver snapshots configuration and keeps pre-delete copies.
type BackupArchiver interface {
	CreateSnapshot(ctx context.Context) (models.BackupArtifact, error)
	ListSnapshots(ctx context.Context) ([]models.BackupArtifact, error)
	ArchiveBeforeDelete(fragmentPath string) (string, error)
	Open(name string) (string, error)
	Prune(ctx context.Context, keep int) ([]string, error)
}

// Options carries the settings the service needs beyond its collaborators.
type Options struct {
	// BackupRetain is the number of snapshots kept after each backup. 0 keeps all.
	BackupRetain int
	// LogDir holds the nginx access and error logs.
	LogDir string
	// NginxPath is reported on the system overview.
	NginxPath string
}

// ProxyService keeps the fragment directory, the ledger and the running
// server consistent. Mutating operations are serialized on one lock
// scoped to the configuration directory; reads do not take it.
type ProxyService struct {
	store      FragmentStore
	ledger     RecordLedger
	controller ServerController
	archiver   BackupArchiver
	probe      probe.SystemProbe

	opts     Options
	validate *validator.Validate
	metrics  *metrics.Collector
	logger   *logging.Logger
	tracer   trace.Tracer

	mu sync.Mutex
}

// NewProxyService wires the reconciliation service.
func NewProxyService(
	store FragmentStore,
	ledger RecordLedger,
	controller ServerController,
	archiver BackupArchiver,
	sysProbe probe.SystemProbe,
	collector *metrics.Collector,
	logger *logging.Logger,
	opts Options,
) *ProxyService {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &ProxyService{
		store:      store,
		ledger:     ledger,
		controller: controller,
		archiver:   archiver,
		probe:      sysProbe,
		opts:       opts,
		validate:   validation.New(),
		metrics:    collector,
		logger:     logger,
		tracer:     otel.Tracer(tracerName),
	}
}

func (s *ProxyService) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "proxy."+op, trace.WithAttributes(attrs...))
}

func (s *ProxyService) endSpan(span trace.Span, op string, err error) {
	s.metrics.RecordOperation(op, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func normalize(def models.ProxyDefinition) models.ProxyDefinition {
	def.Name = strings.TrimSpace(def.Name)
	def.Hostname = strings.TrimSpace(def.Hostname)
	def.BackendAddress = strings.TrimSpace(def.BackendAddress)
	def.URLPath = strings.TrimSpace(def.URLPath)
	def.Description = strings.TrimSpace(def.Description)
	return def
}

// Add validates def, records it in the ledger, writes its fragment and
// applies it. A rejected dry run removes the fragment again and returns
// the *models.ValidationError unchanged. The ledger row is kept.
func (s *ProxyService) Add(ctx context.Context, def models.ProxyDefinition) (result models.AddResult, err error) {
	def = normalize(def)
	ctx, span := s.startSpan(ctx, "add",
		attribute.String("proxy.name", def.Name),
		attribute.String("proxy.hostname", def.Hostname),
	)
	defer func() { s.endSpan(span, "add", err) }()

	if err := s.validate.Struct(def); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return models.AddResult{}, validation.FormatValidationError(err)
		}
		return models.AddResult{}, models.InvalidArgument("%v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	filename := def.FragmentFilename()
	span.SetAttributes(attribute.String("proxy.filename", filename))

	exists, err := s.store.Exists(filename)
	if err != nil {
		return models.AddResult{}, err
	}
	if exists {
		return models.AddResult{}, fmt.Errorf("proxy %s already exists: %w", filename, models.ErrConflict)
	}

	if err := s.ledger.Append(def); err != nil {
		return models.AddResult{}, err
	}

	if _, err := s.store.Write(def); err != nil {
		return models.AddResult{}, err
	}

	diagnostic, err := s.controller.ValidateConfig(ctx)
	if err != nil {
		if rmErr := s.store.Remove(filename); rmErr != nil {
			s.logger.Error("Rollback of %s failed: %v", filename, rmErr)
			return models.AddResult{}, errors.Join(err, rmErr)
		}
		s.logger.Warn("Proxy %s rolled back, ledger row kept: %v", filename, err)
		return models.AddResult{}, err
	}

	if err := s.controller.Reload(ctx); err != nil {
		return models.AddResult{}, err
	}

	s.logger.Info("Proxy added: %s (%s -> %s:%d)", filename, def.Hostname, def.BackendAddress, def.BackendPort)
	return models.AddResult{Filename: filename, Diagnostic: diagnostic}, nil
}

// Delete archives the fragment, removes it and reloads the server. The
// reload is not preceded by a dry run: removing a fragment cannot add a
// syntax error.
func (s *ProxyService) Delete(ctx context.Context, filename string) (result models.DeleteResult, err error) {
	ctx, span := s.startSpan(ctx, "delete", attribute.String("proxy.filename", filename))
	defer func() { s.endSpan(span, "delete", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.store.Exists(filename)
	if err != nil {
		return models.DeleteResult{}, err
	}
	if !exists {
		return models.DeleteResult{}, fmt.Errorf("proxy %s: %w", filename, models.ErrNotFound)
	}

	backupName, err := s.archiver.ArchiveBeforeDelete(s.store.Path(filename))
	if err != nil {
		return models.DeleteResult{}, err
	}

	if err := s.store.Remove(filename); err != nil {
		return models.DeleteResult{}, err
	}

	if err := s.controller.Reload(ctx); err != nil {
		return models.DeleteResult{}, err
	}

	s.logger.Info("Proxy deleted: %s (backup %s)", filename, backupName)
	return models.DeleteResult{Filename: filename, Backup: backupName}, nil
}

// List returns every fragment in the fragment directory.
func (s *ProxyService) List(ctx context.Context) (fragments []models.Fragment, err error) {
	ctx, span := s.startSpan(ctx, "list")
	defer func() { s.endSpan(span, "list", err) }()

	fragments, err = s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	s.metrics.SetFragments(len(fragments))
	span.SetAttributes(attribute.Int("proxy.count", len(fragments)))
	return fragments, nil
}

// Reload runs a dry run and, if it passes, reloads the server. The dry
// run diagnostic is returned either way.
func (s *ProxyService) Reload(ctx context.Context) (diagnostic string, err error) {
	ctx, span := s.startSpan(ctx, "reload")
	defer func() { s.endSpan(span, "reload", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	diagnostic, err = s.controller.ValidateConfig(ctx)
	if err != nil {
		return diagnostic, err
	}
	if err := s.controller.Reload(ctx); err != nil {
		return diagnostic, err
	}
	return diagnostic, nil
}

// Status reports the aggregated running state. It never fails.
func (s *ProxyService) Status(ctx context.Context) models.RunningState {
	ctx, span := s.startSpan(ctx, "status")
	defer s.endSpan(span, "status", nil)

	state := s.controller.QueryRunningState(ctx)
	span.SetAttributes(
		attribute.Bool("nginx.config_valid", state.ConfigValid),
		attribute.Bool("nginx.service_running", state.ServiceRunning),
	)
	return state
}

// CreateBackup snapshots the configuration and prunes old snapshots when
// retention is configured. trigger labels the metric ("manual",
// "schedule").
func (s *ProxyService) CreateBackup(ctx context.Context, trigger string) (artifact models.BackupArtifact, err error) {
	ctx, span := s.startSpan(ctx, "backup", attribute.String("backup.trigger", trigger))
	defer func() {
		s.metrics.RecordBackup(trigger, err)
		s.endSpan(span, "backup", err)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	artifact, err = s.archiver.CreateSnapshot(ctx)
	if err != nil {
		return models.BackupArtifact{}, err
	}
	span.SetAttributes(attribute.String("backup.name", artifact.Name))

	if s.opts.BackupRetain > 0 {
		if _, err := s.archiver.Prune(ctx, s.opts.BackupRetain); err != nil {
			// the snapshot itself succeeded
			s.logger.Warn("Backup prune failed: %v", err)
		}
	}
	return artifact, nil
}

// ListBackups returns finalized snapshots, newest first.
func (s *ProxyService) ListBackups(ctx context.Context) (artifacts []models.BackupArtifact, err error) {
	ctx, span := s.startSpan(ctx, "list_backups")
	defer func() { s.endSpan(span, "list_backups", err) }()

	return s.archiver.ListSnapshots(ctx)
}

// BackupPath resolves a snapshot name for download.
func (s *ProxyService) BackupPath(name string) (string, error) {
	return s.archiver.Open(name)
}
