package service

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/arkanova/solar-monitor/internal/domain"
	"github.com/arkanova/solar-monitor/internal/metrics"
)

const backupPrefix = "backups/"

// pg_dump 17 emits this setting; older servers reject it on restore.
var transactionTimeout = regexp.MustCompile(`(?im)^[ \t]*SET[ \t]+transaction_timeout[ \t]*=[^;\n]*;[ \t]*\r?\n?`)

// StripTransactionTimeout removes SET transaction_timeout statements from a
// plain-format dump.
func StripTransactionTimeout(dump []byte) []byte {
	return transactionTimeout.ReplaceAll(dump, nil)
}

// Runner executes an external program and returns its standard output. env
// is added to the inherited environment.
type Runner interface {
	Run(ctx context.Context, env []string, name string, args ...string) ([]byte, error)
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// ObjectStore keeps exported dumps off-host.
type ObjectStore interface {
	UploadBackup(ctx context.Context, key string, data []byte) (string, error)
	DownloadBackup(ctx context.Context, key string) ([]byte, error)
	ListBackups(ctx context.Context, prefix string) ([]string, error)
}

// Notifier announces stored backups.
type Notifier interface {
	SendBackupNotice(ctx context.Context, key string, size int, url string) error
}

type BackupConfig struct {
	DSN        string
	PgDumpPath string
	PsqlPath   string
}

// Backup is one export. Key and URL are empty when nothing was uploaded.
type Backup struct {
	Data []byte
	Key  string
	URL  string
}

// BackupService dumps and restores the whole database with the postgres
// client tools. Objects and notifier are optional.
type BackupService struct {
	cfg      BackupConfig
	run      Runner
	objects  ObjectStore
	notifier Notifier
	log      zerolog.Logger
	now      func() time.Time
}

func NewBackupService(cfg BackupConfig, run Runner, objects ObjectStore, notifier Notifier, logger zerolog.Logger) *BackupService {
	if cfg.PgDumpPath == "" {
		cfg.PgDumpPath = "pg_dump"
	}
	if cfg.PsqlPath == "" {
		cfg.PsqlPath = "psql"
	}
	return &BackupService{
		cfg:      cfg,
		run:      run,
		objects:  objects,
		notifier: notifier,
		log:      logger.With().Str("component", "backup").Logger(),
		now:      time.Now,
	}
}

// connArgs splits dsn into client tool flags and a PGPASSWORD entry so the
// password never appears in the process list.
func connArgs(dsn string) (env, args []string, err error) {
	cfg, err := pgconn.ParseConfig(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("parse dsn: %w", err)
	}
	args = []string{
		"--host=" + cfg.Host,
		"--port=" + strconv.Itoa(int(cfg.Port)),
		"--username=" + cfg.User,
		"--dbname=" + cfg.Database,
	}
	if cfg.Password != "" {
		env = append(env, "PGPASSWORD="+cfg.Password)
	}
	if cfg.TLSConfig == nil {
		env = append(env, "PGSSLMODE=disable")
	}
	return env, args, nil
}

// Export produces a plain SQL dump that drops and recreates every object.
// Upload and notification failures are logged; the dump is still returned.
func (s *BackupService) Export(ctx context.Context) (Backup, error) {
	env, args, err := connArgs(s.cfg.DSN)
	if err != nil {
		metrics.BackupsTotal.WithLabelValues("export", "failed").Inc()
		s.log.Error().Err(err).Msg("invalid database DSN")
		return Backup{}, fmt.Errorf("export: %w", domain.ErrStorage)
	}
	out, err := s.run.Run(ctx, env, s.cfg.PgDumpPath,
		append(args, "--format=plain", "--clean", "--if-exists")...)
	if err != nil {
		metrics.BackupsTotal.WithLabelValues("export", "failed").Inc()
		s.log.Error().Err(err).Msg("pg_dump failed")
		return Backup{}, fmt.Errorf("export: %w", domain.ErrStorage)
	}
	b := Backup{Data: StripTransactionTimeout(out)}
	metrics.BackupsTotal.WithLabelValues("export", "ok").Inc()
	s.log.Info().Int("bytes", len(b.Data)).Msg("database exported")

	if s.objects == nil {
		return b, nil
	}
	key := backupPrefix + s.now().UTC().Format("20060102T150405Z") + ".sql"
	url, err := s.objects.UploadBackup(ctx, key, b.Data)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("backup upload failed")
		return b, nil
	}
	b.Key, b.URL = key, url
	s.log.Info().Str("key", key).Msg("backup uploaded")

	if s.notifier != nil {
		if err := s.notifier.SendBackupNotice(ctx, key, len(b.Data), url); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("backup notice failed")
		}
	}
	return b, nil
}

// Import replays a dump in a single transaction and stops at the first error.
func (s *BackupService) Import(ctx context.Context, dump []byte) error {
	if len(bytes.TrimSpace(dump)) == 0 {
		return fmt.Errorf("import: empty backup: %w", domain.ErrInvalidInput)
	}

	f, err := os.CreateTemp("", "uploaded_backup_*.sql")
	if err != nil {
		return s.importFailed(fmt.Errorf("create temp file: %w", err))
	}
	path := f.Name()
	defer os.Remove(path)

	_, werr := f.Write(dump)
	cerr := f.Close()
	if werr != nil || cerr != nil {
		return s.importFailed(fmt.Errorf("write temp file: %v %v", werr, cerr))
	}

	env, args, err := connArgs(s.cfg.DSN)
	if err != nil {
		return s.importFailed(err)
	}
	_, err = s.run.Run(ctx, env, s.cfg.PsqlPath,
		append(args, "--file="+path, "--single-transaction", "-v", "ON_ERROR_STOP=1")...)
	if err != nil {
		return s.importFailed(err)
	}
	metrics.BackupsTotal.WithLabelValues("import", "ok").Inc()
	s.log.Info().Int("bytes", len(dump)).Msg("database imported")
	return nil
}

func (s *BackupService) importFailed(err error) error {
	metrics.BackupsTotal.WithLabelValues("import", "failed").Inc()
	s.log.Error().Err(err).Msg("import failed")
	return fmt.Errorf("import: %w", domain.ErrStorage)
}

// ImportObject restores a dump previously uploaded by Export.
func (s *BackupService) ImportObject(ctx context.Context, key string) error {
	if s.objects == nil {
		return fmt.Errorf("import: cloud storage disabled: %w", domain.ErrInvalidInput)
	}
	if !strings.HasPrefix(key, backupPrefix) {
		return fmt.Errorf("import: key outside %s: %w", backupPrefix, domain.ErrInvalidInput)
	}
	dump, err := s.objects.DownloadBackup(ctx, key)
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("backup download failed")
		return fmt.Errorf("import %s: %w", key, domain.ErrNotFound)
	}
	return s.Import(ctx, dump)
}

// List returns the keys of uploaded dumps.
func (s *BackupService) List(ctx context.Context) ([]string, error) {
	if s.objects == nil {
		return nil, fmt.Errorf("list backups: cloud storage disabled: %w", domain.ErrInvalidInput)
	}
	keys, err := s.objects.ListBackups(ctx, backupPrefix)
	if err != nil {
		s.log.Error().Err(err).Msg("list backups failed")
		return nil, fmt.Errorf("list backups: %w", domain.ErrStorage)
	}
	return keys, nil
}
