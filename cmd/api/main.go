package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/arkanova/solar-monitor/internal/cloud"
	"github.com/arkanova/solar-monitor/internal/config"
	"github.com/arkanova/solar-monitor/internal/database"
	httpapi "github.com/arkanova/solar-monitor/internal/http"
	"github.com/arkanova/solar-monitor/internal/logging"
	"github.com/arkanova/solar-monitor/internal/metrics"
	"github.com/arkanova/solar-monitor/internal/repository"
	"github.com/arkanova/solar-monitor/internal/service"
)

func main() {
	if err := config.Load(); err != nil {
		bootLogger := logging.Setup("info", "json")
		bootLogger.Fatal().Err(err).Msg("config load failed")
	}
	log := logging.Setup(config.LogLevel(), config.LogFormat())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(config.DBDSN(), database.Options{
		MaxOpenConns:    config.DBMaxOpenConns(),
		MaxIdleConns:    config.DBMaxIdleConns(),
		ConnMaxLifetime: config.DBConnMaxLifetime(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer db.Close()

	if err := metrics.RegisterDB(db.DB, "solar"); err != nil {
		log.Warn().Err(err).Msg("db stats collector not registered")
	}

	repos := repository.New(db, log)
	backup := newBackupService(ctx, log)
	svcs := service.New(repos, backup)

	app := httpapi.NewApp(log)
	httpapi.Register(app, svcs, config.PageMaxLimit(), log)

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	addr := config.APIAddr()
	log.Info().Str("addr", addr).Msg("api listening")
	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("server exit")
	}
	log.Info().Msg("api stopped")
}

// newBackupService wires S3 and SNS when cloud services are enabled. Either
// can be left out without affecting local export and import.
func newBackupService(ctx context.Context, log zerolog.Logger) *service.BackupService {
	var (
		objects  service.ObjectStore
		notifier service.Notifier
	)
	if config.UseCloudServices() {
		cfg, err := cloud.LoadConfig(ctx, config.AWSRegion())
		if err != nil {
			log.Fatal().Err(err).Msg("aws config")
		}
		if bucket := config.S3Bucket(); bucket != "" {
			objects = cloud.NewS3Client(cfg, bucket)
		}
		if arn := config.SNSTopicArn(); arn != "" {
			notifier = cloud.NewSNSClient(cfg, arn)
		}
		log.Info().Bool("s3", objects != nil).Bool("sns", notifier != nil).Msg("cloud services enabled")
	}

	return service.NewBackupService(service.BackupConfig{
		DSN:        config.DBDSN(),
		PgDumpPath: config.PgDumpPath(),
		PsqlPath:   config.PsqlPath(),
	}, service.ExecRunner{}, objects, notifier, log)
}
