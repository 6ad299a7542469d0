package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/arkanova/solar-monitor/internal/config"
	"github.com/arkanova/solar-monitor/internal/database"
	"github.com/arkanova/solar-monitor/internal/ingest"
	"github.com/arkanova/solar-monitor/internal/logging"
	"github.com/arkanova/solar-monitor/internal/metrics"
	"github.com/arkanova/solar-monitor/internal/repository"
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
	pipeline := ingest.New(repos.Sensors, repos.Measurements, ingest.Options{
		Topics:    config.MQTTTopics(),
		QoS:       config.MQTTQoS(),
		Workers:   config.IngestWorkers(),
		QueueSize: config.IngestQueueSize(),
	}, log)

	opts := mqtt.NewClientOptions().
		AddBroker(config.MQTTBroker()).
		SetClientID(config.MQTTClientID()).
		SetUsername(config.MQTTUsername()).
		SetPassword(config.MQTTPassword())
	client := mqtt.NewClient(pipeline.Configure(opts))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: config.MetricsAddr(), Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("metrics listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		log.Info().Str("broker", config.MQTTBroker()).Strs("topics", config.MQTTTopics()).Msg("ingestor starting")
		return pipeline.Run(gctx, client)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("ingestor exit")
	}
	log.Info().Msg("ingestor stopped")
}
