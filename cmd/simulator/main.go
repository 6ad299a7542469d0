package main

import (
	"context"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"

	"github.com/arkanova/solar-monitor/internal/config"
	"github.com/arkanova/solar-monitor/internal/logging"
)

// reading matches what the ingestor decodes.
type reading struct {
	Data     float64 `json:"data"`
	SensorID int64   `json:"sensor_id"`
}

func main() {
	flags := config.SimulatorFlags()
	_ = flags.Parse(os.Args[1:]) // ExitOnError

	bootLogger := logging.Setup("info", "json")
	if err := config.Load(); err != nil {
		bootLogger.Fatal().Err(err).Msg("config load failed")
	}
	if err := config.BindFlags(flags); err != nil {
		bootLogger.Fatal().Err(err).Msg("flag binding failed")
	}
	log := logging.Setup(config.LogLevel(), config.LogFormat())
	sensorID, count := config.SimSensorID(), config.SimCount()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := mqtt.NewClientOptions().
		AddBroker(config.MQTTBroker()).
		SetClientID(config.MQTTClientID() + "-simulator").
		SetUsername(config.MQTTUsername()).
		SetPassword(config.MQTTPassword())
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	topics := config.MQTTTopics()
	if len(topics) == 0 {
		log.Fatal().Msg("no MQTT topics configured")
	}
	topic := topics[0]
	interval := config.SimInterval()
	if interval <= 0 {
		log.Fatal().Dur("interval", interval).Msg("interval must be positive")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for sent := 0; count == 0 || sent < count; sent++ {
		payload, err := json.Marshal(reading{Data: 20 + rand.Float64()*10, SensorID: sensorID})
		if err != nil {
			log.Fatal().Err(err).Msg("encode reading")
		}
		token := client.Publish(topic, config.MQTTQoS(), false, payload)
		token.Wait()
		if err := token.Error(); err != nil {
			log.Error().Err(err).Str("topic", topic).Msg("publish failed")
		}

		select {
		case <-ctx.Done():
			log.Info().Int("sent", sent+1).Msg("simulation interrupted")
			return
		case <-ticker.C:
		}
	}
	log.Info().Int("sent", count).Msg("simulation done")
}
