package ingest

import (
	"context"
	"fmt"
	"sync/atomic"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/arkanova/solar-monitor/internal/domain"
	"github.com/arkanova/solar-monitor/internal/metrics"
	"github.com/arkanova/solar-monitor/internal/repository"
)

// State of the broker connection.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// MeasurementCreator persists a measurement for a resolved sensor.
type MeasurementCreator interface {
	Create(ctx context.Context, data []byte, sensorID int64) (domain.Measurement, error)
}

type Options struct {
	Topics    []string
	QoS       byte
	Workers   int
	QueueSize int
}

type message struct {
	topic   string
	payload []byte
}

// Pipeline subscribes to the measurement topics and stores what arrives.
// The broker callback only enqueues; workers do the parsing and writes.
type Pipeline struct {
	sensors      repository.SensorFinder
	measurements MeasurementCreator
	opts         Options
	log          zerolog.Logger

	state atomic.Int32
	queue chan message
}

func New(sensors repository.SensorFinder, measurements MeasurementCreator, opts Options, logger zerolog.Logger) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1
	}
	return &Pipeline{
		sensors:      sensors,
		measurements: measurements,
		opts:         opts,
		log:          logger.With().Str("component", "ingest").Logger(),
		queue:        make(chan message, opts.QueueSize),
	}
}

func (p *Pipeline) State() State { return State(p.state.Load()) }

func (p *Pipeline) setState(s State) {
	if prev := State(p.state.Swap(int32(s))); prev != s {
		p.log.Info().Stringer("from", prev).Stringer("to", s).Msg("mqtt state changed")
	}
	metrics.ConnectionState.Set(float64(s))
}

// Configure installs the reconnect policy and connection handlers on o.
func (p *Pipeline) Configure(o *mqtt.ClientOptions) *mqtt.ClientOptions {
	return o.
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetCleanSession(true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost).
		SetReconnectingHandler(p.onReconnecting)
}

// Run connects, starts the workers and blocks until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, client mqtt.Client) error {
	p.setState(Connecting)
	token := client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		client.Disconnect(250)
		p.setState(Disconnected)
		return nil
	}
	if err := token.Error(); err != nil {
		p.setState(Disconnected)
		return fmt.Errorf("mqtt connect: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.opts.Workers; i++ {
		g.Go(func() error {
			p.work(gctx)
			return nil
		})
	}

	<-gctx.Done()
	client.Disconnect(250)
	p.setState(Disconnected)
	return g.Wait()
}

func (p *Pipeline) onConnect(c mqtt.Client) {
	p.setState(Connected)
	for _, topic := range p.opts.Topics {
		token := c.Subscribe(topic, p.opts.QoS, p.onMessage)
		token.Wait()
		if err := token.Error(); err != nil {
			p.log.Error().Err(err).Str("topic", topic).Msg("subscribe failed")
			continue
		}
		p.log.Info().Str("topic", topic).Msg("subscribed")
	}
}

func (p *Pipeline) onConnectionLost(_ mqtt.Client, err error) {
	p.log.Warn().Err(err).Msg("mqtt connection lost")
	p.setState(Disconnected)
}

func (p *Pipeline) onReconnecting(_ mqtt.Client, _ *mqtt.ClientOptions) {
	p.setState(Connecting)
}

// onMessage must not block: paho delivers from a single goroutine.
func (p *Pipeline) onMessage(_ mqtt.Client, msg mqtt.Message) {
	metrics.MessagesReceived.Inc()
	m := message{topic: msg.Topic(), payload: append([]byte(nil), msg.Payload()...)}
	select {
	case p.queue <- m:
		metrics.QueueDepth.Set(float64(len(p.queue)))
	default:
		metrics.MessagesDropped.WithLabelValues("queue_full").Inc()
		p.log.Warn().Str("topic", m.topic).Int("queue_size", cap(p.queue)).Msg("ingest queue full, message dropped")
	}
}

func (p *Pipeline) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-p.queue:
			metrics.QueueDepth.Set(float64(len(p.queue)))
			p.process(context.WithoutCancel(ctx), m)
		}
	}
}

// process never lets one message take the worker down.
func (p *Pipeline) process(ctx context.Context, m message) {
	defer func() {
		if r := recover(); r != nil {
			metrics.MessagesDropped.WithLabelValues("panic").Inc()
			p.log.Error().Interface("panic", r).Str("topic", m.topic).Msg("ingest handler panicked")
		}
	}()

	p.log.Debug().Str("topic", m.topic).Bytes("payload", m.payload).Msg("message received")
	stored, err := p.Handle(ctx, m.payload)
	if err != nil {
		metrics.MessagesDropped.WithLabelValues(dropReason(err)).Inc()
		p.log.Error().Err(err).Str("topic", m.topic).Msg("message dropped")
		return
	}
	metrics.MessagesStored.Inc()
	p.log.Info().
		Int64("measurement_id", stored.ID).
		Int64("sensor_id", stored.Sensor.ID).
		Msg("measurement saved")
}
