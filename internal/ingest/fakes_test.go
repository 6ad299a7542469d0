package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/arkanova/solar-monitor/internal/domain"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }

func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// fakeClient records subscriptions. Methods not overridden panic through the
// nil embedded interface.
type fakeClient struct {
	mqtt.Client

	mu           sync.Mutex
	connectErr   error
	subscribeErr map[string]error
	handlers     map[string]mqtt.MessageHandler
	disconnected bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{subscribeErr: map[string]error{}, handlers: map[string]mqtt.MessageHandler{}}
}

func (c *fakeClient) Connect() mqtt.Token { return doneToken{err: c.connectErr} }

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
}

func (c *fakeClient) Subscribe(topic string, _ byte, cb mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.subscribeErr[topic]; err != nil {
		return doneToken{err: err}
	}
	c.handlers[topic] = cb
	return doneToken{}
}

func (c *fakeClient) deliver(topic string, payload string) {
	c.mu.Lock()
	cb := c.handlers[topic]
	c.mu.Unlock()
	cb(c, fakeMessage{topic: topic, payload: []byte(payload)})
}

type fakeMessage struct {
	mqtt.Message
	topic   string
	payload []byte
}

func (m fakeMessage) Topic() string   { return m.topic }
func (m fakeMessage) Payload() []byte { return m.payload }

type fakeSensors struct {
	sensors map[int64]domain.Sensor
	err     error
}

func (f fakeSensors) FindByID(_ context.Context, id int64) (domain.Sensor, error) {
	if f.err != nil {
		return domain.Sensor{}, f.err
	}
	s, ok := f.sensors[id]
	if !ok {
		return domain.Sensor{}, domain.ErrNotFound
	}
	return s, nil
}

type stored struct {
	data     string
	sensorID int64
}

// fakeMeasurements records writes and signals each one on created.
type fakeMeasurements struct {
	mu      sync.Mutex
	rows    []stored
	fail    bool
	panicOn string
	created chan struct{}
}

func newFakeMeasurements() *fakeMeasurements {
	return &fakeMeasurements{created: make(chan struct{}, 64)}
}

func (f *fakeMeasurements) Create(_ context.Context, data []byte, sensorID int64) (domain.Measurement, error) {
	if f.panicOn != "" && string(data) == f.panicOn {
		panic("boom")
	}
	if f.fail {
		return domain.Measurement{}, errors.New("insert failed")
	}
	f.mu.Lock()
	f.rows = append(f.rows, stored{string(data), sensorID})
	id := int64(len(f.rows))
	f.mu.Unlock()
	f.created <- struct{}{}
	return domain.Measurement{
		ID:         id,
		Data:       data,
		RecordedAt: time.Now(),
		Sensor:     domain.Sensor{ID: sensorID, Type: domain.SensorType{Name: domain.SensorTypeTemperature}},
	}, nil
}

func (f *fakeMeasurements) snapshot() []stored {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]stored(nil), f.rows...)
}
