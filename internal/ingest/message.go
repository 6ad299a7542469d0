package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/arkanova/solar-monitor/internal/domain"
)

// Reasons a message is dropped. Each maps to a label on the dropped counter.
var (
	ErrMalformed     = errors.New("malformed payload")
	ErrMissingFields = errors.New("missing required fields")
	ErrUnknownSensor = errors.New("unknown sensor")
	ErrStoreFailed   = errors.New("measurement not stored")
)

// payload is the body field devices publish, e.g. {"data":23.5,"sensor_id":7}.
type payload struct {
	Data     *float64 `json:"data" validate:"required"`
	SensorID *int64   `json:"sensor_id" validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func decode(raw []byte) (payload, error) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return payload{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := validate.Struct(p); err != nil {
		return payload{}, fmt.Errorf("%w: %v", ErrMissingFields, err)
	}
	return p, nil
}

// Handle turns one bus payload into a stored measurement. The sensor must
// resolve before anything is written.
func (p *Pipeline) Handle(ctx context.Context, raw []byte) (domain.Measurement, error) {
	msg, err := decode(raw)
	if err != nil {
		return domain.Measurement{}, err
	}

	sensor, err := p.sensors.FindByID(ctx, *msg.SensorID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Measurement{}, fmt.Errorf("%w: %d", ErrUnknownSensor, *msg.SensorID)
		}
		return domain.Measurement{}, fmt.Errorf("%w: resolve sensor %d: %v", ErrStoreFailed, *msg.SensorID, err)
	}

	data := []byte(strconv.FormatFloat(*msg.Data, 'f', -1, 64))
	m, err := p.measurements.Create(ctx, data, sensor.ID)
	if err != nil {
		return domain.Measurement{}, fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}
	return m, nil
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, ErrMissingFields):
		return "missing_fields"
	case errors.Is(err, ErrUnknownSensor):
		return "unknown_sensor"
	default:
		return "store_failed"
	}
}
