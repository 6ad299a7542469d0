package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/arkanova/solar-monitor/internal/domain"
)

type measurementRow struct {
	ID         int64     `db:"id"`
	Data       []byte    `db:"data"`
	RecordedAt time.Time `db:"recorded_at"`
	SensorID   int64     `db:"sensor_id"`
}

func (r measurementRow) withSensor(s domain.Sensor) domain.Measurement {
	return domain.Measurement{ID: r.ID, Data: r.Data, RecordedAt: r.RecordedAt, Sensor: s}
}

// TimeRange bounds a measurement query. A nil Start means no lower bound; a nil
// End means "now" on the database clock, not unbounded.
type TimeRange struct {
	Start *time.Time
	End   *time.Time
}

// MeasurementStore owns the measurement table. Rows are immutable and never
// deleted through this store.
type MeasurementStore struct {
	store
	sensors SensorFinder
}

func NewMeasurementStore(db *sqlx.DB, sensors SensorFinder, logger zerolog.Logger) *MeasurementStore {
	return &MeasurementStore{store: newStore(db, logger, "measurement_store"), sensors: sensors}
}

func (s *MeasurementStore) FindByID(ctx context.Context, id int64) (domain.Measurement, error) {
	return s.findOne(ctx, "find measurement",
		`SELECT id, data, recorded_at, sensor_id FROM measurement WHERE id = $1`, id)
}

// Latest returns the newest measurement of a sensor.
func (s *MeasurementStore) Latest(ctx context.Context, sensorID int64) (domain.Measurement, error) {
	return s.findOne(ctx, "latest measurement",
		`SELECT id, data, recorded_at, sensor_id FROM measurement
		 WHERE sensor_id = $1 ORDER BY recorded_at DESC, id DESC LIMIT 1`, sensorID)
}

func (s *MeasurementStore) findOne(ctx context.Context, op, query string, arg int64) (domain.Measurement, error) {
	var row measurementRow
	if err := s.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Measurement{}, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		}
		return domain.Measurement{}, s.fail(op, err)
	}
	sensor, err := s.sensors.FindByID(ctx, row.SensorID)
	if err != nil {
		return domain.Measurement{}, fmt.Errorf("%s %d: sensor: %w", op, row.ID, err)
	}
	return row.withSensor(sensor), nil
}

// ListBySensor returns a sensor's measurements inside rng, newest first.
func (s *MeasurementStore) ListBySensor(ctx context.Context, sensorID int64, rng TimeRange) ([]domain.Measurement, error) {
	const op = "list measurements"
	query := `SELECT id, data, recorded_at, sensor_id FROM measurement WHERE sensor_id = $1`
	args := []any{sensorID}
	if rng.Start != nil {
		args = append(args, *rng.Start)
		query += fmt.Sprintf(" AND recorded_at >= $%d", len(args))
	}
	if rng.End != nil {
		args = append(args, *rng.End)
		query += fmt.Sprintf(" AND recorded_at <= $%d", len(args))
	} else {
		query += " AND recorded_at <= NOW()"
	}
	query += " ORDER BY recorded_at DESC, id DESC"

	var rows []measurementRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, s.fail(op, err)
	}

	out := make([]domain.Measurement, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	sensor, err := s.sensors.FindByID(ctx, sensorID)
	if err != nil {
		return nil, fmt.Errorf("%s: sensor: %w", op, err)
	}
	for _, r := range rows {
		out = append(out, r.withSensor(sensor))
	}
	return out, nil
}

// Create stores data as given. recorded_at is assigned by the database.
func (s *MeasurementStore) Create(ctx context.Context, data []byte, sensorID int64) (domain.Measurement, error) {
	const op = "create measurement"
	var row measurementRow
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO measurement (data, sensor_id) VALUES ($1, $2)
		 RETURNING id, data, recorded_at, sensor_id`,
		data, sensorID,
	).StructScan(&row)
	if err != nil {
		return domain.Measurement{}, s.fail(op, err)
	}
	sensor, err := s.sensors.FindByID(ctx, row.SensorID)
	if err != nil {
		return domain.Measurement{}, fmt.Errorf("%s %d: sensor: %w", op, row.ID, err)
	}
	return row.withSensor(sensor), nil
}
