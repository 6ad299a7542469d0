package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/arkanova/solar-monitor/internal/domain"
)

// SQLSTATE codes the stores translate into domain errors.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// UserFinder resolves the owner embedded in a SolarPanel.
type UserFinder interface {
	FindByID(ctx context.Context, id int64) (domain.User, error)
}

// PanelFinder resolves the panel embedded in a Sensor.
type PanelFinder interface {
	FindByID(ctx context.Context, id int64) (domain.SolarPanel, error)
}

// SensorTypeFinder resolves the type embedded in a Sensor.
type SensorTypeFinder interface {
	FindByID(ctx context.Context, id int64) (domain.SensorType, error)
}

// SensorFinder resolves the sensor embedded in a Measurement.
type SensorFinder interface {
	FindByID(ctx context.Context, id int64) (domain.Sensor, error)
}

// Repos wires the store chain User <- SolarPanel <- Sensor <- Measurement
// over one shared pool.
type Repos struct {
	Users        *UserStore
	Panels       *SolarPanelStore
	SensorTypes  *SensorTypeStore
	Sensors      *SensorStore
	Measurements *MeasurementStore
}

func New(db *sqlx.DB, logger zerolog.Logger) *Repos {
	users := NewUserStore(db, logger)
	panels := NewSolarPanelStore(db, users, logger)
	types := NewSensorTypeStore(db, logger)
	sensors := NewSensorStore(db, panels, types, logger)
	return &Repos{
		Users:        users,
		Panels:       panels,
		SensorTypes:  types,
		Sensors:      sensors,
		Measurements: NewMeasurementStore(db, sensors, logger),
	}
}

type store struct {
	db  *sqlx.DB
	log zerolog.Logger
}

func newStore(db *sqlx.DB, logger zerolog.Logger, name string) store {
	return store{db: db, log: logger.With().Str("component", name).Logger()}
}

// fail translates a driver error. Constraint violations become domain errors;
// anything else is logged here with the driver detail and surfaced as ErrStorage.
func (s store) fail(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%s: %w", op, domain.ErrConflict)
		case foreignKeyViolation:
			return fmt.Errorf("%s: %w", op, domain.ErrInvalidInput)
		}
	}
	s.log.Error().Err(err).Str("op", op).Msg("query failed")
	return fmt.Errorf("%s: %w", op, domain.ErrStorage)
}

// exactlyOne maps a write result onto found / not found.
func (s store) exactlyOne(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return s.fail(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return nil
}
