package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/arkanova/solar-monitor/internal/domain"
)

// SensorTypeStore reads reference data. No caching; every call round-trips.
type SensorTypeStore struct {
	store
}

func NewSensorTypeStore(db *sqlx.DB, logger zerolog.Logger) *SensorTypeStore {
	return &SensorTypeStore{store: newStore(db, logger, "sensor_type_store")}
}

func (s *SensorTypeStore) FindByID(ctx context.Context, id int64) (domain.SensorType, error) {
	const op = "find sensor type"
	var t domain.SensorType
	if err := s.db.GetContext(ctx, &t, `SELECT id, name FROM sensor_type WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.SensorType{}, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		}
		return domain.SensorType{}, s.fail(op, err)
	}
	return t, nil
}
