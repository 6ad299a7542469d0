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

type sensorRow struct {
	ID           int64 `db:"id"`
	SolarPanelID int64 `db:"solar_panel_id"`
	SensorTypeID int64 `db:"sensor_type_id"`
}

// SensorStore owns the sensor table. Reads embed the panel (and its owner)
// and the sensor type; if either fails to resolve the read fails.
type SensorStore struct {
	store
	panels PanelFinder
	types  SensorTypeFinder
}

func NewSensorStore(db *sqlx.DB, panels PanelFinder, types SensorTypeFinder, logger zerolog.Logger) *SensorStore {
	return &SensorStore{store: newStore(db, logger, "sensor_store"), panels: panels, types: types}
}

func (s *SensorStore) FindByID(ctx context.Context, id int64) (domain.Sensor, error) {
	const op = "find sensor"
	var row sensorRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, solar_panel_id, sensor_type_id FROM sensor WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Sensor{}, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		}
		return domain.Sensor{}, s.fail(op, err)
	}
	return s.resolve(ctx, row)
}

// List returns every sensor. One unresolvable sensor voids the whole list.
func (s *SensorStore) List(ctx context.Context) ([]domain.Sensor, error) {
	return s.list(ctx, "list sensors",
		`SELECT id, solar_panel_id, sensor_type_id FROM sensor ORDER BY id`)
}

func (s *SensorStore) ListByPanel(ctx context.Context, panelID int64) ([]domain.Sensor, error) {
	return s.list(ctx, "list sensors by panel",
		`SELECT id, solar_panel_id, sensor_type_id FROM sensor WHERE solar_panel_id = $1 ORDER BY id`, panelID)
}

func (s *SensorStore) list(ctx context.Context, op, query string, args ...any) ([]domain.Sensor, error) {
	var rows []sensorRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, s.fail(op, err)
	}
	sensors := make([]domain.Sensor, 0, len(rows))
	for _, r := range rows {
		sensor, err := s.resolve(ctx, r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		sensors = append(sensors, sensor)
	}
	return sensors, nil
}

func (s *SensorStore) resolve(ctx context.Context, row sensorRow) (domain.Sensor, error) {
	panel, err := s.panels.FindByID(ctx, row.SolarPanelID)
	if err != nil {
		return domain.Sensor{}, fmt.Errorf("sensor %d: panel: %w", row.ID, err)
	}
	typ, err := s.types.FindByID(ctx, row.SensorTypeID)
	if err != nil {
		return domain.Sensor{}, fmt.Errorf("sensor %d: type: %w", row.ID, err)
	}
	return domain.Sensor{ID: row.ID, SolarPanel: panel, Type: typ}, nil
}

// Create checks that both references resolve before inserting. An unresolved
// panel or type is reported as ErrInvalidInput and nothing is written.
func (s *SensorStore) Create(ctx context.Context, panelID, typeID int64) (domain.Sensor, error) {
	const op = "create sensor"
	panel, err := s.panels.FindByID(ctx, panelID)
	if err != nil {
		return domain.Sensor{}, referenceError(op, "solar panel", panelID, err)
	}
	typ, err := s.types.FindByID(ctx, typeID)
	if err != nil {
		return domain.Sensor{}, referenceError(op, "sensor type", typeID, err)
	}

	var id int64
	err = s.db.QueryRowxContext(ctx,
		`INSERT INTO sensor (solar_panel_id, sensor_type_id) VALUES ($1, $2) RETURNING id`,
		panelID, typeID,
	).Scan(&id)
	if err != nil {
		return domain.Sensor{}, s.fail(op, err)
	}
	return domain.Sensor{ID: id, SolarPanel: panel, Type: typ}, nil
}

// Delete does not check for measurements; their rows are left in place.
func (s *SensorStore) Delete(ctx context.Context, id int64) error {
	const op = "delete sensor"
	res, err := s.db.ExecContext(ctx, `DELETE FROM sensor WHERE id = $1`, id)
	if err != nil {
		return s.fail(op, err)
	}
	return s.exactlyOne(op, res)
}

func referenceError(op, what string, id int64, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%s: %s %d does not resolve: %w", op, what, id, domain.ErrInvalidInput)
	}
	return err
}
