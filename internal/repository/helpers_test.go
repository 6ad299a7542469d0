package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/arkanova/solar-monitor/internal/domain"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	return sqlx.NewDb(db, "pgx"), mock
}

func q(sql string) string { return regexp.QuoteMeta(sql) }

var nop = zerolog.Nop()

type fakeUsers map[int64]domain.User

func (f fakeUsers) FindByID(_ context.Context, id int64) (domain.User, error) {
	u, ok := f[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

type fakePanels map[int64]domain.SolarPanel

func (f fakePanels) FindByID(_ context.Context, id int64) (domain.SolarPanel, error) {
	p, ok := f[id]
	if !ok {
		return domain.SolarPanel{}, domain.ErrNotFound
	}
	return p, nil
}

type fakeTypes map[int64]domain.SensorType

func (f fakeTypes) FindByID(_ context.Context, id int64) (domain.SensorType, error) {
	t, ok := f[id]
	if !ok {
		return domain.SensorType{}, domain.ErrNotFound
	}
	return t, nil
}

type fakeSensors map[int64]domain.Sensor

func (f fakeSensors) FindByID(_ context.Context, id int64) (domain.Sensor, error) {
	s, ok := f[id]
	if !ok {
		return domain.Sensor{}, domain.ErrNotFound
	}
	return s, nil
}
