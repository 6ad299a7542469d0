//go:build integration

package repository

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/arkanova/solar-monitor/internal/database"
	"github.com/arkanova/solar-monitor/internal/domain"
)

func skipIfNoDocker(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if exec.CommandContext(ctx, "docker", "info").Run() != nil {
		t.Skip("docker not available")
	}
}

// startPostgres runs a throwaway postgres with testdata/schema.sql applied.
func startPostgres(t *testing.T) *sqlx.DB {
	t.Helper()
	skipIfNoDocker(t)
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "arkanova",
				"POSTGRES_PASSWORD": "arkanova",
				"POSTGRES_DB":       "arkanova",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			).WithDeadline(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := "postgres://arkanova:arkanova@" + host + ":" + port.Port() + "/arkanova?sslmode=disable"

	db, err := database.Connect(dsn, database.Options{MaxOpenConns: 5, MaxIdleConns: 2, ConnMaxLifetime: time.Minute})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile("testdata/schema.sql")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if _, err := db.ExecContext(ctx, string(schema)); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db
}

func countRows(t *testing.T, db *sqlx.DB, query string, args ...any) int {
	t.Helper()
	var n int
	if err := db.Get(&n, query, args...); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestStoresAgainstPostgres(t *testing.T) {
	db := startPostgres(t)
	repos := New(db, nop)
	ctx := context.Background()

	user, err := repos.Users.Create(ctx, "ada@example.com", "secret")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	t.Run("duplicate email keeps one row", func(t *testing.T) {
		if _, err := repos.Users.Create(ctx, "ada@example.com", "other"); !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("err = %v, want ErrConflict", err)
		}
		if n := countRows(t, db, `SELECT COUNT(*) FROM "user" WHERE email = $1`, "ada@example.com"); n != 1 {
			t.Fatalf("rows = %d, want 1", n)
		}
	})

	t.Run("missing ids are not found", func(t *testing.T) {
		const missing = 999999
		checks := map[string]error{}
		_, checks["user"] = repos.Users.FindByID(ctx, missing)
		_, checks["panel"] = repos.Panels.FindByID(ctx, missing)
		_, checks["sensor type"] = repos.SensorTypes.FindByID(ctx, missing)
		_, checks["sensor"] = repos.Sensors.FindByID(ctx, missing)
		_, checks["measurement"] = repos.Measurements.FindByID(ctx, missing)
		checks["delete user"] = repos.Users.Delete(ctx, missing)
		checks["delete panel"] = repos.Panels.Delete(ctx, missing)
		checks["delete sensor"] = repos.Sensors.Delete(ctx, missing)
		for name, err := range checks {
			if !errors.Is(err, domain.ErrNotFound) {
				t.Errorf("%s: err = %v, want ErrNotFound", name, err)
			}
		}
	})

	panel, err := repos.Panels.Create(ctx, "roof", user.ID)
	if err != nil {
		t.Fatalf("create panel: %v", err)
	}
	if panel.CreatedAt.IsZero() || panel.User.ID != user.ID {
		t.Fatalf("panel = %+v", panel)
	}

	t.Run("panel with unknown owner is rejected and not kept", func(t *testing.T) {
		before := countRows(t, db, `SELECT COUNT(*) FROM solar_panel`)
		if _, err := repos.Panels.Create(ctx, "barn", 424242); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("err = %v, want ErrInvalidInput", err)
		}
		if after := countRows(t, db, `SELECT COUNT(*) FROM solar_panel`); after != before {
			t.Fatalf("solar_panel rows %d -> %d", before, after)
		}
	})

	t.Run("sensor with unknown references writes nothing", func(t *testing.T) {
		before := countRows(t, db, `SELECT COUNT(*) FROM sensor`)
		if _, err := repos.Sensors.Create(ctx, 424242, 1); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("unknown panel: err = %v", err)
		}
		if _, err := repos.Sensors.Create(ctx, panel.ID, 424242); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("unknown type: err = %v", err)
		}
		if after := countRows(t, db, `SELECT COUNT(*) FROM sensor`); after != before {
			t.Fatalf("sensor rows %d -> %d", before, after)
		}
	})

	sensor, err := repos.Sensors.Create(ctx, panel.ID, 1)
	if err != nil {
		t.Fatalf("create sensor: %v", err)
	}

	t.Run("range defaults to now, newest first", func(t *testing.T) {
		first, err := repos.Measurements.Create(ctx, []byte("21.5"), sensor.ID)
		if err != nil {
			t.Fatalf("create measurement: %v", err)
		}
		second, err := repos.Measurements.Create(ctx, []byte("23.5"), sensor.ID)
		if err != nil {
			t.Fatalf("create measurement: %v", err)
		}

		all, err := repos.Measurements.ListBySensor(ctx, sensor.ID, TimeRange{})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(all) != 2 || all[0].ID != second.ID || all[1].ID != first.ID {
			t.Fatalf("got %+v", all)
		}

		start := second.RecordedAt
		fromStart, err := repos.Measurements.ListBySensor(ctx, sensor.ID, TimeRange{Start: &start})
		if err != nil {
			t.Fatalf("list from start: %v", err)
		}
		if len(fromStart) == 0 || fromStart[0].ID != second.ID {
			t.Fatalf("got %+v", fromStart)
		}

		latest, err := repos.Measurements.Latest(ctx, sensor.ID)
		if err != nil || latest.ID != second.ID {
			t.Fatalf("latest = %+v, %v", latest, err)
		}
		if v, ok := latest.Value(); !ok || v != 23.5 {
			t.Fatalf("value = %v, %v", v, ok)
		}
	})

	t.Run("measurement unreadable once its panel is gone", func(t *testing.T) {
		m, err := repos.Measurements.Create(ctx, []byte("19"), sensor.ID)
		if err != nil {
			t.Fatalf("create measurement: %v", err)
		}
		if err := repos.Panels.Delete(ctx, panel.ID); err != nil {
			t.Fatalf("delete panel: %v", err)
		}
		if _, err := repos.Measurements.FindByID(ctx, m.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
		if _, err := repos.Sensors.List(ctx); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("list sensors err = %v, want ErrNotFound", err)
		}
	})
}
