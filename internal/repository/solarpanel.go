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

type panelRow struct {
	ID        int64     `db:"id"`
	Location  string    `db:"location"`
	UserID    int64     `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r panelRow) withOwner(u domain.User) domain.SolarPanel {
	return domain.SolarPanel{
		ID:        r.ID,
		Location:  r.Location,
		User:      u,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// SolarPanelStore owns the solar_panel table and resolves owners through users.
type SolarPanelStore struct {
	store
	users UserFinder
}

func NewSolarPanelStore(db *sqlx.DB, users UserFinder, logger zerolog.Logger) *SolarPanelStore {
	return &SolarPanelStore{store: newStore(db, logger, "solar_panel_store"), users: users}
}

// FindByID returns ErrNotFound when the row is missing or its owner no longer
// resolves.
func (s *SolarPanelStore) FindByID(ctx context.Context, id int64) (domain.SolarPanel, error) {
	const op = "find solar panel"
	var row panelRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, location, user_id, created_at, updated_at FROM solar_panel WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.SolarPanel{}, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		}
		return domain.SolarPanel{}, s.fail(op, err)
	}

	owner, err := s.users.FindByID(ctx, row.UserID)
	if err != nil {
		return domain.SolarPanel{}, fmt.Errorf("%s %d: owner: %w", op, id, err)
	}
	return row.withOwner(owner), nil
}

// ListByUser pages through a user's panels. If the user cannot be resolved the
// whole list fails with ErrNotFound.
func (s *SolarPanelStore) ListByUser(ctx context.Context, userID int64, page domain.Page) ([]domain.SolarPanel, error) {
	const op = "list solar panels"
	page = domain.NewPage(page.Number, page.Limit)

	var rows []panelRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, location, user_id, created_at, updated_at FROM solar_panel
		 WHERE user_id = $1 ORDER BY id LIMIT $2 OFFSET $3`,
		userID, page.Limit, page.Offset())
	if err != nil {
		return nil, s.fail(op, err)
	}

	panels := make([]domain.SolarPanel, 0, len(rows))
	if len(rows) == 0 {
		return panels, nil
	}
	owner, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: owner: %w", op, err)
	}
	for _, r := range rows {
		panels = append(panels, r.withOwner(owner))
	}
	return panels, nil
}

func (s *SolarPanelStore) CountByUser(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM solar_panel WHERE user_id = $1`, userID); err != nil {
		return 0, s.fail("count solar panels", err)
	}
	return n, nil
}

// Create inserts without checking that userID exists. The row is reloaded so
// timestamps come from the database. An unknown owner surfaces either as a
// foreign key rejection or as a reload that cannot resolve the owner; both are
// ErrInvalidInput, and in the second case the orphaned row is removed again.
func (s *SolarPanelStore) Create(ctx context.Context, location string, userID int64) (domain.SolarPanel, error) {
	const op = "create solar panel"
	var id int64
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO solar_panel (location, user_id) VALUES ($1, $2) RETURNING id`,
		location, userID,
	).Scan(&id)
	if err != nil {
		return domain.SolarPanel{}, s.fail(op, err)
	}

	p, err := s.FindByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		if _, derr := s.db.ExecContext(ctx, `DELETE FROM solar_panel WHERE id = $1`, id); derr != nil {
			s.log.Error().Err(derr).Int64("solar_panel_id", id).Msg("orphaned solar panel not removed")
		}
		return domain.SolarPanel{}, fmt.Errorf("%s: user %d does not resolve: %w", op, userID, domain.ErrInvalidInput)
	}
	return p, err
}

// UpdateLocation changes only the location; updated_at is set by the query.
func (s *SolarPanelStore) UpdateLocation(ctx context.Context, id int64, location string) (domain.SolarPanel, error) {
	const op = "update solar panel"
	res, err := s.db.ExecContext(ctx,
		`UPDATE solar_panel SET location = $1, updated_at = NOW() WHERE id = $2`, location, id)
	if err != nil {
		return domain.SolarPanel{}, s.fail(op, err)
	}
	if err := s.exactlyOne(op, res); err != nil {
		return domain.SolarPanel{}, err
	}
	return s.FindByID(ctx, id)
}

func (s *SolarPanelStore) Delete(ctx context.Context, id int64) error {
	const op = "delete solar panel"
	res, err := s.db.ExecContext(ctx, `DELETE FROM solar_panel WHERE id = $1`, id)
	if err != nil {
		return s.fail(op, err)
	}
	return s.exactlyOne(op, res)
}
