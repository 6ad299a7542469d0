package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/arkanova/solar-monitor/internal/domain"
)

// UserStore owns the "user" table.
type UserStore struct {
	store
}

func NewUserStore(db *sqlx.DB, logger zerolog.Logger) *UserStore {
	return &UserStore{store: newStore(db, logger, "user_store")}
}

func (s *UserStore) FindByID(ctx context.Context, id int64) (domain.User, error) {
	return s.findOne(ctx, "find user by id", `SELECT id, email, password FROM "user" WHERE id = $1`, id)
}

// FindByEmail matches the email exactly.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.findOne(ctx, "find user by email", `SELECT id, email, password FROM "user" WHERE email = $1`, email)
}

func (s *UserStore) findOne(ctx context.Context, op, query string, arg any) (domain.User, error) {
	var u domain.User
	if err := s.db.GetContext(ctx, &u, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		}
		return domain.User{}, s.fail(op, err)
	}
	return u, nil
}

// Create registers a user. The email pre-check is not atomic with the insert;
// a concurrent duplicate is caught by the unique constraint and also reported
// as ErrConflict.
func (s *UserStore) Create(ctx context.Context, email, password string) (domain.User, error) {
	const op = "create user"
	if email == "" || password == "" {
		return domain.User{}, fmt.Errorf("%s: email and password required: %w", op, domain.ErrInvalidInput)
	}

	_, err := s.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return domain.User{}, fmt.Errorf("%s: %w", op, domain.ErrConflict)
	case !errors.Is(err, domain.ErrNotFound):
		return domain.User{}, err
	}

	var u domain.User
	err = s.db.QueryRowxContext(ctx,
		`INSERT INTO "user" (email, password) VALUES ($1, $2) RETURNING id, email, password`,
		email, password,
	).StructScan(&u)
	if err != nil {
		return domain.User{}, s.fail(op, err)
	}
	return u, nil
}

// Update writes only the fields present in upd and returns the stored row.
func (s *UserStore) Update(ctx context.Context, id int64, upd domain.UserUpdate) (domain.User, error) {
	const op = "update user"
	if upd.Empty() {
		return domain.User{}, fmt.Errorf("%s: email or password required: %w", op, domain.ErrInvalidInput)
	}

	var (
		sets []string
		args []any
	)
	if upd.Email != nil {
		args = append(args, *upd.Email)
		sets = append(sets, fmt.Sprintf("email = $%d", len(args)))
	}
	if upd.Password != nil {
		args = append(args, *upd.Password)
		sets = append(sets, fmt.Sprintf("password = $%d", len(args)))
	}
	args = append(args, id)
	query := `UPDATE "user" SET ` + strings.Join(sets, ", ") +
		fmt.Sprintf(`, updated_at = NOW() WHERE id = $%d RETURNING id, email, password`, len(args))

	var u domain.User
	if err := s.db.QueryRowxContext(ctx, query, args...).StructScan(&u); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		}
		return domain.User{}, s.fail(op, err)
	}
	return u, nil
}

// Delete does not cascade. Panels owned by the user become unreadable.
func (s *UserStore) Delete(ctx context.Context, id int64) error {
	const op = "delete user"
	res, err := s.db.ExecContext(ctx, `DELETE FROM "user" WHERE id = $1`, id)
	if err != nil {
		return s.fail(op, err)
	}
	return s.exactlyOne(op, res)
}

func (s *UserStore) List(ctx context.Context, page domain.Page) ([]domain.User, error) {
	page = domain.NewPage(page.Number, page.Limit)
	users := []domain.User{}
	err := s.db.SelectContext(ctx, &users,
		`SELECT id, email, password FROM "user" ORDER BY id LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset())
	if err != nil {
		return nil, s.fail("list users", err)
	}
	return users, nil
}

func (s *UserStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM "user"`); err != nil {
		return 0, s.fail("count users", err)
	}
	return n, nil
}

// VerifyCredentials compares the stored password with the supplied plaintext.
// Passwords are not hashed. An unknown email and a wrong password both return
// ErrNotFound.
func (s *UserStore) VerifyCredentials(ctx context.Context, email, password string) (domain.User, error) {
	u, err := s.FindByEmail(ctx, email)
	if err != nil {
		return domain.User{}, err
	}
	if u.ID == 0 || u.Password != password {
		return domain.User{}, fmt.Errorf("verify credentials: %w", domain.ErrNotFound)
	}
	return u, nil
}
