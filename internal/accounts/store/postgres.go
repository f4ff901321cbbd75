package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresUserStore is the production Postgres-backed implementation.
type PostgresUserStore struct {
	pool *pgxpool.Pool
}

// NewPostgresUserStore creates a store backed by Postgres.
func NewPostgresUserStore(pool *pgxpool.Pool) *PostgresUserStore {
	return &PostgresUserStore{pool: pool}
}

const userColumns = `id::text, username, email, first_name, last_name, phone, location, roles, created_at`

func (s *PostgresUserStore) Create(ctx context.Context, p CreateUserParams) (User, error) {
	q := `
INSERT INTO users (id, username, email, password_hash, first_name, last_name, phone, location, roles, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + userColumns
	var u User
	err := s.pool.QueryRow(ctx, q,
		uuid.New(), p.Username, p.Email, p.PasswordHash,
		p.FirstName, p.LastName, p.Phone, p.Location, p.Roles, time.Now().UTC(),
	).Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.Location, &u.Roles, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrConflict
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *PostgresUserStore) ByID(ctx context.Context, id string) (User, error) {
	return s.one(ctx, `SELECT `+userColumns+` FROM users WHERE id::text = $1`, id)
}

func (s *PostgresUserStore) ByUsername(ctx context.Context, username string) (User, error) {
	return s.one(ctx, `SELECT `+userColumns+` FROM users WHERE lower(username) = lower($1)`, username)
}

func (s *PostgresUserStore) one(ctx context.Context, q string, arg any) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx, q, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.Location, &u.Roles, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *PostgresUserStore) FindByLogin(ctx context.Context, login string) (UserRow, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return UserRow{}, ErrNotFound
	}
	q := `
SELECT ` + userColumns + `, password_hash
FROM users
WHERE lower(username) = lower($1) OR lower(email) = lower($1)
LIMIT 1`
	var row UserRow
	err := s.pool.QueryRow(ctx, q, login).Scan(
		&row.User.ID, &row.User.Username, &row.User.Email, &row.User.FirstName, &row.User.LastName,
		&row.User.Phone, &row.User.Location, &row.User.Roles, &row.User.CreatedAt, &row.PasswordHash,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRow{}, ErrNotFound
		}
		return UserRow{}, fmt.Errorf("find user by login: %w", err)
	}
	return row, nil
}

func (s *PostgresUserStore) List(ctx context.Context) ([]User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.Location, &u.Roles, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

func (s *PostgresUserStore) SetRoles(ctx context.Context, username string, roles []string) (User, error) {
	q := `
UPDATE users SET roles = $2
WHERE lower(username) = lower($1)
RETURNING ` + userColumns
	var u User
	err := s.pool.QueryRow(ctx, q, username, roles).Scan(
		&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.Location, &u.Roles, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("set roles: %w", err)
	}
	return u, nil
}

func (s *PostgresUserStore) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id::text = $1)`, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return ok, nil
}
