package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRatingStore is the production Postgres-backed implementation.
//
// The ratings table carries the integrity rules the engine relies on:
//
//	CHECK (score BETWEEN 1 AND 5)
//	CHECK ((product_id IS NULL) <> (service_id IS NULL))
//	UNIQUE (rater_id, product_id) WHERE product_id IS NOT NULL
//	UNIQUE (rater_id, service_id) WHERE service_id IS NOT NULL
type PostgresRatingStore struct {
	pool *pgxpool.Pool
}

// NewPostgresRatingStore creates a store backed by Postgres.
func NewPostgresRatingStore(pool *pgxpool.Pool) *PostgresRatingStore {
	return &PostgresRatingStore{pool: pool}
}

func (s *PostgresRatingStore) Create(ctx context.Context, p CreateParams) (Rating, error) {
	r := Rating{
		ID:        uuid.NewString(),
		RaterID:   p.RaterID,
		ProductID: p.ProductID,
		ServiceID: p.ServiceID,
		Score:     p.Score,
		Comment:   p.Comment,
		CreatedAt: time.Now().UTC(),
	}
	const q = `INSERT INTO ratings (id, rater_id, product_id, service_id, score, comment, created_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.pool.Exec(ctx, q, r.ID, r.RaterID, r.ProductID, r.ServiceID, r.Score, r.Comment, r.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Rating{}, ErrConflict
		}
		return Rating{}, fmt.Errorf("insert rating: %w", err)
	}
	return r, nil
}

func (s *PostgresRatingStore) GetByID(ctx context.Context, id string) (Rating, error) {
	const q = `SELECT id, rater_id, product_id, service_id, score, comment, created_at
	           FROM ratings WHERE id = $1`
	var r Rating
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&r.ID, &r.RaterID, &r.ProductID, &r.ServiceID, &r.Score, &r.Comment, &r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rating{}, ErrNotFound
		}
		return Rating{}, fmt.Errorf("get rating: %w", err)
	}
	return r, nil
}

func (s *PostgresRatingStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM ratings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete rating: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresRatingStore) ListByProduct(ctx context.Context, productID string, pg ListParams) ([]Rating, int64, error) {
	return s.list(ctx, `product_id = $1`, productID, pg)
}

func (s *PostgresRatingStore) ListByService(ctx context.Context, serviceID string, pg ListParams) ([]Rating, int64, error) {
	return s.list(ctx, `service_id = $1`, serviceID, pg)
}

func (s *PostgresRatingStore) ListByRater(ctx context.Context, raterID string, pg ListParams) ([]Rating, int64, error) {
	return s.list(ctx, `rater_id = $1`, raterID, pg)
}

func (s *PostgresRatingStore) list(ctx context.Context, where, arg string, pg ListParams) ([]Rating, int64, error) {
	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ratings WHERE `+where, arg).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ratings: %w", err)
	}

	q := `SELECT id, rater_id, product_id, service_id, score, comment, created_at
	      FROM ratings WHERE ` + where + `
	      ORDER BY created_at DESC, id DESC
	      LIMIT $2 OFFSET $3`
	rows, err := s.pool.Query(ctx, q, arg, pg.Size, pg.offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list ratings: %w", err)
	}
	defer rows.Close()

	out := make([]Rating, 0, pg.Size)
	for rows.Next() {
		var r Rating
		if err := rows.Scan(&r.ID, &r.RaterID, &r.ProductID, &r.ServiceID, &r.Score, &r.Comment, &r.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan rating: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list ratings: %w", err)
	}
	return out, total, nil
}

func (s *PostgresRatingStore) HasProductRating(ctx context.Context, raterID, productID string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM ratings WHERE rater_id = $1 AND product_id = $2)`, raterID, productID)
}

func (s *PostgresRatingStore) HasServiceRating(ctx context.Context, raterID, serviceID string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM ratings WHERE rater_id = $1 AND service_id = $2)`, raterID, serviceID)
}

func (s *PostgresRatingStore) exists(ctx context.Context, q string, args ...any) (bool, error) {
	var ok bool
	if err := s.pool.QueryRow(ctx, q, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("rating exists: %w", err)
	}
	return ok, nil
}

func (s *PostgresRatingStore) ProductStats(ctx context.Context, providerID string) (CategoryStats, error) {
	const q = `SELECT COALESCE(AVG(r.score), 0), COUNT(*)
	           FROM ratings r
	           JOIN products p ON p.id = r.product_id
	           WHERE p.owner_id = $1`
	return s.stats(ctx, q, providerID)
}

func (s *PostgresRatingStore) ServiceStats(ctx context.Context, providerID string) (CategoryStats, error) {
	const q = `SELECT COALESCE(AVG(r.score), 0), COUNT(*)
	           FROM ratings r
	           JOIN services sv ON sv.id = r.service_id
	           WHERE sv.owner_id = $1`
	return s.stats(ctx, q, providerID)
}

func (s *PostgresRatingStore) stats(ctx context.Context, q, providerID string) (CategoryStats, error) {
	var st CategoryStats
	if err := s.pool.QueryRow(ctx, q, providerID).Scan(&st.Average, &st.Count); err != nil {
		return CategoryStats{}, fmt.Errorf("rating stats: %w", err)
	}
	return st, nil
}
