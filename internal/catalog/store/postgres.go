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

// PostgresCatalogStore is the production Postgres-backed implementation.
type PostgresCatalogStore struct {
	pool *pgxpool.Pool
}

// NewPostgresCatalogStore creates a store backed by Postgres.
func NewPostgresCatalogStore(pool *pgxpool.Pool) *PostgresCatalogStore {
	return &PostgresCatalogStore{pool: pool}
}

// ── Categories ─────────────────────────────────────────────────────────────

func (s *PostgresCatalogStore) CreateCategory(ctx context.Context, c Category) (Category, error) {
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UTC()
	const q = `INSERT INTO categories (id, name, description, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := s.pool.Exec(ctx, q, c.ID, c.Name, c.Description, c.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Category{}, ErrConflict
		}
		return Category{}, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}

func (s *PostgresCatalogStore) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, description, created_at FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresCatalogStore) CategoryExists(ctx context.Context, id string) (bool, error) {
	var ok bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("category exists: %w", err)
	}
	return ok, nil
}

// ── Products ───────────────────────────────────────────────────────────────

func (s *PostgresCatalogStore) CreateProduct(ctx context.Context, p Product) (Product, error) {
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now().UTC()
	const q = `
INSERT INTO products (id, name, description, price, stock, image_url, category_id, owner_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.pool.Exec(ctx, q, p.ID, p.Name, p.Description, p.Price, p.Stock,
		p.ImageURL, nullable(p.CategoryID), p.OwnerID, p.CreatedAt)
	if err != nil {
		return Product{}, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

func (s *PostgresCatalogStore) ProductByID(ctx context.Context, id string) (Product, error) {
	const q = `
SELECT id, name, description, price, stock, image_url, COALESCE(category_id::text, ''), owner_id, created_at
FROM products WHERE id = $1`
	var p Product
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.ImageURL, &p.CategoryID, &p.OwnerID, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (s *PostgresCatalogStore) ListProducts(ctx context.Context, pg ListParams) ([]Product, int64, error) {
	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	const q = `
SELECT id, name, description, price, stock, image_url, COALESCE(category_id::text, ''), owner_id, created_at
FROM products ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`
	rows, err := s.pool.Query(ctx, q, pg.Size, pg.offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := make([]Product, 0, pg.Size)
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.ImageURL, &p.CategoryID, &p.OwnerID, &p.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (s *PostgresCatalogStore) DeleteProduct(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ── Services ───────────────────────────────────────────────────────────────

func (s *PostgresCatalogStore) CreateService(ctx context.Context, sv Service) (Service, error) {
	sv.ID = uuid.NewString()
	sv.CreatedAt = time.Now().UTC()
	const q = `
INSERT INTO services (id, name, description, estimated_price, image_url, category_id, owner_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.pool.Exec(ctx, q, sv.ID, sv.Name, sv.Description, sv.EstimatedPrice,
		sv.ImageURL, nullable(sv.CategoryID), sv.OwnerID, sv.CreatedAt)
	if err != nil {
		return Service{}, fmt.Errorf("insert service: %w", err)
	}
	return sv, nil
}

func (s *PostgresCatalogStore) ServiceByID(ctx context.Context, id string) (Service, error) {
	const q = `
SELECT id, name, description, estimated_price, image_url, COALESCE(category_id::text, ''), owner_id, created_at
FROM services WHERE id = $1`
	var sv Service
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&sv.ID, &sv.Name, &sv.Description, &sv.EstimatedPrice, &sv.ImageURL, &sv.CategoryID, &sv.OwnerID, &sv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Service{}, ErrNotFound
		}
		return Service{}, fmt.Errorf("get service: %w", err)
	}
	return sv, nil
}

func (s *PostgresCatalogStore) ListServices(ctx context.Context, pg ListParams) ([]Service, int64, error) {
	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM services`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count services: %w", err)
	}

	const q = `
SELECT id, name, description, estimated_price, image_url, COALESCE(category_id::text, ''), owner_id, created_at
FROM services ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`
	rows, err := s.pool.Query(ctx, q, pg.Size, pg.offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	out := make([]Service, 0, pg.Size)
	for rows.Next() {
		var sv Service
		if err := rows.Scan(&sv.ID, &sv.Name, &sv.Description, &sv.EstimatedPrice, &sv.ImageURL, &sv.CategoryID, &sv.OwnerID, &sv.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan service: %w", err)
		}
		out = append(out, sv)
	}
	return out, total, rows.Err()
}

func (s *PostgresCatalogStore) DeleteService(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
