package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mansoorceksport/mentorlink/internal/domain"
)

// PostgresCategoryRepository implements domain.CategoryRepository
type PostgresCategoryRepository struct {
	pgBase
}

func NewPostgresCategoryRepository(pool *pgxpool.Pool) *PostgresCategoryRepository {
	return &PostgresCategoryRepository{pgBase: newPGBase(pool)}
}

func (r *PostgresCategoryRepository) Create(ctx context.Context, c *domain.ExpertiseCategory) error {
	if c.ID == "" {
		c.ID = domain.NewID()
	}
	c.CreatedAt = time.Now().UTC()

	_, err := r.q(ctx).Exec(ctx,
		`INSERT INTO expertise_categories (id, name, description, created_at) VALUES ($1, $2, $3, $4)`,
		c.ID, c.Name, c.Description, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "expertise_categories_name_key") {
			return domain.ErrDuplicateCategory
		}
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (r *PostgresCategoryRepository) GetByID(ctx context.Context, id string) (*domain.ExpertiseCategory, error) {
	var c domain.ExpertiseCategory
	err := r.q(ctx).QueryRow(ctx,
		`SELECT id, name, description, created_at FROM expertise_categories WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

func (r *PostgresCategoryRepository) List(ctx context.Context) ([]*domain.ExpertiseCategory, error) {
	rows, err := r.q(ctx).Query(ctx,
		`SELECT id, name, description, created_at FROM expertise_categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]*domain.ExpertiseCategory, 0)
	for rows.Next() {
		var c domain.ExpertiseCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, &c)
	}
	return categories, rows.Err()
}
