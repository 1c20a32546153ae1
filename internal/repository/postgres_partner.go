package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mansoorceksport/mentorlink/internal/domain"
)

// PostgresPartnerRepository implements domain.PartnerRepository
type PostgresPartnerRepository struct {
	pgBase
}

func NewPostgresPartnerRepository(pool *pgxpool.Pool) *PostgresPartnerRepository {
	return &PostgresPartnerRepository{pgBase: newPGBase(pool)}
}

func (r *PostgresPartnerRepository) Create(ctx context.Context, p *domain.PartnerProfile) error {
	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = domain.NewID()
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.q(ctx).Exec(ctx, `
		INSERT INTO partner_profiles (id, user_id, organization_name, organization_type, website, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.UserID, p.OrganizationName, p.OrganizationType, p.Website, p.Description, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return domain.ErrAccountExists
		}
		return fmt.Errorf("create partner profile: %w", err)
	}
	return nil
}

func (r *PostgresPartnerRepository) GetByUserID(ctx context.Context, userID string) (*domain.PartnerProfile, error) {
	var p domain.PartnerProfile
	err := r.q(ctx).QueryRow(ctx, `
		SELECT id, user_id, organization_name, organization_type, website, description, created_at, updated_at
		FROM partner_profiles WHERE user_id = $1`, userID,
	).Scan(&p.ID, &p.UserID, &p.OrganizationName, &p.OrganizationType, &p.Website, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get partner profile: %w", err)
	}
	return &p, nil
}

func (r *PostgresPartnerRepository) Update(ctx context.Context, p *domain.PartnerProfile) error {
	p.UpdatedAt = time.Now().UTC()
	tag, err := r.q(ctx).Exec(ctx, `
		UPDATE partner_profiles
		SET organization_name = $1, organization_type = $2, website = $3, description = $4, updated_at = $5
		WHERE user_id = $6`,
		p.OrganizationName, p.OrganizationType, p.Website, p.Description, p.UpdatedAt, p.UserID,
	)
	if err != nil {
		return fmt.Errorf("update partner profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
