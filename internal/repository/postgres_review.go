package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mansoorceksport/mentorlink/internal/domain"
)

// PostgresReviewRepository implements domain.ReviewRepository
type PostgresReviewRepository struct {
	pgBase
}

func NewPostgresReviewRepository(pool *pgxpool.Pool) *PostgresReviewRepository {
	return &PostgresReviewRepository{pgBase: newPGBase(pool)}
}

func (r *PostgresReviewRepository) Create(ctx context.Context, rv *domain.Review) error {
	if rv.ID == "" {
		rv.ID = domain.NewID()
	}
	rv.CreatedAt = time.Now().UTC()

	_, err := r.q(ctx).Exec(ctx, `
		INSERT INTO reviews (id, booking_id, mentor_id, mentee_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rv.ID, rv.BookingID, rv.MentorID, rv.MenteeID, rv.Rating, rv.Comment, rv.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "reviews_booking_mentee_key") {
			return domain.ErrAlreadyReviewed
		}
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

func (r *PostgresReviewRepository) ListByMentor(ctx context.Context, mentorID string) ([]*domain.Review, error) {
	return r.list(ctx, "mentor_id", mentorID)
}

func (r *PostgresReviewRepository) ListByMentee(ctx context.Context, menteeID string) ([]*domain.Review, error) {
	return r.list(ctx, "mentee_id", menteeID)
}

func (r *PostgresReviewRepository) AggregateByMentor(ctx context.Context) (map[string]domain.RatingAggregate, error) {
	rows, err := r.q(ctx).Query(ctx, `SELECT mentor_id, SUM(rating), COUNT(*) FROM reviews GROUP BY mentor_id`)
	if err != nil {
		return nil, fmt.Errorf("aggregate reviews: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.RatingAggregate)
	for rows.Next() {
		var (
			mentorID     string
			total, count int64
		)
		if err := rows.Scan(&mentorID, &total, &count); err != nil {
			return nil, fmt.Errorf("scan aggregate: %w", err)
		}
		out[mentorID] = domain.RatingAggregate{Total: int(total), Count: int(count)}
	}
	return out, rows.Err()
}

// list filters on a fixed column name, never on caller input
func (r *PostgresReviewRepository) list(ctx context.Context, column, value string) ([]*domain.Review, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT id, booking_id, mentor_id, mentee_id, rating, comment, created_at
		FROM reviews WHERE `+column+` = $1
		ORDER BY created_at DESC`, value)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]*domain.Review, 0)
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(&rv.ID, &rv.BookingID, &rv.MentorID, &rv.MenteeID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, &rv)
	}
	return reviews, rows.Err()
}
