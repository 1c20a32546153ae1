package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mansoorceksport/mentorlink/internal/domain"
)

const mentorColumns = `mp.id, mp.user_id, mp.bio, mp.years_experience, mp.company, mp.job_title, mp.linkedin_url,
	ARRAY(SELECT x.category_id FROM mentor_expertise x WHERE x.mentor_profile_id = mp.id ORDER BY x.category_id),
	mp.is_active, mp.rating_total, mp.rating_count, mp.total_sessions, mp.created_at, mp.updated_at`

// PostgresMentorRepository implements domain.MentorRepository.
// Expertise lives in the mentor_expertise join table.
type PostgresMentorRepository struct {
	pgBase
}

func NewPostgresMentorRepository(pool *pgxpool.Pool) *PostgresMentorRepository {
	return &PostgresMentorRepository{pgBase: newPGBase(pool)}
}

func (r *PostgresMentorRepository) Create(ctx context.Context, m *domain.MentorProfile) error {
	now := time.Now().UTC()
	if m.ID == "" {
		m.ID = domain.NewID()
	}
	if m.ExpertiseCategoryIDs == nil {
		m.ExpertiseCategoryIDs = []string{}
	}
	m.CreatedAt = now
	m.UpdatedAt = now

	return r.tx.WithinTx(ctx, func(ctx context.Context) error {
		_, err := r.q(ctx).Exec(ctx, `
			INSERT INTO mentor_profiles (id, user_id, bio, years_experience, company, job_title, linkedin_url,
				is_active, rating_total, rating_count, total_sessions, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			m.ID, m.UserID, m.Bio, m.YearsExperience, m.Company, m.JobTitle, m.LinkedInURL,
			m.IsActive, m.RatingTotal, m.RatingCount, m.TotalSessions, m.CreatedAt, m.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err, "") {
				return domain.ErrAccountExists
			}
			return fmt.Errorf("create mentor profile: %w", err)
		}
		return r.replaceExpertise(ctx, m.ID, m.ExpertiseCategoryIDs)
	})
}

func (r *PostgresMentorRepository) GetByUserID(ctx context.Context, userID string) (*domain.MentorProfile, error) {
	row := r.q(ctx).QueryRow(ctx, `SELECT `+mentorColumns+` FROM mentor_profiles mp WHERE mp.user_id = $1`, userID)
	var m domain.MentorProfile
	err := row.Scan(
		&m.ID, &m.UserID, &m.Bio, &m.YearsExperience, &m.Company, &m.JobTitle, &m.LinkedInURL,
		&m.ExpertiseCategoryIDs, &m.IsActive, &m.RatingTotal, &m.RatingCount, &m.TotalSessions,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get mentor profile: %w", err)
	}
	return &m, nil
}

func (r *PostgresMentorRepository) Update(ctx context.Context, m *domain.MentorProfile) error {
	m.UpdatedAt = time.Now().UTC()
	if m.ExpertiseCategoryIDs == nil {
		m.ExpertiseCategoryIDs = []string{}
	}

	return r.tx.WithinTx(ctx, func(ctx context.Context) error {
		var profileID string
		err := r.q(ctx).QueryRow(ctx, `
			UPDATE mentor_profiles
			SET bio = $1, years_experience = $2, company = $3, job_title = $4, linkedin_url = $5,
				is_active = $6, updated_at = $7
			WHERE user_id = $8
			RETURNING id`,
			m.Bio, m.YearsExperience, m.Company, m.JobTitle, m.LinkedInURL, m.IsActive, m.UpdatedAt, m.UserID,
		).Scan(&profileID)
		if err != nil {
			if err == pgx.ErrNoRows {
				return domain.ErrNotFound
			}
			return fmt.Errorf("update mentor profile: %w", err)
		}
		m.ID = profileID
		return r.replaceExpertise(ctx, profileID, m.ExpertiseCategoryIDs)
	})
}

// ListEligible answers every requested category with one join.
func (r *PostgresMentorRepository) ListEligible(ctx context.Context, categoryIDs []string) (map[string][]domain.EligibleMentor, error) {
	result := make(map[string][]domain.EligibleMentor, len(categoryIDs))
	if len(categoryIDs) == 0 {
		return result, nil
	}
	for _, id := range categoryIDs {
		result[id] = []domain.EligibleMentor{}
	}

	rows, err := r.q(ctx).Query(ctx, `
		SELECT me.category_id, u.id, mp.id, u.display_name, u.email, mp.job_title, mp.company,
			ARRAY(SELECT x.category_id FROM mentor_expertise x WHERE x.mentor_profile_id = mp.id ORDER BY x.category_id),
			mp.rating_total, mp.rating_count, mp.total_sessions
		FROM mentor_expertise me
		JOIN mentor_profiles mp ON mp.id = me.mentor_profile_id
		JOIN users u ON u.id = mp.user_id
		WHERE me.category_id = ANY($1)
			AND mp.is_active
			AND u.role = 'mentor'
			AND u.approval_status = 'approved'
		ORDER BY me.category_id, u.id`, categoryIDs)
	if err != nil {
		return nil, fmt.Errorf("list eligible mentors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			catID string
			em    domain.EligibleMentor
			total int
			count int
		)
		if err := rows.Scan(&catID, &em.MentorID, &em.ProfileID, &em.DisplayName, &em.Email, &em.JobTitle,
			&em.Company, &em.ExpertiseCategoryIDs, &total, &count, &em.TotalSessions); err != nil {
			return nil, fmt.Errorf("scan eligible mentor: %w", err)
		}
		if count > 0 {
			em.Rating = float64(total) / float64(count)
		}
		result[catID] = append(result[catID], em)
	}
	return result, rows.Err()
}

func (r *PostgresMentorRepository) IncrementSessions(ctx context.Context, userID string) error {
	return r.exec(ctx, "increment sessions",
		`UPDATE mentor_profiles SET total_sessions = total_sessions + 1, updated_at = $1 WHERE user_id = $2`,
		time.Now().UTC(), userID)
}

func (r *PostgresMentorRepository) AddRating(ctx context.Context, userID string, rating int) error {
	return r.exec(ctx, "add rating",
		`UPDATE mentor_profiles SET rating_total = rating_total + $1, rating_count = rating_count + 1, updated_at = $2
		WHERE user_id = $3`,
		rating, time.Now().UTC(), userID)
}

func (r *PostgresMentorRepository) SetRatingAggregate(ctx context.Context, userID string, agg domain.RatingAggregate) error {
	return r.exec(ctx, "set rating aggregate",
		`UPDATE mentor_profiles SET rating_total = $1, rating_count = $2, updated_at = $3 WHERE user_id = $4`,
		agg.Total, agg.Count, time.Now().UTC(), userID)
}

func (r *PostgresMentorRepository) replaceExpertise(ctx context.Context, profileID string, categoryIDs []string) error {
	if _, err := r.q(ctx).Exec(ctx, `DELETE FROM mentor_expertise WHERE mentor_profile_id = $1`, profileID); err != nil {
		return fmt.Errorf("clear expertise: %w", err)
	}
	if len(categoryIDs) == 0 {
		return nil
	}
	_, err := r.q(ctx).Exec(ctx, `
		INSERT INTO mentor_expertise (mentor_profile_id, category_id)
		SELECT $1, unnest($2::text[])
		ON CONFLICT DO NOTHING`, profileID, categoryIDs)
	if err != nil {
		return fmt.Errorf("insert expertise: %w", err)
	}
	return nil
}

func (r *PostgresMentorRepository) exec(ctx context.Context, op, query string, args ...any) error {
	tag, err := r.q(ctx).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
