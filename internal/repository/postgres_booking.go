package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mansoorceksport/mentorlink/internal/domain"
)

const bookingColumns = `id, requester_id, expertise_category_id, topic, to_char(preferred_date, 'YYYY-MM-DD'),
	preferred_time, notes, mentor_id, assigned_by, approval_status, created_at, updated_at`

// PostgresBookingRepository implements domain.BookingRepository
type PostgresBookingRepository struct {
	pgBase
}

func NewPostgresBookingRepository(pool *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{pgBase: newPGBase(pool)}
}

func (r *PostgresBookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	now := time.Now().UTC()
	if b.ID == "" {
		b.ID = domain.NewID()
	}
	b.CreatedAt = now
	b.UpdatedAt = now

	_, err := r.q(ctx).Exec(ctx, `
		INSERT INTO bookings (id, requester_id, expertise_category_id, topic, preferred_date, preferred_time,
			notes, mentor_id, assigned_by, approval_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8, $9, $10, $11, $12)`,
		b.ID, b.RequesterID, b.ExpertiseCategoryID, b.Topic, b.PreferredDate, b.PreferredTime,
		b.Notes, b.MentorID, b.AssignedBy, b.Status, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

func (r *PostgresBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	row := r.q(ctx).QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	b, err := scanBooking(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

func (r *PostgresBookingRepository) ListByRequester(ctx context.Context, requesterID string) ([]*domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE requester_id = $1
		ORDER BY preferred_date, preferred_time`, requesterID)
}

func (r *PostgresBookingRepository) ListByStatus(ctx context.Context, status domain.BookingStatus) ([]*domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE approval_status = $1
		ORDER BY created_at DESC`, status)
}

func (r *PostgresBookingRepository) ListByIDs(ctx context.Context, ids []string) ([]*domain.Booking, error) {
	if len(ids) == 0 {
		return []*domain.Booking{}, nil
	}
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ANY($1)`, ids)
}

func (r *PostgresBookingRepository) ListAll(ctx context.Context) ([]*domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at`)
}

// Transition is a compare-and-set on approval_status (and mentor_id when expected).
// The bookings_mentor_matches_status check backs the mentor field rules.
func (r *PostgresBookingRepository) Transition(ctx context.Context, t domain.BookingTransition) error {
	var (
		mentorExpr   = "mentor_id"
		assignerExpr = "assigned_by"
		args         = []any{t.To, t.At.UTC(), t.BookingID, t.From}
	)
	switch {
	case t.To == domain.BookingAssignedPendingMentor:
		args = append(args, t.SetMentorID, t.AssignedBy)
		mentorExpr = fmt.Sprintf("$%d", len(args)-1)
		assignerExpr = fmt.Sprintf("$%d", len(args))
	case !t.To.HoldsMentor():
		mentorExpr = "NULL"
		assignerExpr = "NULL"
	}

	query := fmt.Sprintf(`UPDATE bookings
		SET approval_status = $1, updated_at = $2, mentor_id = %s, assigned_by = %s
		WHERE id = $3 AND approval_status = $4`, mentorExpr, assignerExpr)
	if t.ExpectMentorID != "" {
		args = append(args, t.ExpectMentorID)
		query += fmt.Sprintf(" AND mentor_id = $%d", len(args))
	}

	tag, err := r.q(ctx).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("transition booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, t.BookingID); err != nil {
			return err
		}
		return domain.ErrConflict
	}
	return nil
}

func (r *PostgresBookingRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Booking, error) {
	rows, err := r.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(
		&b.ID,
		&b.RequesterID,
		&b.ExpertiseCategoryID,
		&b.Topic,
		&b.PreferredDate,
		&b.PreferredTime,
		&b.Notes,
		&b.MentorID,
		&b.AssignedBy,
		&b.Status,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
