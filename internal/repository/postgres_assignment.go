package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mansoorceksport/mentorlink/internal/domain"
)

const assignmentColumns = `id, booking_id, mentor_id, assigned_by, mentor_response, assigned_at, responded_at`

// PostgresAssignmentRepository implements domain.AssignmentRepository
type PostgresAssignmentRepository struct {
	pgBase
}

func NewPostgresAssignmentRepository(pool *pgxpool.Pool) *PostgresAssignmentRepository {
	return &PostgresAssignmentRepository{pgBase: newPGBase(pool)}
}

func (r *PostgresAssignmentRepository) Create(ctx context.Context, a *domain.Assignment) error {
	if a.ID == "" {
		a.ID = domain.NewID()
	}
	if a.MentorResponse == "" {
		a.MentorResponse = domain.ResponsePending
	}

	_, err := r.q(ctx).Exec(ctx, `
		INSERT INTO assignments (id, booking_id, mentor_id, assigned_by, mentor_response, assigned_at, responded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.BookingID, a.MentorID, a.AssignedBy, a.MentorResponse, a.AssignedAt, a.RespondedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "one_pending_per_booking") {
			return domain.ErrAssignmentInFlight
		}
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

func (r *PostgresAssignmentRepository) GetByID(ctx context.Context, id string) (*domain.Assignment, error) {
	row := r.q(ctx).QueryRow(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id = $1`, id)
	a, err := scanAssignment(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

func (r *PostgresAssignmentRepository) ListPendingByMentor(ctx context.Context, mentorID string) ([]*domain.Assignment, error) {
	return r.list(ctx, `SELECT `+assignmentColumns+` FROM assignments
		WHERE mentor_id = $1 AND mentor_response = 'pending'
		ORDER BY assigned_at DESC`, mentorID)
}

func (r *PostgresAssignmentRepository) ListByBooking(ctx context.Context, bookingID string) ([]*domain.Assignment, error) {
	return r.list(ctx, `SELECT `+assignmentColumns+` FROM assignments
		WHERE booking_id = $1
		ORDER BY assigned_at`, bookingID)
}

func (r *PostgresAssignmentRepository) Respond(ctx context.Context, id, mentorID string, response domain.AssignmentResponse, at time.Time) error {
	tag, err := r.q(ctx).Exec(ctx, `
		UPDATE assignments SET mentor_response = $1, responded_at = $2
		WHERE id = $3 AND mentor_id = $4 AND mentor_response = 'pending'`,
		response, at.UTC(), id, mentorID)
	if err != nil {
		return fmt.Errorf("respond to assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !current.IsPending() {
			return domain.ErrAlreadyResponded
		}
		return domain.ErrConflict
	}
	return nil
}

func (r *PostgresAssignmentRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Assignment, error) {
	rows, err := r.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	assignments := make([]*domain.Assignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

func scanAssignment(row pgx.Row) (*domain.Assignment, error) {
	var a domain.Assignment
	if err := row.Scan(&a.ID, &a.BookingID, &a.MentorID, &a.AssignedBy, &a.MentorResponse, &a.AssignedAt, &a.RespondedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
