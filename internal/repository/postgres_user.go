package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mansoorceksport/mentorlink/internal/domain"
)

const userColumns = `id, COALESCE(firebase_uid, ''), email, display_name, role, approval_status,
	phone, gender, COALESCE(telegram_chat_id, 0), photo_url, photo_key, created_at, updated_at, last_login_at`

// PostgresUserRepository implements domain.PrincipalRepository
type PostgresUserRepository struct {
	pgBase
}

func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pgBase: newPGBase(pool)}
}

func (r *PostgresUserRepository) Create(ctx context.Context, p *domain.Principal) error {
	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = domain.NewID()
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `
		INSERT INTO users (id, firebase_uid, email, display_name, role, approval_status, phone, gender, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.q(ctx).Exec(ctx, query,
		p.ID, nullIfEmpty(p.FirebaseUID), p.Email, p.DisplayName, p.Role, p.ApprovalStatus,
		p.Phone, p.Gender, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return domain.ErrAccountExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) getOne(ctx context.Context, where string, arg any) (*domain.Principal, error) {
	row := r.q(ctx).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	p, err := scanPrincipal(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return p, nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*domain.Principal, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *PostgresUserRepository) GetByFirebaseUID(ctx context.Context, uid string) (*domain.Principal, error) {
	return r.getOne(ctx, "firebase_uid = $1", uid)
}

func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	return r.getOne(ctx, "email = $1", email)
}

func (r *PostgresUserRepository) UpdateContact(ctx context.Context, id string, u domain.ContactUpdate) error {
	sets := []string{"updated_at = $1"}
	args := []any{time.Now().UTC()}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if u.DisplayName != nil {
		add("display_name", *u.DisplayName)
	}
	if u.Phone != nil {
		add("phone", *u.Phone)
	}
	if u.Gender != nil {
		add("gender", *u.Gender)
	}
	if u.TelegramChatID != nil {
		if *u.TelegramChatID == 0 {
			add("telegram_chat_id", nil)
		} else {
			add("telegram_chat_id", *u.TelegramChatID)
		}
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	return r.exec(ctx, "update contact", query, args...)
}

func (r *PostgresUserRepository) UpdatePhoto(ctx context.Context, id, url, key string) error {
	return r.exec(ctx, "update photo",
		`UPDATE users SET photo_url = $1, photo_key = $2, updated_at = $3 WHERE id = $4`,
		url, key, time.Now().UTC(), id)
}

func (r *PostgresUserRepository) LinkFirebaseUID(ctx context.Context, id, uid string) error {
	err := r.exec(ctx, "link firebase uid",
		`UPDATE users SET firebase_uid = $1, updated_at = $2 WHERE id = $3`,
		uid, time.Now().UTC(), id)
	if isUniqueViolation(err, "") {
		return domain.ErrAccountExists
	}
	return err
}

func (r *PostgresUserRepository) SetApproval(ctx context.Context, id string, from, to domain.ApprovalStatus) error {
	tag, err := r.q(ctx).Exec(ctx,
		`UPDATE users SET approval_status = $1, updated_at = $2 WHERE id = $3 AND approval_status = $4`,
		to, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("set approval: %w", err)
	}
	return r.casResult(ctx, id, tag.RowsAffected())
}

func (r *PostgresUserRepository) SetRole(ctx context.Context, id string, from, to domain.Role) error {
	tag, err := r.q(ctx).Exec(ctx,
		`UPDATE users SET role = $1, updated_at = $2 WHERE id = $3 AND role = $4`,
		to, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	return r.casResult(ctx, id, tag.RowsAffected())
}

func (r *PostgresUserRepository) ListPendingApprovals(ctx context.Context) ([]*domain.Principal, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE role IN ('mentor', 'partner') AND approval_status = 'pending'
		ORDER BY created_at DESC`
	return r.list(ctx, query)
}

func (r *PostgresUserRepository) List(ctx context.Context, f domain.PrincipalFilter) ([]*domain.Principal, error) {
	var (
		conds []string
		args  []any
	)
	if f.Role != "" {
		args = append(args, f.Role)
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+escapeLike(f.Search)+"%")
		conds = append(conds, fmt.Sprintf("(display_name ILIKE $%d OR email ILIKE $%d)", len(args), len(args)))
	}

	query := `SELECT ` + userColumns + ` FROM users`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	return r.list(ctx, query, args...)
}

func (r *PostgresUserRepository) CountByRole(ctx context.Context) (map[domain.Role]int, error) {
	rows, err := r.q(ctx).Query(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, fmt.Errorf("count users by role: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Role]int, len(domain.AllRoles))
	for _, role := range domain.AllRoles {
		counts[role] = 0
	}
	for rows.Next() {
		var (
			role  domain.Role
			count int
		)
		if err := rows.Scan(&role, &count); err != nil {
			return nil, fmt.Errorf("scan role count: %w", err)
		}
		counts[role] = count
	}
	return counts, rows.Err()
}

func (r *PostgresUserRepository) RecordLogin(ctx context.Context, id string, at time.Time) error {
	return r.exec(ctx, "record login", `UPDATE users SET last_login_at = $1 WHERE id = $2`, at.UTC(), id)
}

func (r *PostgresUserRepository) exec(ctx context.Context, op, query string, args ...any) error {
	tag, err := r.q(ctx).Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err, "") {
			return err
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresUserRepository) casResult(ctx context.Context, id string, affected int64) error {
	if affected > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return domain.ErrConflict
}

func (r *PostgresUserRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Principal, error) {
	rows, err := r.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]*domain.Principal, 0)
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, p)
	}
	return users, rows.Err()
}

func scanPrincipal(row pgx.Row) (*domain.Principal, error) {
	var p domain.Principal
	err := row.Scan(
		&p.ID,
		&p.FirebaseUID,
		&p.Email,
		&p.DisplayName,
		&p.Role,
		&p.ApprovalStatus,
		&p.Phone,
		&p.Gender,
		&p.TelegramChatID,
		&p.PhotoURL,
		&p.PhotoKey,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
