package service

import (
	"context"
	"strings"
	"time"

	"github.com/mansoorceksport/mentorlink/internal/authz"
	"github.com/mansoorceksport/mentorlink/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Directory is the superadmin user listing
type Directory struct {
	Users  []*domain.Principal `json:"users"`
	Counts map[domain.Role]int `json:"counts"`
}

// DirectoryService lets superadmins search principals and change roles
type DirectoryService struct {
	users     domain.PrincipalRepository
	tokens    *TokenService
	publisher domain.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewDirectoryService creates a new directory service
func NewDirectoryService(
	users domain.PrincipalRepository,
	tokens *TokenService,
	publisher domain.EventPublisher,
	logger *zap.Logger,
) *DirectoryService {
	if publisher == nil {
		publisher = NoopPublisher
	}
	return &DirectoryService{
		users:     users,
		tokens:    tokens,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// ListUsers searches principals by name or email and filters by role.
// Counts always cover the whole directory.
func (s *DirectoryService) ListUsers(ctx context.Context, actor *domain.Principal, search, role string) (*Directory, error) {
	if err := authz.Authorize(actor, authz.ViewAllUsers, authz.Resource{}); err != nil {
		return nil, err
	}

	filter := domain.PrincipalFilter{Search: strings.TrimSpace(search)}
	if role = strings.TrimSpace(role); role != "" {
		r, err := domain.ParseRole(role)
		if err != nil {
			return nil, err
		}
		filter.Role = r
	}

	dir := &Directory{}
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		users, err := s.users.List(gCtx, filter)
		if err != nil {
			return dependencyOr(err, "failed to list users")
		}
		dir.Users = users
		return nil
	})
	g.Go(func() error {
		counts, err := s.users.CountByRole(gCtx)
		if err != nil {
			return dependencyOr(err, "failed to count users")
		}
		dir.Counts = counts
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dir, nil
}

// ChangeRole moves a principal to another role and ends their sessions
func (s *DirectoryService) ChangeRole(ctx context.Context, actor *domain.Principal, userID, role string) (p *domain.Principal, err error) {
	ctx, span := tracer.Start(ctx, "DirectoryService.ChangeRole")
	defer func() { finish(span, err) }()

	if err := authz.Authorize(actor, authz.ChangeRole, authz.Resource{}); err != nil {
		return nil, err
	}
	to, err := domain.ParseRole(strings.TrimSpace(role))
	if err != nil {
		return nil, err
	}
	if userID == actor.ID {
		return nil, domain.FieldValidationError("user_id", "cannot change your own role")
	}

	p, err = s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, dependencyOr(err, "failed to load user")
	}
	if p.Role == to {
		return p, nil
	}

	from := p.Role
	if err := s.users.SetRole(ctx, p.ID, from, to); err != nil {
		return nil, dependencyOr(err, "failed to change role")
	}
	p.Role = to
	p.UpdatedAt = s.now()

	// Access tokens carry the old role for display; refresh tokens must go
	if err := s.tokens.RevokeAllUserTokens(ctx, p.ID); err != nil {
		s.logger.Error("failed to revoke sessions after role change", zap.String("user_id", p.ID), zap.Error(err))
	}

	s.logger.Info("role changed",
		zap.String("user_id", p.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor_id", actor.ID),
	)

	e := domain.NewEvent(domain.EventRoleChanged, actor.ID, p.UpdatedAt)
	e.RecipientIDs = []string{p.ID}
	e.Attributes = map[string]string{"from": string(from), "to": string(to)}
	announce(ctx, s.publisher, s.logger, e)

	return p, nil
}
