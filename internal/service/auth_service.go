package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/mansoorceksport/mentorlink/internal/domain"
	"github.com/mansoorceksport/mentorlink/internal/validate"
	"go.uber.org/zap"
)

// FirebaseAuthClient defines the interface for Firebase Auth operations
// This allows mocking for tests
type FirebaseAuthClient interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// AuthService handles authentication and user registration
type AuthService struct {
	users      domain.PrincipalRepository
	mentors    domain.MentorRepository
	partners   domain.PartnerRepository
	categories domain.CategoryRepository
	tx         domain.Transactor
	authClient FirebaseAuthClient
	tokens     *TokenService
	logger     *zap.Logger
	now        func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(
	users domain.PrincipalRepository,
	mentors domain.MentorRepository,
	partners domain.PartnerRepository,
	categories domain.CategoryRepository,
	tx domain.Transactor,
	authClient FirebaseAuthClient,
	tokens *TokenService,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:      users,
		mentors:    mentors,
		partners:   partners,
		categories: categories,
		tx:         tx,
		authClient: authClient,
		tokens:     tokens,
		logger:     logger,
		now:        time.Now,
	}
}

// ClientInfo identifies the device a session is issued to
type ClientInfo struct {
	UserAgent string
	IPAddress string
}

// SignupRequest registers a new principal with a self-selected role
type SignupRequest struct {
	FirebaseToken string               `json:"firebase_token" validate:"required"`
	Role          string               `json:"role" validate:"required,oneof=mentee mentor partner"`
	DisplayName   string               `json:"display_name" validate:"omitempty,max=100"`
	Phone         string               `json:"phone" validate:"omitempty,max=32"`
	Gender        string               `json:"gender" validate:"omitempty,max=32"`
	Mentor        *MentorProfileInput  `json:"mentor_profile"`
	Partner       *PartnerProfileInput `json:"partner_profile"`
}

// AuthResult is returned by login and signup
type AuthResult struct {
	Principal *domain.Principal
	Tokens    *TokenPair
	IsNewUser bool
}

type firebaseIdentity struct {
	uid   string
	email string
	name  string
}

// verify checks the Firebase ID token and extracts the identity
func (s *AuthService) verify(ctx context.Context, idToken string) (*firebaseIdentity, error) {
	token, err := s.authClient.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid firebase token", domain.ErrUnauthenticated)
	}

	email, _ := token.Claims["email"].(string)
	if email == "" {
		return nil, fmt.Errorf("%w: token carries no email", domain.ErrUnauthenticated)
	}
	name, _ := token.Claims["name"].(string)
	if name == "" {
		name = email
	}

	return &firebaseIdentity{uid: token.UID, email: strings.ToLower(email), name: name}, nil
}

// LoginOrRegister signs in a known principal or registers an unknown one as a mentee
func (s *AuthService) LoginOrRegister(ctx context.Context, firebaseToken string, client ClientInfo) (*AuthResult, error) {
	id, err := s.verify(ctx, firebaseToken)
	if err != nil {
		return nil, err
	}

	p, err := s.findOrLink(ctx, id)
	switch {
	case err == nil:
		return s.login(ctx, p, client, false)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	// Unknown identity: default to the one role that needs no approval
	p = newPrincipal(id, domain.RoleMentee, s.now())
	if err := s.users.Create(ctx, p); err != nil {
		return nil, dependencyOr(err, "failed to create user")
	}
	s.logger.Info("principal registered", zap.String("user_id", p.ID), zap.String("role", string(p.Role)))

	return s.login(ctx, p, client, true)
}

// Signup registers a principal with the role they picked. Mentors and partners
// start pending approval and get their profile created in the same transaction.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest, client ClientInfo) (*AuthResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}
	if !role.SelfSelectable() {
		return nil, domain.FieldValidationError("role", "cannot be self selected")
	}
	if role == domain.RoleMentor && req.Mentor == nil {
		return nil, domain.FieldValidationError("mentor_profile", "is required for mentors")
	}
	if role == domain.RolePartner && req.Partner == nil {
		return nil, domain.FieldValidationError("partner_profile", "is required for partners")
	}

	id, err := s.verify(ctx, req.FirebaseToken)
	if err != nil {
		return nil, err
	}

	// An existing account just logs in, whatever role was asked for
	if existing, err := s.findOrLink(ctx, id); err == nil {
		return s.login(ctx, existing, client, false)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := s.now()
	p := newPrincipal(id, role, now)
	if name := strings.TrimSpace(req.DisplayName); name != "" {
		p.DisplayName = name
	}
	p.Phone = strings.TrimSpace(req.Phone)
	p.Gender = strings.TrimSpace(req.Gender)

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, p); err != nil {
			return err
		}
		switch role {
		case domain.RoleMentor:
			profile, err := buildMentorProfile(ctx, s.categories, p.ID, *req.Mentor, nil, now)
			if err != nil {
				return err
			}
			return s.mentors.Create(ctx, profile)
		case domain.RolePartner:
			profile, err := buildPartnerProfile(p.ID, *req.Partner, nil, now)
			if err != nil {
				return err
			}
			return s.partners.Create(ctx, profile)
		}
		return nil
	})
	if err != nil {
		return nil, dependencyOr(err, "signup failed")
	}

	s.logger.Info("principal signed up",
		zap.String("user_id", p.ID),
		zap.String("role", string(p.Role)),
		zap.String("approval_status", string(p.ApprovalStatus)),
	)

	return s.login(ctx, p, client, true)
}

// findOrLink resolves the principal by Firebase uid, falling back to an
// unlinked account with the same email (pre-provisioned by seed tools).
func (s *AuthService) findOrLink(ctx context.Context, id *firebaseIdentity) (*domain.Principal, error) {
	p, err := s.users.GetByFirebaseUID(ctx, id.uid)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, dependencyOr(err, "failed to fetch user")
	}

	p, err = s.users.GetByEmail(ctx, id.email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, dependencyOr(err, "failed to fetch user")
	}
	if p.FirebaseUID != "" {
		// Email exists but already linked to different firebase_uid
		return nil, domain.ErrAccountExists
	}

	if err := s.users.LinkFirebaseUID(ctx, p.ID, id.uid); err != nil {
		return nil, dependencyOr(err, "failed to link firebase account")
	}
	p.FirebaseUID = id.uid
	s.logger.Info("firebase account linked", zap.String("user_id", p.ID))
	return p, nil
}

func (s *AuthService) login(ctx context.Context, p *domain.Principal, client ClientInfo, isNew bool) (*AuthResult, error) {
	now := s.now()
	if err := s.users.RecordLogin(ctx, p.ID, now); err != nil {
		s.logger.Warn("failed to record login", zap.String("user_id", p.ID), zap.Error(err))
	} else {
		p.LastLoginAt = &now
	}

	pair, err := s.tokens.GenerateTokenPair(ctx, p, client.UserAgent, client.IPAddress)
	if err != nil {
		return nil, dependencyOr(err, "failed to issue session")
	}

	return &AuthResult{Principal: p, Tokens: pair, IsNewUser: isNew}, nil
}

func newPrincipal(id *firebaseIdentity, role domain.Role, now time.Time) *domain.Principal {
	return &domain.Principal{
		ID:             domain.NewID(),
		FirebaseUID:    id.uid,
		Email:          id.email,
		DisplayName:    id.name,
		Role:           role,
		ApprovalStatus: domain.InitialApproval(role),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
