package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallgrid/aquabill/internal/authctx"
	"github.com/smallgrid/aquabill/internal/authorization"
	"github.com/smallgrid/aquabill/internal/clock"
	"github.com/smallgrid/aquabill/internal/identity/domain"
	"github.com/smallgrid/aquabill/internal/identity/password"
	"github.com/smallgrid/aquabill/internal/identity/token"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Issuer   *token.Issuer
	Throttle domain.LoginThrottle `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	issuer   *token.Issuer
	throttle domain.LoginThrottle
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("identity.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		issuer:   p.Issuer,
		throttle: p.Throttle,
	}
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (domain.TokenPair, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.TokenPair{}, domain.ErrInvalidCredentials
	}
	if req.Password == "" {
		return domain.TokenPair{}, domain.ErrInvalidCredentials
	}

	if s.throttle != nil {
		allowed, err := s.throttle.Allow(ctx, "login:"+email)
		if err != nil {
			s.log.Warn("login throttle unavailable", zap.Error(err))
		} else if !allowed {
			return domain.TokenPair{}, domain.ErrTooManyAttempts
		}
	}

	user, err := s.repo.FindUserByEmail(ctx, s.db, email)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if user == nil || !password.Verify(req.Password, user.PasswordHash) {
		return domain.TokenPair{}, domain.ErrInvalidCredentials
	}

	return s.issuePair(*user)
}

func (s *Service) Refresh(ctx context.Context, req domain.RefreshRequest) (domain.TokenPair, error) {
	claims, err := s.issuer.Verify(strings.TrimSpace(req.RefreshToken), token.TypeRefresh)
	if err != nil {
		return domain.TokenPair{}, domain.ErrInvalidToken
	}

	userID, err := snowflake.ParseString(claims.UserID)
	if err != nil || userID == 0 {
		return domain.TokenPair{}, domain.ErrInvalidToken
	}

	// Re-read the user so a role change invalidates stale claims.
	user, err := s.repo.FindUserByID(ctx, s.db, userID)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if user == nil {
		return domain.TokenPair{}, domain.ErrInvalidToken
	}

	access, err := s.issuer.IssueAccess(user.ID.String(), user.Email, user.RoleName())
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{AccessToken: access, TokenType: "Bearer"}, nil
}

func (s *Service) Me(ctx context.Context, caller authctx.Caller) (domain.User, error) {
	user, err := s.repo.FindUserByID(ctx, s.db, caller.UserID)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil {
		return domain.User{}, domain.ErrNotFound
	}
	return *user, nil
}

func (s *Service) CreateUser(ctx context.Context, req domain.CreateUserRequest) (domain.User, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, domain.ErrInvalidEmail
	}
	if len(req.Password) < 8 {
		return domain.User{}, domain.ErrInvalidPassword
	}

	var roleID *snowflake.ID
	var roleName string
	if strings.TrimSpace(req.RoleName) != "" {
		role, err := s.resolveRole(ctx, req.RoleName)
		if err != nil {
			return domain.User{}, err
		}
		roleID = &role.ID
		roleName = role.Name
	}

	existing, err := s.repo.FindUserByEmail(ctx, s.db, email)
	if err != nil {
		return domain.User{}, err
	}
	if existing != nil {
		return domain.User{}, domain.ErrEmailTaken
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return domain.User{}, err
	}

	now := s.clock.Now()
	user := domain.User{
		ID:           s.genID.Generate(),
		Email:        email,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		PasswordHash: hash,
		RoleID:       roleID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.InsertUser(ctx, s.db, &user); err != nil {
		return domain.User{}, err
	}

	s.log.Info("user created",
		zap.String("user_id", user.ID.String()),
		zap.String("role", roleName),
	)
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	items, err := s.repo.ListUsers(ctx, s.db)
	if err != nil {
		return nil, err
	}

	users := make([]domain.User, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		users = append(users, *item)
	}
	return users, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (domain.User, error) {
	userID, err := parseID(id)
	if err != nil {
		return domain.User{}, err
	}

	user, err := s.repo.FindUserByID(ctx, s.db, userID)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil {
		return domain.User{}, domain.ErrNotFound
	}
	return *user, nil
}

func (s *Service) AssignRole(ctx context.Context, req domain.AssignRoleRequest) (domain.User, error) {
	userID, err := parseID(req.UserID)
	if err != nil {
		return domain.User{}, err
	}

	role, err := s.resolveRole(ctx, req.RoleName)
	if err != nil {
		return domain.User{}, err
	}

	user, err := s.repo.FindUserByID(ctx, s.db, userID)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil {
		return domain.User{}, domain.ErrNotFound
	}

	if err := s.repo.UpdateUserRole(ctx, s.db, userID, &role.ID); err != nil {
		return domain.User{}, err
	}

	user.RoleID = &role.ID
	user.Role = role
	s.log.Info("role assigned",
		zap.String("user_id", user.ID.String()),
		zap.String("role", role.Name),
	)
	return *user, nil
}

func (s *Service) CreateRole(ctx context.Context, req domain.CreateRoleRequest) (domain.Role, error) {
	name, ok := authorization.CanonicalRole(req.Name)
	if !ok {
		return domain.Role{}, domain.ErrInvalidRole
	}

	existing, err := s.repo.FindRoleByName(ctx, s.db, name)
	if err != nil {
		return domain.Role{}, err
	}
	if existing != nil {
		return domain.Role{}, domain.ErrRoleTaken
	}

	now := s.clock.Now()
	role := domain.Role{
		ID:          s.genID.Generate(),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.InsertRole(ctx, s.db, &role); err != nil {
		return domain.Role{}, err
	}
	return role, nil
}

func (s *Service) ListRoles(ctx context.Context) ([]domain.Role, error) {
	items, err := s.repo.ListRoles(ctx, s.db)
	if err != nil {
		return nil, err
	}

	roles := make([]domain.Role, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		roles = append(roles, *item)
	}
	return roles, nil
}

func (s *Service) issuePair(user domain.User) (domain.TokenPair, error) {
	access, err := s.issuer.IssueAccess(user.ID.String(), user.Email, user.RoleName())
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.issuer.IssueRefresh(user.ID.String(), user.Email, user.RoleName())
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
	}, nil
}

func (s *Service) resolveRole(ctx context.Context, name string) (*domain.Role, error) {
	canonical, ok := authorization.CanonicalRole(name)
	if !ok {
		return nil, domain.ErrInvalidRole
	}

	role, err := s.repo.FindRoleByName(ctx, s.db, canonical)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, domain.ErrInvalidRole
	}
	return role, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
