package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dom/kaf-catalog/internal/domain"
	"github.com/dom/kaf-catalog/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// SessionAuthority issues and verifies session tokens.
type SessionAuthority interface {
	Issue(user *domain.User) (string, error)
	Verify(token string) (domain.Identity, error)
}

// AdminCredentials is the account bootstrap creates in an empty directory.
type AdminCredentials struct {
	Email    string
	Password string
	Name     string
}

type AuthService struct {
	userRepo   repository.UserRepository
	sessions   SessionAuthority
	admin      AdminCredentials
	bcryptCost int
	logger     *zap.Logger

	dummyOnce sync.Once
	dummyHash []byte
}

func NewAuthService(userRepo repository.UserRepository, sessions SessionAuthority, admin AdminCredentials, logger *zap.Logger) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		sessions:   sessions,
		admin:      admin,
		bcryptCost: bcrypt.DefaultCost,
		logger:     logger,
	}
}

// WithBcryptCost lowers the hashing cost. Only meant for tests.
func (s *AuthService) WithBcryptCost(cost int) *AuthService {
	s.bcryptCost = cost
	return s
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResult struct {
	User  *domain.User
	Token string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	input.Email = strings.TrimSpace(input.Email)
	if input.Email == "" || input.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrValidation)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Email:        input.Email,
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: string(hashedPassword),
		Role:         domain.RoleUser,
		CreatedAt:    time.Now().UTC(),
	}

	// Issue first so a server without a signing secret stores nothing.
	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("[auth.Register] account created", zap.String("user_id", user.ID.String()))

	return result, nil
}

// Login checks the credentials. An unknown email and a wrong password give
// the same error and cost roughly the same time.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	user, err := s.Authenticate(ctx, input.Email, input.Password)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

// Bootstrap creates the well-known admin account when there are no
// accounts at all. It reports whether an account was created.
func (s *AuthService) Bootstrap(ctx context.Context) (bool, error) {
	if s.admin.Email == "" || s.admin.Password == "" {
		return false, fmt.Errorf("%w: bootstrap admin credentials are empty", domain.ErrValidation)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(s.admin.Password), s.bcryptCost)
	if err != nil {
		return false, err
	}

	admin := &domain.User{
		ID:           uuid.New(),
		Email:        s.admin.Email,
		Name:         s.admin.Name,
		PasswordHash: string(hashedPassword),
		Role:         domain.RoleAdmin,
		CreatedAt:    time.Now().UTC(),
	}

	created, err := s.userRepo.CreateIfEmpty(ctx, admin)
	if err != nil {
		return false, err
	}
	if created {
		s.logger.Warn("[auth.Bootstrap] created default admin account, change its password",
			zap.String("email", admin.Email))
	}
	return created, nil
}

func (s *AuthService) ValidateToken(token string) (domain.Identity, error) {
	return s.sessions.Verify(token)
}

func (s *AuthService) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, err := s.sessions.Issue(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}

func (s *AuthService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.bcryptCost)
	})
	return s.dummyHash
}
