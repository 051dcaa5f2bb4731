package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

type RegisterInput struct {
	Username string
	Email    string
	Password string
	IsAdmin  bool
}

type tokenClaims struct {
	Username string `json:"usr"`
	Admin    bool   `json:"adm"`
	jwt.RegisteredClaims
}

// AuthService issues and verifies HS256 bearer tokens.
type AuthService struct {
	users      port.UserRepository
	denylist   port.TokenDenylist
	secret     []byte
	tokenTTL   time.Duration
	bcryptCost int
	now        func() time.Time
}

func NewAuthService(users port.UserRepository, denylist port.TokenDenylist, secret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		users:      users,
		denylist:   denylist,
		secret:     []byte(secret),
		tokenTTL:   tokenTTL,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return domain.User{}, domain.NewValidationError("Missing required fields")
	}

	if _, err := s.users.GetUserByUsername(ctx, in.Username); err == nil {
		return domain.User{}, domain.ErrUserAlreadyExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	return s.users.CreateUser(ctx, domain.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		IsAdmin:      in.IsAdmin,
		CreatedAt:    domain.Timestamp(s.now()),
	})
}

func (s *AuthService) Login(ctx context.Context, username, password string) (string, domain.User, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, domain.ErrUserNotFound) {
		return "", domain.User{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", domain.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", domain.User{}, domain.ErrInvalidCredentials
	}

	now := s.now()
	claims := tokenClaims{
		Username: user.Username,
		Admin:    user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", domain.User{}, fmt.Errorf("sign token: %w", err)
	}
	return token, user, nil
}

func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.Principal, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: bad subject", domain.ErrUnauthorized)
	}

	revoked, err := s.denylist.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return domain.Principal{}, fmt.Errorf("%w: token revoked", domain.ErrUnauthorized)
	}

	principal := domain.Principal{
		UserID:   userID,
		Username: claims.Username,
		IsAdmin:  claims.Admin,
		TokenID:  claims.ID,
	}
	if claims.ExpiresAt != nil {
		principal.Expires = claims.ExpiresAt.Time
	}
	return principal, nil
}

// Logout revokes the caller's token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, principal domain.Principal) error {
	return s.denylist.RevokeToken(ctx, principal.TokenID, principal.Expires.Sub(s.now()))
}

func (s *AuthService) CurrentUser(ctx context.Context, principal domain.Principal) (domain.User, error) {
	return s.users.GetUserByID(ctx, principal.UserID)
}
