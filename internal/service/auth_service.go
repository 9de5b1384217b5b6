package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"yatube/internal/cache"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIssuer   = "yatube"
	tokenAudience = "yatube-web"
)

// SignupInput is the registration form.
type SignupInput struct {
	Username  string `form:"username" validate:"required,username"`
	Email     string `form:"email" validate:"required,email,max=254"`
	FirstName string `form:"first_name" validate:"max=150"`
	LastName  string `form:"last_name" validate:"max=150"`
	Password1 string `form:"password1" validate:"required,password"`
	Password2 string `form:"password2" validate:"required,eqfield=Password1"`
}

// LoginInput is the login form.
type LoginInput struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

type sessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AuthService registers users and issues, verifies and revokes session tokens.
type AuthService struct {
	users  repository.UserRepository
	cache  *cache.Cache
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthService(users repository.UserRepository, c *cache.Cache, secret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 14 * 24 * time.Hour
	}
	return &AuthService{users: users, cache: c, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL is the lifetime of an issued token.
func (s *AuthService) TTL() time.Duration {
	return s.ttl
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	res := validation.Check(in)
	fe := res.Errors
	if fe == nil {
		fe = validation.FieldErrors{}
	}
	if !fe.Has("email") && in.Email != "" {
		taken, err := s.users.ExistsByEmail(ctx, in.Email)
		if err != nil {
			return nil, err
		}
		if taken {
			fe.Add("email", "A user with that email already exists.")
		}
	}
	if len(fe) > 0 {
		return nil, formError(fe)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password1), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{
		Username:  in.Username,
		Email:     in.Email,
		Password:  string(hash),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, models.NewFormError(map[string][]string{
				"username": {"A user with that username already exists."},
			})
		}
		return nil, err
	}
	return user, nil
}

// Login checks credentials. Failures never reveal which part was wrong.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*models.User, error) {
	if res := validation.Check(in); !res.Valid() {
		return nil, formError(res.Errors)
	}
	invalid := models.NewFormError(map[string][]string{
		"__all__": {"Please enter a correct username and password. Note that both fields may be case-sensitive."},
	})

	user, err := s.users.GetCredentials(ctx, strings.TrimSpace(in.Username))
	if err != nil {
		if models.CodeOf(err) == models.CodeNotFound {
			return nil, invalid
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)) != nil {
		return nil, invalid
	}
	return user, nil
}

// IssueToken signs a session token for user.
func (s *AuthService) IssueToken(user *models.User) (string, *middleware.Session, error) {
	if len(s.secret) == 0 {
		return "", nil, errors.New("JWT secret not configured")
	}
	now := s.now()
	sess := &middleware.Session{
		UserID:    user.ID,
		Username:  user.Username,
		TokenID:   uuid.NewString(),
		ExpiresAt: now.Add(s.ttl),
	}
	claims := sessionClaims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        sess.TokenID,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, sess, nil
}

// VerifySession validates a token and rejects revoked ones.
func (s *AuthService) VerifySession(ctx context.Context, raw string) (*middleware.Session, error) {
	sess, err := s.parse(raw)
	if err != nil {
		return nil, models.NewUnauthorizedError(err.Error())
	}
	revoked, err := s.cache.Marked(ctx, cache.RevokedKey(sess.TokenID))
	if err != nil {
		// Redis outage: keep users logged in.
		middleware.Logger.WarnContext(ctx, "revocation check failed", "error", err.Error())
	}
	if revoked {
		return nil, models.NewUnauthorizedError("session revoked")
	}
	return sess, nil
}

// Logout revokes raw until its natural expiry. Invalid tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	sess, err := s.parse(raw)
	if err != nil {
		return nil
	}
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.cache.Mark(ctx, cache.RevokedKey(sess.TokenID), ttl)
}

func (s *AuthService) parse(raw string) (*middleware.Session, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return nil, errors.New("invalid session subject")
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return nil, errors.New("incomplete session token")
	}
	return &middleware.Session{
		UserID:    uint(id),
		Username:  claims.Username,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
