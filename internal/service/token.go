package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/SecondList/EcommerceAPI/internal/apperr"
	"github.com/SecondList/EcommerceAPI/internal/hash"
	"github.com/SecondList/EcommerceAPI/internal/logging"
	"github.com/SecondList/EcommerceAPI/internal/metrics"
	"github.com/SecondList/EcommerceAPI/internal/models"
	"github.com/SecondList/EcommerceAPI/internal/repo"
	"github.com/SecondList/EcommerceAPI/internal/tokens"
)

// EventPublisher is the outbound port for domain events. Failures are logged
// and never fail the calling operation.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type TokenService struct {
	Repo       *repo.AuthRepo
	Producer   EventPublisher
	Metrics    *metrics.Metrics
	Secret     []byte
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

func (s *TokenService) Register(ctx context.Context, email, password string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", apperr.ErrValidation)
	}

	pwHash, salt, err := hash.HashPassword(password)
	if err != nil {
		l.Error("register failed", "error", err)
		return nil, fmt.Errorf("%w: hash password", apperr.ErrInternal)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: pwHash,
		PasswordSalt: salt,
		Role:         models.RoleBuyer,
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.publish(ctx, "user_events", fmt.Sprint(user.ID), map[string]any{
		"type":   "user_registered",
		"userID": user.ID,
		"email":  user.Email,
	})

	return s.IssueTokenPair(ctx, user)
}

func (s *TokenService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "email", email)

	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", apperr.ErrValidation)
	}

	user, err := s.Repo.FindUserByEmail(ctx, email)
	if err != nil {
		s.countLogin("not_found")
		return nil, err
	}

	if !hash.CheckPassword(password, user.PasswordHash, user.PasswordSalt) {
		l.Warn("login failed", "reason", "password mismatch")
		s.countLogin("rejected")
		return nil, fmt.Errorf("%w: password is incorrect", apperr.ErrInvalidCredentials)
	}

	pair, err := s.IssueTokenPair(ctx, user)
	if err != nil {
		s.countLogin("error")
		return nil, err
	}
	s.countLogin("ok")
	return pair, nil
}

// IssueTokenPair mints a signed access token and its bound refresh-token
// record. The refresh token outlives the access token and can be exchanged
// exactly once.
func (s *TokenService) IssueTokenPair(ctx context.Context, user *models.User) (*TokenPair, error) {
	now := time.Now()
	accessExp := now.Add(s.AccessTTL)
	refreshExp := now.Add(s.RefreshTTL)
	jti := tokens.NewJTI()

	claims := &tokens.AccessClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.Issuer,
			Audience:  jwt.ClaimStrings{s.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExp),
		},
	}
	accessToken, err := tokens.SignAccessToken(claims, s.Secret)
	if err != nil {
		return nil, fmt.Errorf("%w: sign access token", apperr.ErrInternal)
	}

	opaque, err := tokens.NewOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("%w: mint refresh token", apperr.ErrInternal)
	}

	record := &models.RefreshToken{
		UserID:    user.ID,
		Token:     opaque,
		JwtID:     jti,
		IssuedAt:  now,
		ExpiresAt: refreshExp,
	}
	if err := s.Repo.CreateRefreshToken(ctx, record); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     opaque,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh exchanges an access/refresh pair for a new one. The access token
// may be expired but its signature must verify; the stored refresh token must
// be unused, unrevoked, within expiry, and bound to the access token's jti.
// Every check failure collapses into the same generic invalid-token error.
func (s *TokenService) Refresh(ctx context.Context, accessToken, refreshValue string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	pair, err := s.refresh(ctx, accessToken, refreshValue)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidToken) {
			l.Warn("refresh rejected")
			s.countRefresh("rejected")
			// No detail about which check failed.
			return nil, apperr.ErrInvalidToken
		}
		s.countRefresh("error")
		return nil, err
	}
	s.countRefresh("ok")
	return pair, nil
}

func (s *TokenService) refresh(ctx context.Context, accessToken, refreshValue string) (*TokenPair, error) {
	claims, err := tokens.AccessClaimsAllowExpired(accessToken, s.Secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidToken, err)
	}

	stored, err := s.Repo.FindRefreshToken(ctx, refreshValue)
	if err != nil {
		return nil, err
	}

	if stored.IsUsed || stored.IsRevoked || time.Now().After(stored.ExpiresAt) {
		return nil, fmt.Errorf("%w: refresh token no longer valid", apperr.ErrInvalidToken)
	}
	if stored.JwtID != claims.ID {
		return nil, fmt.Errorf("%w: token pair mismatch", apperr.ErrInvalidToken)
	}

	user, err := s.Repo.FindUserByID(ctx, stored.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown user", apperr.ErrInvalidToken)
	}

	now := time.Now()
	accessExp := now.Add(s.AccessTTL)
	refreshExp := now.Add(s.RefreshTTL)
	jti := tokens.NewJTI()

	newClaims := &tokens.AccessClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.Issuer,
			Audience:  jwt.ClaimStrings{s.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExp),
		},
	}
	newAccess, err := tokens.SignAccessToken(newClaims, s.Secret)
	if err != nil {
		return nil, fmt.Errorf("%w: sign access token", apperr.ErrInternal)
	}

	opaque, err := tokens.NewOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("%w: mint refresh token", apperr.ErrInternal)
	}

	record := &models.RefreshToken{
		UserID:    user.ID,
		Token:     opaque,
		JwtID:     jti,
		IssuedAt:  now,
		ExpiresAt: refreshExp,
	}
	if err := s.Repo.RotateRefreshToken(ctx, stored.ID, record); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      newAccess,
		RefreshToken:     opaque,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *TokenService) Logout(ctx context.Context, refreshValue string) error {
	if refreshValue == "" {
		return fmt.Errorf("%w: refresh token is required", apperr.ErrValidation)
	}
	return s.Repo.RevokeRefreshToken(ctx, refreshValue)
}

func (s *TokenService) publish(ctx context.Context, topic, key string, event map[string]any) {
	if s.Producer == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(pubCtx, topic, key, event); err != nil {
		logging.FromContext(ctx).Error("event publish failed", "topic", topic, "error", err)
	}
}

func (s *TokenService) countLogin(outcome string) {
	if s.Metrics != nil {
		s.Metrics.Logins.WithLabelValues(outcome).Inc()
	}
}

func (s *TokenService) countRefresh(outcome string) {
	if s.Metrics != nil {
		s.Metrics.TokenRefreshes.WithLabelValues(outcome).Inc()
	}
}
