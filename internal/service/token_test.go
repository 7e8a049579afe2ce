package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/SecondList/EcommerceAPI/internal/apperr"
	"github.com/SecondList/EcommerceAPI/internal/models"
	"github.com/SecondList/EcommerceAPI/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Product{}, &models.CartItem{},
		&models.Order{}, &models.OrderItem{},
		&models.Payment{}, &models.Shipment{}, &models.RefreshToken{},
	))
	return db
}

func newTokenService(db *gorm.DB) *TokenService {
	return &TokenService{
		Repo:       &repo.AuthRepo{DB: db},
		Secret:     []byte("test-jwt-secret"),
		Issuer:     "ecommerce-api",
		Audience:   "ecommerce-clients",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 30 * 24 * time.Hour,
	}
}

func TestTokenService_RegisterAndLogin(t *testing.T) {
	db := newTestDB(t)
	svc := newTokenService(db)
	ctx := context.Background()

	pair, err := svc.Register(ctx, "alice@example.com", "Password123")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.Len(t, pair.RefreshToken, 24)

	loginPair, err := svc.Login(ctx, "alice@example.com", "Password123")
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, loginPair.RefreshToken)
}

func TestTokenService_Register_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	svc := newTokenService(db)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "Password123")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice@example.com", "OtherPass1")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestTokenService_Login_WrongPassword(t *testing.T) {
	db := newTestDB(t)
	svc := newTokenService(db)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "Password123")
	require.NoError(t, err)

	var before int64
	require.NoError(t, db.Model(&models.RefreshToken{}).Count(&before).Error)

	pair, err := svc.Login(ctx, "alice@example.com", "WrongPass1")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	assert.Nil(t, pair)

	// A rejected login must not mint tokens.
	var after int64
	require.NoError(t, db.Model(&models.RefreshToken{}).Count(&after).Error)
	assert.Equal(t, before, after)
}

func TestTokenService_Login_UnknownEmail(t *testing.T) {
	db := newTestDB(t)
	svc := newTokenService(db)

	_, err := svc.Login(context.Background(), "nobody@example.com", "Password123")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestTokenService_Refresh_RotatesOnce(t *testing.T) {
	db := newTestDB(t)
	svc := newTokenService(db)
	ctx := context.Background()

	pair, err := svc.Register(ctx, "alice@example.com", "Password123")
	require.NoError(t, err)

	rotated, err := svc.Refresh(ctx, pair.AccessToken, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, rotated.AccessToken)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// The consumed token can never be exchanged again.
	_, err = svc.Refresh(ctx, pair.AccessToken, pair.RefreshToken)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)

	// The rotated pair still works.
	_, err = svc.Refresh(ctx, rotated.AccessToken, rotated.RefreshToken)
	require.NoError(t, err)
}

func TestTokenService_Refresh_AcceptsExpiredAccessToken(t *testing.T) {
	db := newTestDB(t)
	svc := newTokenService(db)
	svc.AccessTTL = -time.Minute
	ctx := context.Background()

	pair, err := svc.Register(ctx, "alice@example.com", "Password123")
	require.NoError(t, err)

	svc.AccessTTL = 15 * time.Minute
	rotated, err := svc.Refresh(ctx, pair.AccessToken, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, rotated.AccessToken)
}

func TestTokenService_Refresh_JTIMismatch(t *testing.T) {
	db := newTestDB(t)
	svc := newTokenService(db)
	ctx := context.Background()

	alice, err := svc.Register(ctx, "alice@example.com", "Password123")
	require.NoError(t, err)
	bob, err := svc.Register(ctx, "bob@example.com", "Password123")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, alice.AccessToken, bob.RefreshToken)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)
}

func TestTokenService_Refresh_RevokedToken(t *testing.T) {
	db := newTestDB(t)
	svc := newTokenService(db)
	ctx := context.Background()

	pair, err := svc.Register(ctx, "alice@example.com", "Password123")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, pair.RefreshToken))

	_, err = svc.Refresh(ctx, pair.AccessToken, pair.RefreshToken)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)
}

func TestTokenService_Refresh_ExpiredRefreshToken(t *testing.T) {
	db := newTestDB(t)
	svc := newTokenService(db)
	svc.RefreshTTL = -time.Hour
	ctx := context.Background()

	pair, err := svc.Register(ctx, "alice@example.com", "Password123")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, pair.AccessToken, pair.RefreshToken)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)
}

func TestTokenService_Refresh_Concurrent(t *testing.T) {
	db := newTestDB(t)
	svc := newTokenService(db)
	ctx := context.Background()

	pair, err := svc.Register(ctx, "alice@example.com", "Password123")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Refresh(ctx, pair.AccessToken, pair.RefreshToken)
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, apperr.ErrInvalidToken)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one concurrent refresh may win")
}
