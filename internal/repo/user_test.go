package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/SecondList/EcommerceAPI/internal/apperr"
	"github.com/SecondList/EcommerceAPI/internal/models"
)

func TestCreateUser_ExistingEmail(t *testing.T) {
	db := newTestDB(t)
	r := &AuthRepo{DB: db}
	ctx := context.Background()

	first := models.User{Email: "alice@example.com", PasswordHash: []byte{1}, PasswordSalt: []byte{2}, Role: models.RoleBuyer}
	require.NoError(t, r.CreateUser(ctx, &first))

	second := models.User{Email: "alice@example.com", PasswordHash: []byte{3}, PasswordSalt: []byte{4}, Role: models.RoleBuyer}
	err := r.CreateUser(ctx, &second)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestCreateUser_InsertRaceMapsToConflict(t *testing.T) {
	db := newTestDB(t)
	r := &AuthRepo{DB: db}

	// Slip a competing registration in between the lookup and the insert,
	// the moment the lookup has already come up empty.
	var raced bool
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("race_duplicate_email", func(tx *gorm.DB) {
		if raced || tx.Statement.Table != "users" {
			return
		}
		raced = true
		require.NoError(t, db.Exec(
			"INSERT INTO users (email, password_hash, password_salt, role) VALUES (?, ?, ?, ?)",
			"alice@example.com", []byte{9}, []byte{9}, models.RoleBuyer).Error)
	}))

	loser := models.User{Email: "alice@example.com", PasswordHash: []byte{1}, PasswordSalt: []byte{2}, Role: models.RoleBuyer}
	err := r.CreateUser(context.Background(), &loser)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Where("email = ?", "alice@example.com").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
