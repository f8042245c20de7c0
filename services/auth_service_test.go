package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/sharelink/models"
	"github.com/cppla/sharelink/utils"
)

func TestRegisterAndLogin(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, time.Hour)
	ctx := context.Background()

	sess, err := svc.Register(ctx, " Alice ", "Alice@Example.com ", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "Alice", sess.User.Name)
	assert.Equal(t, "alice@example.com", sess.User.Email)
	assert.NotEqual(t, "s3cret-pass", sess.User.PasswordHash)

	login, err := svc.Login(ctx, "alice@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, login.User.ID)

	claims, err := utils.ParseToken(login.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, claims.UserID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, time.Hour)
	ctx := context.Background()

	_, err := svc.Register(ctx, "A", "dup@example.com", "password1")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "B", "DUP@example.com", "password2")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, time.Hour)
	ctx := context.Background()

	_, err := svc.Register(ctx, "A", "a@example.com", "password1")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "a@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, time.Hour)
	ctx := context.Background()

	sess, err := svc.Register(ctx, "A", "a@example.com", "password1")
	require.NoError(t, err)

	user, claims, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, user.ID)
	assert.Equal(t, sess.User.ID, claims.UserID)

	_, _, err = svc.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestAuthenticateRejectsVanishedUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, time.Hour)

	token, err := utils.GenerateToken("no-such-user", time.Hour)
	require.NoError(t, err)

	_, _, err = svc.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestLogoutRevokesToken(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, time.Hour)
	ctx := context.Background()

	sess, err := svc.Register(ctx, "A", "a@example.com", "password1")
	require.NoError(t, err)

	_, claims, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	svc.Logout(claims, sess.Token)

	_, _, err = svc.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm translated", gorm.ErrDuplicatedKey, true},
		{"wrapped gorm", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), true},
		{"postgres unique", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, true},
		{"postgres fk", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}, false},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062}, true},
		{"mysql other", &mysql.MySQLError{Number: 1452}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err))
		})
	}
}

func TestUniqueEmailEnforcedByStore(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.User{Name: "A", Email: "x@example.com", PasswordHash: "h"}).Error)

	err := db.Create(&models.User{Name: "B", Email: "x@example.com", PasswordHash: "h"}).Error
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err))
}
