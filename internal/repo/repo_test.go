package repo

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nvoronchev/platform-auth/internal/models"
)

func newTestRepo(t *testing.T) *GormRepo {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	return &GormRepo{DB: db}
}

func TestGormRepo_CreateAndFind(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()

	u := models.User{Username: "alice", PasswordHash: "hash", Scopes: "admin"}
	require.NoError(t, r.CreateUserIfNotExists(ctx, &u))
	require.NotEqual(t, uuid.Nil, u.ID)
	assert.Equal(t, models.StatusActive, u.Status)

	found, err := r.FindIdentity(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
	assert.Equal(t, "hash", found.PasswordHash)
	assert.Equal(t, "admin", found.Scopes)

	byID, err := r.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)
}

func TestGormRepo_CreateConflict(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.CreateUserIfNotExists(ctx, &models.User{Username: "bob", PasswordHash: "h1"}))

	err := r.CreateUserIfNotExists(ctx, &models.User{Username: "bob", PasswordHash: "h2"})
	assert.ErrorIs(t, err, ErrUserAlreadyExist)

	// Original hash untouched.
	found, err := r.FindIdentity(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "h1", found.PasswordHash)
}

func TestGormRepo_FindNotFound(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()

	_, err := r.FindIdentity(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.GetUserByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormRepo_UpdatePasswordHash(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()

	u := models.User{Username: "carol", PasswordHash: "old"}
	require.NoError(t, r.CreateUserIfNotExists(ctx, &u))

	require.NoError(t, r.UpdatePasswordHash(ctx, u.ID, "new"))

	found, err := r.FindIdentity(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, "new", found.PasswordHash)

	err = r.UpdatePasswordHash(ctx, uuid.New(), "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormRepo_SetStatus(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()

	u := models.User{Username: "dave", PasswordHash: "h"}
	require.NoError(t, r.CreateUserIfNotExists(ctx, &u))

	require.NoError(t, r.SetStatus(ctx, u.ID, models.StatusDisabled))

	found, err := r.FindIdentity(ctx, "dave")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDisabled, found.Status)
}

func TestGormRepo_DeleteUser(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()

	u := models.User{Username: "erin", PasswordHash: "h"}
	require.NoError(t, r.CreateUserIfNotExists(ctx, &u))

	require.NoError(t, r.DeleteUser(ctx, "erin"))

	_, err := r.FindIdentity(ctx, "erin")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, r.DeleteUser(ctx, "erin"), ErrNotFound)
}
