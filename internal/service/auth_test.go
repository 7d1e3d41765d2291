package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/minjcho/auth-service/internal/models"
	"github.com/minjcho/auth-service/internal/repo"
	"github.com/minjcho/auth-service/internal/tokens"
)

type testEnv struct {
	svc   *AuthService
	store *repo.GormRepo
	now   time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.UserAuthority{}, &models.TokenBlacklist{}))

	env := &testEnv{
		store: &repo.GormRepo{DB: db},
		now:   time.Now().UTC(),
	}
	codec := &tokens.Codec{
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
		Now:           func() time.Time { return env.now },
	}
	env.svc = &AuthService{
		Repo:  env.store,
		Codec: codec,
		Now:   func() time.Time { return env.now },
	}
	return env
}

func (e *testEnv) signup(t *testing.T, username string) {
	t.Helper()
	_, err := e.svc.Signup(context.Background(), username, "longpass1", "nick")
	require.NoError(t, err)
}

func TestSignup_ReturnsProjectionWithUserAuthority(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	proj, err := env.svc.Signup(context.Background(), "alice", "longpass1", "A")
	require.NoError(t, err)

	assert.Equal(t, "alice", proj.Username)
	assert.Equal(t, "A", proj.Nickname)
	require.Len(t, proj.Authorities, 1)
	assert.Equal(t, "USER", proj.Authorities[0].AuthorityName)

	// The projection must never serialize credentials.
	raw, err := json.Marshal(proj)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")
	assert.NotContains(t, string(raw), "refreshToken")
	assert.NotContains(t, string(raw), "longpass1")
}

func TestSignup_Validation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		nickname string
		want     *Error
	}{
		{name: "empty username", username: "", password: "longpass1", nickname: "A", want: ErrMissingField},
		{name: "whitespace username", username: "   ", password: "longpass1", nickname: "A", want: ErrMissingField},
		{name: "empty password", username: "alice", password: "", nickname: "A", want: ErrMissingField},
		{name: "empty nickname", username: "alice", password: "longpass1", nickname: "", want: ErrMissingField},
		{name: "short password", username: "alice", password: "short", nickname: "A", want: ErrInvalidPassword},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			proj, err := env.svc.Signup(ctx, tt.username, tt.password, tt.nickname)
			assert.Nil(t, proj)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSignup_DuplicateUsername(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.signup(t, "alice")

	proj, err := env.svc.Signup(ctx, "alice", "longpass1", "B")
	assert.Nil(t, proj)
	assert.ErrorIs(t, err, ErrUsernameExists)

	var count int64
	require.NoError(t, env.store.DB.Model(&models.User{}).Where("username = ?", "alice").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCreateAdmin_AssignsBothGrants(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	proj, err := env.svc.CreateAdmin(context.Background(), "root", "longpass1", "Root")
	require.NoError(t, err)

	names := make([]string, 0, len(proj.Authorities))
	for _, a := range proj.Authorities {
		names = append(names, a.AuthorityName)
	}
	assert.ElementsMatch(t, []string{"USER", "ADMIN"}, names)
}

func TestLogin_IssuesDecodableTokenPair(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.signup(t, "alice")

	pair, err := env.svc.Login(ctx, "alice", "longpass1")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	accessClaims, err := env.svc.Codec.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, []string{"USER"}, accessClaims.Authorities)

	refreshClaims, err := env.svc.Codec.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, accessClaims.Subject, refreshClaims.Subject)
	assert.NotEmpty(t, refreshClaims.ID)

	user, err := env.store.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, user.RefreshToken)
	assert.Equal(t, pair.RefreshToken, *user.RefreshToken)
	require.NotNil(t, user.LastLogin)
}

func TestLogin_InvalidCredentialsAreIndistinguishable(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.signup(t, "alice")

	_, wrongPassword := env.svc.Login(ctx, "alice", "wrongpass1")
	_, unknownUser := env.svc.Login(ctx, "nobody", "longpass1")

	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownUser, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword, unknownUser)
}

func TestLogin_Validation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Login(ctx, "", "longpass1")
	assert.ErrorIs(t, err, ErrMissingField)
	_, err = env.svc.Login(ctx, "alice", "")
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestLogin_OverwritesPreviousRefreshToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.signup(t, "alice")

	first, err := env.svc.Login(ctx, "alice", "longpass1")
	require.NoError(t, err)
	second, err := env.svc.Login(ctx, "alice", "longpass1")
	require.NoError(t, err)

	// Only the latest refresh token survives the overwrite.
	_, err = env.svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	_, err = env.svc.Refresh(ctx, second.RefreshToken)
	require.NoError(t, err)
}

func TestRefresh_RotationIsSingleUse(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.signup(t, "alice")

	first, err := env.svc.Login(ctx, "alice", "longpass1")
	require.NoError(t, err)

	second, err := env.svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, second.RefreshToken)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// The rotated-out token is dead both by comparison and by ledger.
	_, err = env.svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	revoked, err := env.store.IsRevoked(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.True(t, revoked)

	third, err := env.svc.Refresh(ctx, second.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, second.RefreshToken, third.RefreshToken)
}

func TestRefresh_Errors(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Refresh(ctx, "")
	assert.ErrorIs(t, err, ErrNoRefreshToken)

	_, err = env.svc.Refresh(ctx, "not-a-valid-jwt")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRefresh_ExpiredToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.signup(t, "alice")

	pair, err := env.svc.Login(ctx, "alice", "longpass1")
	require.NoError(t, err)

	env.now = env.now.Add(env.svc.Codec.RefreshTTL + time.Minute)

	_, err = env.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshTokenExpired)
}

func TestLogout_RevokesAccessAndClearsRefresh(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.signup(t, "alice")

	pair, err := env.svc.Login(ctx, "alice", "longpass1")
	require.NoError(t, err)

	user, err := env.store.FindByUsername(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, env.svc.Logout(ctx, user, pair.AccessToken))

	revoked, err := env.store.IsRevoked(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.True(t, revoked)

	reloaded, err := env.store.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, reloaded.RefreshToken)

	// The session's refresh token dies at the comparison step.
	_, err = env.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestValidateRefresh_SubjectGone(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.signup(t, "alice")

	pair, err := env.svc.Login(ctx, "alice", "longpass1")
	require.NoError(t, err)

	require.NoError(t, env.store.DB.Where("username = ?", "alice").Delete(&models.User{}).Error)

	_, err = env.svc.ValidateRefresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}
