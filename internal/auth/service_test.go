package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/fractal-gallery/internal/domain"
	"github.com/xela07ax/fractal-gallery/internal/repository/memory"
	"github.com/xela07ax/fractal-gallery/internal/token"
)

const (
	testTokenKey   = "unit-access-secret"
	testRefreshKey = "unit-refresh-secret"
)

func testConfig() Config {
	return Config{
		TokenKey:   testTokenKey,
		RefreshKey: testRefreshKey,
		TokenTTL:   "1h",
		RefreshTTL: "7d",
		BcryptCost: 4, // минимальная стоимость, чтобы тесты не тормозили
	}
}

func newTestService(t *testing.T) (*Service, *memory.UserRepo, *token.Codec) {
	t.Helper()
	repo := memory.NewUserRepo()
	codec := token.NewCodec()
	return NewService(repo, codec, testConfig()), repo, codec
}

func registered(t *testing.T, svc *Service, login, password string) *domain.User {
	t.Helper()
	user, err := svc.Register(context.Background(), domain.CreateUserDTO{
		Login:    login,
		Password: password,
	})
	require.NoError(t, err)
	return user
}

func TestBootstrapAnonymous(t *testing.T) {
	svc, repo, codec := newTestService(t)

	user, pair, err := svc.BootstrapAnonymous(context.Background())
	require.NoError(t, err)

	assert.Regexp(t, `^User_[0-9a-f]{8}$`, user.Name)
	assert.Nil(t, user.Login)
	assert.False(t, user.HasPassword())

	// запись реально в хранилище
	_, err = repo.ByID(context.Background(), user.ID)
	require.NoError(t, err)

	// access несёт только id, без login
	payload, err := codec.Verify(pair.AccessToken, testTokenKey)
	require.NoError(t, err)
	assert.Equal(t, user.ID, payload.ID)
	assert.Empty(t, payload.Login)
}

func TestLogin(t *testing.T) {
	svc, _, codec := newTestService(t)
	user := registered(t, svc, "alice", "Abcdef1!")

	got, pair, err := svc.Login(context.Background(), domain.Credentials{
		Login:    "alice",
		Password: "Abcdef1!",
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	payload, err := codec.Verify(pair.AccessToken, testTokenKey)
	require.NoError(t, err)
	assert.Equal(t, user.ID, payload.ID)
	assert.Equal(t, "alice", payload.Login)
	assert.InDelta(t, time.Now().Unix()+3600, payload.Exp, 2)

	refreshPayload, err := codec.Verify(pair.RefreshToken, testRefreshKey)
	require.NoError(t, err)
	assert.InDelta(t, time.Now().Unix()+604800, refreshPayload.Exp, 2)
}

func TestLogin_Unauthorized(t *testing.T) {
	svc, _, _ := newTestService(t)
	registered(t, svc, "alice", "Abcdef1!")

	cases := []domain.Credentials{
		{},
		{Login: "alice"},
		{Password: "Abcdef1!"},
		{Login: "nobody", Password: "Abcdef1!"},
		{Login: "alice", Password: "wrong-pass"},
	}

	for _, creds := range cases {
		_, _, err := svc.Login(context.Background(), creds)
		assert.ErrorIs(t, err, ErrUnauthorized, creds.Login)
	}
}

func TestRegister(t *testing.T) {
	svc, _, _ := newTestService(t)

	t.Run("weak password", func(t *testing.T) {
		_, err := svc.Register(context.Background(), domain.CreateUserDTO{
			Login:    "bob",
			Password: "abc",
		})
		var weak *WeakPasswordError
		require.ErrorAs(t, err, &weak)
	})

	t.Run("auto name", func(t *testing.T) {
		user, err := svc.Register(context.Background(), domain.CreateUserDTO{
			Login:    "bob",
			Password: "Abcdef1!",
		})
		require.NoError(t, err)
		assert.Regexp(t, `^User_[0-9a-f]{8}$`, user.Name)
		assert.True(t, user.HasPassword())
		assert.NotEqual(t, "Abcdef1!", user.PasswordHash)
	})

	t.Run("login taken", func(t *testing.T) {
		_, err := svc.Register(context.Background(), domain.CreateUserDTO{
			Login:    "bob",
			Password: "Abcdef1!",
		})
		assert.ErrorIs(t, err, ErrLoginTaken)
	})
}

func TestRefresh_Rotation(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	repo := memory.NewUserRepo()
	codec := &token.Codec{Now: func() time.Time { return now }}
	svc := NewService(repo, codec, testConfig())

	user := registered(t, svc, "alice", "Abcdef1!")
	_, pair, err := svc.Login(context.Background(), domain.Credentials{Login: "alice", Password: "Abcdef1!"})
	require.NoError(t, err)

	// сдвигаем часы — ротация должна дать другую пару с новым exp
	now = now.Add(10 * time.Minute)

	got, next, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.NotEqual(t, pair.AccessToken, next.AccessToken)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	payload, err := codec.Verify(next.RefreshToken, testRefreshKey)
	require.NoError(t, err)
	assert.Equal(t, now.Unix()+604800, payload.Exp)
}

func TestRefresh_Failures(t *testing.T) {
	svc, repo, codec := newTestService(t)
	registered(t, svc, "alice", "Abcdef1!")
	_, pair, err := svc.Login(context.Background(), domain.Credentials{Login: "alice", Password: "Abcdef1!"})
	require.NoError(t, err)

	t.Run("access token is not a refresh token", func(t *testing.T) {
		// изоляция секретов: access не принимается там, где ждут refresh
		_, _, err := svc.Refresh(context.Background(), pair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, _, err := svc.Refresh(context.Background(), "not.a.token")
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	})

	t.Run("expired refresh", func(t *testing.T) {
		past := &token.Codec{Now: func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }}
		expiredSvc := NewService(repo, past, testConfig())
		_, stale, err := expiredSvc.Login(context.Background(), domain.Credentials{Login: "alice", Password: "Abcdef1!"})
		require.NoError(t, err)

		_, _, err = svc.Refresh(context.Background(), stale.RefreshToken)
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	})

	t.Run("user deleted after issuance", func(t *testing.T) {
		payload, err := codec.Verify(pair.RefreshToken, testRefreshKey)
		require.NoError(t, err)
		require.NoError(t, repo.Delete(context.Background(), payload.ID))

		_, _, err = svc.Refresh(context.Background(), pair.RefreshToken)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestUpdate_PasswordChangeGuard(t *testing.T) {
	svc, _, _ := newTestService(t)
	user := registered(t, svc, "alice", "Abcdef1!")

	t.Run("wrong current password", func(t *testing.T) {
		_, err := svc.Update(context.Background(), user.ID, domain.UpdateUserDTO{
			Password:    "wrong-pass",
			NewPassword: "Newpass1!",
		})
		assert.ErrorIs(t, err, ErrUnauthorized)

		// хэш не тронут — старый пароль продолжает работать
		_, _, err = svc.Login(context.Background(), domain.Credentials{Login: "alice", Password: "Abcdef1!"})
		assert.NoError(t, err)
	})

	t.Run("weak new password rejected before the guard", func(t *testing.T) {
		_, err := svc.Update(context.Background(), user.ID, domain.UpdateUserDTO{
			Password:    "Abcdef1!",
			NewPassword: "short",
		})
		var weak *WeakPasswordError
		assert.ErrorAs(t, err, &weak)
	})

	t.Run("success", func(t *testing.T) {
		updated, err := svc.Update(context.Background(), user.ID, domain.UpdateUserDTO{
			Password:    "Abcdef1!",
			NewPassword: "Newpass1!",
		})
		require.NoError(t, err)
		assert.Equal(t, user.Version+1, updated.Version)

		_, _, err = svc.Login(context.Background(), domain.Credentials{Login: "alice", Password: "Newpass1!"})
		assert.NoError(t, err)
		_, _, err = svc.Login(context.Background(), domain.Credentials{Login: "alice", Password: "Abcdef1!"})
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestUpdate_LoginTaken(t *testing.T) {
	svc, _, _ := newTestService(t)
	registered(t, svc, "alice", "Abcdef1!")
	bob := registered(t, svc, "bob", "Abcdef1!")

	_, err := svc.Update(context.Background(), bob.ID, domain.UpdateUserDTO{
		Password: "Abcdef1!",
		Login:    "alice",
	})
	assert.ErrorIs(t, err, ErrLoginTaken)
}

func TestUpdate_AnonymousSkipsGuard(t *testing.T) {
	svc, _, _ := newTestService(t)
	user, _, err := svc.BootstrapAnonymous(context.Background())
	require.NoError(t, err)

	// у анонима нет пароля — подтверждение не требуется
	updated, err := svc.Update(context.Background(), user.ID, domain.UpdateUserDTO{Name: "Mandelbrot fan"})
	require.NoError(t, err)
	assert.Equal(t, "Mandelbrot fan", updated.Name)
	assert.Equal(t, user.Version+1, updated.Version)
}

func TestUserByAccessToken(t *testing.T) {
	svc, repo, _ := newTestService(t)
	user, pair, err := svc.BootstrapAnonymous(context.Background())
	require.NoError(t, err)

	got, err := svc.UserByAccessToken(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	t.Run("expired", func(t *testing.T) {
		past := &token.Codec{Now: func() time.Time { return time.Now().Add(-2 * time.Hour) }}
		staleSvc := NewService(repo, past, testConfig())
		_, stale, err := staleSvc.BootstrapAnonymous(context.Background())
		require.NoError(t, err)

		_, err = svc.UserByAccessToken(context.Background(), stale.AccessToken)
		assert.ErrorIs(t, err, token.ErrExpired)
	})

	t.Run("refresh token rejected on access path", func(t *testing.T) {
		_, err := svc.UserByAccessToken(context.Background(), pair.RefreshToken)
		assert.ErrorIs(t, err, token.ErrInvalidSignature)
	})

	t.Run("deleted user", func(t *testing.T) {
		require.NoError(t, repo.Delete(context.Background(), user.ID))
		_, err := svc.UserByAccessToken(context.Background(), pair.AccessToken)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}
