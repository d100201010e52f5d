package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aidash/backend/internal/storage/memory"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store := memory.NewStore()
	t.Cleanup(func() { _ = store.Close() })
	return NewService(store, zap.NewNop())
}

func TestRegister(t *testing.T) {
		t.Run("注册成功", func(t *testing.T) {
		svc := newTestService(t)

		user, err := svc.Register("alice@example.com", "alice", "password123")
		require.NoError(t, err)
		assert.NotEmpty(t, user.ID)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.Equal(t, "alice", user.Username)
		assert.True(t, user.IsActive)
		assert.NotEqual(t, "password123", user.PasswordHash)
	})

	t.Run("邮箱转为小写", func(t *testing.T) {
		svc := newTestService(t)

		user, err := svc.Register("Bob@Example.COM", "", "password123")
		require.NoError(t, err)
		assert.Equal(t, "bob@example.com", user.Email)
		assert.Equal(t, "Bob", user.Username)
	})

	t.Run("邮箱格式无效", func(t *testing.T) {
		svc := newTestService(t)

		_, err := svc.Register("not-an-email", "x", "password123")
		assert.ErrorIs(t, err, ErrInvalidEmail)
	})

	t.Run("密码太短", func(t *testing.T) {
		svc := newTestService(t)

		_, err := svc.Register("alice@example.com", "alice", "short")
		assert.ErrorIs(t, err, ErrInvalidPassword)
	})

	t.Run("邮箱重复", func(t *testing.T) {
		svc := newTestService(t)

		_, err := svc.Register("alice@example.com", "alice", "password123")
		require.NoError(t, err)

		_, err = svc.Register("alice@example.com", "alice2", "password456")
		assert.ErrorIs(t, err, ErrEmailExists)
	})
}

func TestLogin(t *testing.T) {
		t.Run("登录成功", func(t *testing.T) {
		svc := newTestService(t)
		_, err := svc.Register("alice@example.com", "alice", "password123")
		require.NoError(t, err)

		user, err := svc.Login("alice@example.com", "password123")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", user.Email)
	})

	t.Run("密码错误", func(t *testing.T) {
		svc := newTestService(t)
		_, err := svc.Register("alice@example.com", "alice", "password123")
		require.NoError(t, err)

		_, err = svc.Login("alice@example.com", "wrong-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("用户不存在返回相同错误", func(t *testing.T) {
		svc := newTestService(t)

		_, err := svc.Login("nobody@example.com", "password123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestChangePassword(t *testing.T) {
		t.Run("修改成功后旧密码失效", func(t *testing.T) {
		svc := newTestService(t)
		user, err := svc.Register("alice@example.com", "alice", "password123")
		require.NoError(t, err)

		err = svc.ChangePassword(user.ID, "password123", "newpassword456")
		require.NoError(t, err)

		_, err = svc.Login("alice@example.com", "password123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		_, err = svc.Login("alice@example.com", "newpassword456")
		assert.NoError(t, err)
	})

	t.Run("旧密码错误", func(t *testing.T) {
		svc := newTestService(t)
		user, err := svc.Register("alice@example.com", "alice", "password123")
		require.NoError(t, err)

		err = svc.ChangePassword(user.ID, "wrong", "newpassword456")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestPasswordHashing(t *testing.T) {
	t.Run("哈希后可校验", func(t *testing.T) {
		hash, err := HashPassword("secret-password")
		require.NoError(t, err)
		assert.True(t, CheckPassword(hash, "secret-password"))
		assert.False(t, CheckPassword(hash, "other-password"))
	})
}
