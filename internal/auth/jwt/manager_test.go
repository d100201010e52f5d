package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-do-not-use-in-prod"

func TestGenerateAndValidate(t *testing.T) {
	mgr := NewManager(testSecret, "aidash", 15*time.Minute, 24*time.Hour)

	t.Run("生成并验证令牌对", func(t *testing.T) {
		pair, err := mgr.GenerateTokenPair("user-1", "alice@example.com")
		require.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
		assert.Equal(t, int64(900), pair.ExpiresIn)

		claims, err := mgr.ValidateToken(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "alice@example.com", claims.Email)
		assert.Equal(t, "aidash", claims.Issuer)
	})

	t.Run("过期令牌", func(t *testing.T) {
		expired := NewManager(testSecret, "aidash", -time.Minute, 24*time.Hour)
		pair, err := expired.GenerateTokenPair("user-1", "alice@example.com")
		require.NoError(t, err)

		_, err = expired.ValidateToken(pair.AccessToken)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("密钥不匹配", func(t *testing.T) {
		other := NewManager("another-secret-key-for-testing-purposes", "aidash", 15*time.Minute, 24*time.Hour)
		pair, err := other.GenerateTokenPair("user-1", "alice@example.com")
		require.NoError(t, err)

		_, err = mgr.ValidateToken(pair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("无效令牌字符串", func(t *testing.T) {
		_, err := mgr.ValidateToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
