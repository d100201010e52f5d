package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aidash/backend/internal/domain"
	"aidash/backend/internal/storage"
)

func newKey(id, serviceID, userID string) *domain.APIKey {
	return &domain.APIKey{
		ID:        id,
		ServiceID: serviceID,
		UserID:    userID,
		Key:       "sk-" + id,
		Status:    domain.KeyStatusInactive,
		CreatedAt: time.Now(),
	}
}

func countActive(t *testing.T, s *Store, serviceID, userID string) int {
	t.Helper()
	keys, err := s.ListAPIKeysByScope(serviceID, userID)
	require.NoError(t, err)
	n := 0
	for _, k := range keys {
		if k.IsActive() {
			n++
		}
	}
	return n
}

func TestCreateAPIKeyConcurrent(t *testing.T) {
	t.Run("并发添加不会产生两把激活密钥", func(t *testing.T) {
		s := NewStore()

		var wg sync.WaitGroup
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_ = s.CreateAPIKey(newKey(fmt.Sprintf("key-%d", i), "svc", "u1"))
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 1, countActive(t, s, "svc", "u1"))
	})
}

func TestActivateAPIKeyExclusiveConcurrent(t *testing.T) {
	t.Run("并发排他激活后至多一把激活密钥", func(t *testing.T) {
		s := NewStore()
		for i := 0; i < 8; i++ {
			require.NoError(t, s.CreateAPIKey(newKey(fmt.Sprintf("key-%d", i), "svc", "u1")))
		}

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_ = s.ActivateAPIKeyExclusive(fmt.Sprintf("key-%d", i), "svc", "u1")
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 1, countActive(t, s, "svc", "u1"))
	})

	t.Run("目标不存在时不修改任何密钥", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.CreateAPIKey(newKey("key-1", "svc", "u1")))

		err := s.ActivateAPIKeyExclusive("missing", "svc", "u1")
		assert.ErrorIs(t, err, storage.ErrAPIKeyNotFound)
		assert.Equal(t, 1, countActive(t, s, "svc", "u1"))
	})
}

func TestDeleteAPIServiceCascadeIsolation(t *testing.T) {
	t.Run("只删除目标服务的密钥", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.SaveAPIService(&domain.APIService{ID: "a", Name: "openai"}))
		require.NoError(t, s.SaveAPIService(&domain.APIService{ID: "b", Name: "anthropic"}))
		require.NoError(t, s.CreateAPIKey(newKey("k1", "a", "u1")))
		require.NoError(t, s.CreateAPIKey(newKey("k2", "b", "u1")))

		require.NoError(t, s.DeleteAPIServiceCascade("a"))

		_, err := s.GetAPIKey("k1")
		assert.ErrorIs(t, err, storage.ErrAPIKeyNotFound)
		_, err = s.GetAPIKey("k2")
		assert.NoError(t, err)
		_, err = s.GetAPIService("a")
		assert.ErrorIs(t, err, storage.ErrServiceNotFound)
	})
}

func TestRateLimit(t *testing.T) {
	t.Run("窗口内累加_过期后重置", func(t *testing.T) {
		s := NewStore()

		n, err := s.IncrementRateLimit("ip:1.2.3.4", 50*time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = s.IncrementRateLimit("ip:1.2.3.4", 50*time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		time.Sleep(60 * time.Millisecond)

		n, err = s.GetRateLimit("ip:1.2.3.4")
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})
}
