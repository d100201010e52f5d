package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aidash/backend/internal/domain"
	"aidash/backend/internal/storage/memory"
)

type fixture struct {
	registry  *ServiceRegistry
	keys      *APIKeyService
	prompts   *SystemPromptService
	dashboard *DashboardService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	t.Cleanup(func() { _ = store.Close() })
	log := zap.NewNop()
	return &fixture{
		registry:  NewServiceRegistry(store, log),
		keys:      NewAPIKeyService(store, log),
		prompts:   NewSystemPromptService(store, log),
		dashboard: NewDashboardService(store, log),
	}
}

func (f *fixture) mustCreateService(t *testing.T, name string, wordLimit int) *domain.APIService {
	t.Helper()
	svc, err := f.registry.Create(name, wordLimit)
	require.NoError(t, err)
	return svc
}

func (f *fixture) mustAddKey(t *testing.T, serviceID, userID, name, material string) *domain.APIKey {
	t.Helper()
	key, err := f.keys.Add(AddKeyInput{
		ServiceID: serviceID,
		UserID:    userID,
		Name:      name,
		Key:       material,
	})
	require.NoError(t, err)
	return key
}

// activeCount 统计作用域内 active 密钥数量
func activeCount(t *testing.T, f *fixture, serviceID, userID string) int {
	t.Helper()
	keys, err := f.keys.List(serviceID, userID)
	require.NoError(t, err)
	n := 0
	for _, k := range keys {
		if k.IsActive() {
			n++
		}
	}
	return n
}

func TestAddKey(t *testing.T) {
	t.Run("首把密钥默认激活", func(t *testing.T) {
		f := newFixture(t)
		svc := f.mustCreateService(t, "openai", 0)

		key := f.mustAddKey(t, svc.ID, "u1", "k1", "sk-aaa")
		assert.Equal(t, domain.KeyStatusActive, key.Status)
	})

	t.Run("已有激活密钥时新密钥为inactive", func(t *testing.T) {
		f := newFixture(t)
		svc := f.mustCreateService(t, "openai", 0)

		f.mustAddKey(t, svc.ID, "u1", "k1", "sk-aaa")
		second := f.mustAddKey(t, svc.ID, "u1", "k2", "sk-bbb")
		assert.Equal(t, domain.KeyStatusInactive, second.Status)
		assert.Equal(t, 1, activeCount(t, f, svc.ID, "u1"))
	})

	t.Run("激活密钥被停用后新密钥重新默认激活", func(t *testing.T) {
		f := newFixture(t)
		svc := f.mustCreateService(t, "openai", 0)

		first := f.mustAddKey(t, svc.ID, "u1", "k1", "sk-aaa")
		_, err := f.keys.ToggleStatus(first.ID, svc.ID, "u1")
		require.NoError(t, err)

		second := f.mustAddKey(t, svc.ID, "u1", "k2", "sk-bbb")
		assert.Equal(t, domain.KeyStatusActive, second.Status)
	})

	t.Run("服务不存在", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.keys.Add(AddKeyInput{
			ServiceID: "missing",
			UserID:    "u1",
			Key:       "sk-aaa",
		})
		assert.ErrorIs(t, err, ErrServiceNotFound)
	})

	t.Run("密钥内容为空", func(t *testing.T) {
		f := newFixture(t)
		svc := f.mustCreateService(t, "openai", 0)

		_, err := f.keys.Add(AddKeyInput{
			ServiceID: svc.ID,
			UserID:    "u1",
			Key:       "   ",
		})
		assert.ErrorIs(t, err, ErrKeyMaterialRequired)
	})

	t.Run("不同用户的首把密钥互不影响", func(t *testing.T) {
		f := newFixture(t)
		svc := f.mustCreateService(t, "openai", 0)

		k1 := f.mustAddKey(t, svc.ID, "u1", "k1", "sk-aaa")
		k2 := f.mustAddKey(t, svc.ID, "u2", "k1", "sk-bbb")
		assert.Equal(t, domain.KeyStatusActive, k1.Status)
		assert.Equal(t, domain.KeyStatusActive, k2.Status)
	})
}

func TestListKeys(t *testing.T) {
	t.Run("按创建时间倒序", func(t *testing.T) {
		f := newFixture(t)
		svc := f.mustCreateService(t, "openai", 0)

		k1 := f.mustAddKey(t, svc.ID, "u1", "k1", "sk-aaa")
		k2 := f.mustAddKey(t, svc.ID, "u1", "k2", "sk-bbb")
		k3 := f.mustAddKey(t, svc.ID, "u1", "k3", "sk-ccc")

		keys, err := f.keys.List(svc.ID, "u1")
		require.NoError(t, err)
		require.Len(t, keys, 3)
		assert.Equal(t, k3.ID, keys[0].ID)
		assert.Equal(t, k2.ID, keys[1].ID)
		assert.Equal(t, k1.ID, keys[2].ID)
	})

	t.Run("作用域隔离_不返回其他用户的密钥", func(t *testing.T) {
		f := newFixture(t)
		svc := f.mustCreateService(t, "openai", 0)

		f.mustAddKey(t, svc.ID, "u1", "mine", "sk-aaa")
		f.mustAddKey(t, svc.ID, "u2", "theirs", "sk-bbb")

		keys, err := f.keys.List(svc.ID, "u1")
		require.NoError(t, err)
		require.Len(t, keys, 1)
		for _, k := range keys {
			assert.Equal(t, "u1", k.UserID)
		}
	})

	t.Run("空作用域返回空列表", func(t *testing.T) {
		f := newFixture(t)
		svc := f.mustCreateService(t, "openai", 0)

		keys, err := f.keys.List(svc.ID, "u1")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})
}

func TestToggleKeyStatus(t *testing.T) {
	t.Run("激活方向会停用其余密钥", func(t *testing.T) {
		f := newFixture(t)
		svc := f.mustCreateService(t, "openai", 0)

		k1 := f.mustAddKey(t, svc.ID, "u1", "k1", "sk-aaa")
		k2 := f.mustAddKey(t, svc.ID, "u1", "k2", "sk-bbb")

		keys, err := f.keys.ToggleStatus(k2.ID, svc.ID, "u1")
		require.NoError(t, err)

		byID := map[string]*domain.APIKey{}
		for _, k := range keys {
			byID[k.ID] = k
		}
		assert.Equal(t, domain.KeyStatusActive, byID[k2.ID].Status)
		assert.Equal(t, domain.KeyStatusInactive, byID[k1.ID].Status)
		assert.Equal(t, 1, activeCount(t, f, svc.ID, "u1"))
	})

	t.Run("停用唯一激活密钥后作用域可以没有激活密钥", func(t *testing.T) {
		f := newFixture(t)
		svc := f.mustCreateService(t, "openai", 0)

		k1 := f.mustAddKey(t, svc.ID, "u1", "k1", "sk-aaa")
		require.Equal(t, domain.KeyStatusActive, k1.Status)

		keys, err := f.keys.ToggleStatus(k1.ID, svc.ID, "u1")
		require.NoError(t, err)
		require.Len(t, keys, 1)
		assert.Equal(t, domain.KeyStatusInactive, keys[0].Status)
		assert.Equal(t, 0, activeCount(t, f, svc.ID, "u1"))
	})

	t.Run("两次翻转回到原状态", func(t *testing.T) {
		f := newFixture(t)
		svc := f.mustCreateService(t, "openai", 0)

		k1 := f.mustAddKey(t, svc.ID, "u1", "k1", "sk-aaa")
		original := k1.Status

		_, err := f.keys.ToggleStatus(k1.ID, svc.ID, "u1")
		require.NoError(t, err)
		keys, err := f.keys.ToggleStatus(k1.ID, svc.ID, "u1")
		require.NoError(t, err)

		require.Len(t, keys, 1)
		assert.Equal(t, original, keys[0].Status)
	})

	t.Run("密钥不存在", func(t *testing.T) {
		f := newFixture(t)
		svc := f.mustCreateService(t, "openai", 0)

		_, err := f.keys.ToggleStatus("missing", svc.ID, "u1")
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("不能翻转其他用户的密钥", func(t *testing.T) {
		f := newFixture(t)
		svc := f.mustCreateService(t, "openai", 0)

		theirs := f.mustAddKey(t, svc.ID, "u2", "k1", "sk-bbb")

		_, err := f.keys.ToggleStatus(theirs.ID, svc.ID, "u1")
		assert.ErrorIs(t, err, ErrKeyNotFound)

		// 对方的密钥保持不变
		keys, err := f.keys.List(svc.ID, "u2")
		require.NoError(t, err)
		require.Len(t, keys, 1)
		assert.Equal(t, domain.KeyStatusActive, keys[0].Status)
	})
}

func TestActivateKey(t *testing.T) {
	t.Run("激活后其余密钥全部停用", func(t *testing.T) {
		f := newFixture(t)
		svc := f.mustCreateService(t, "openai", 0)

		f.mustAddKey(t, svc.ID, "u1", "k1", "sk-aaa")
		f.mustAddKey(t, svc.ID, "u1", "k2", "sk-bbb")
		k3 := f.mustAddKey(t, svc.ID, "u1", "k3", "sk-ccc")

		require.NoError(t, f.keys.Activate(k3.ID, svc.ID, "u1"))

		keys, err := f.keys.List(svc.ID, "u1")
		require.NoError(t, err)
		for _, k := range keys {
			if k.ID == k3.ID {
				assert.Equal(t, domain.KeyStatusActive, k.Status)
			} else {
				assert.Equal(t, domain.KeyStatusInactive, k.Status)
			}
		}
	})

	t.Run("目标不存在时整体回滚", func(t *testing.T) {
		f := newFixture(t)
		svc := f.mustCreateService(t, "openai", 0)

		k1 := f.mustAddKey(t, svc.ID, "u1", "k1", "sk-aaa")
		require.Equal(t, domain.KeyStatusActive, k1.Status)

		err := f.keys.Activate("missing", svc.ID, "u1")
		assert.ErrorIs(t, err, ErrKeyNotFound)

		// 原激活密钥未被部分停用
		keys, err := f.keys.List(svc.ID, "u1")
		require.NoError(t, err)
		require.Len(t, keys, 1)
		assert.Equal(t, domain.KeyStatusActive, keys[0].Status)
	})

	t.Run("激活其他用户的密钥按不存在处理", func(t *testing.T) {
		f := newFixture(t)
		svc := f.mustCreateService(t, "openai", 0)

		mine := f.mustAddKey(t, svc.ID, "u1", "k1", "sk-aaa")
		theirs := f.mustAddKey(t, svc.ID, "u2", "k1", "sk-bbb")

		err := f.keys.Activate(theirs.ID, svc.ID, "u1")
		assert.ErrorIs(t, err, ErrKeyNotFound)

		// 自己作用域内的激活密钥不受影响
		keys, err := f.keys.List(svc.ID, "u1")
		require.NoError(t, err)
		require.Len(t, keys, 1)
		assert.Equal(t, mine.ID, keys[0].ID)
		assert.Equal(t, domain.KeyStatusActive, keys[0].Status)
	})
}

func TestDeleteKey(t *testing.T) {
	t.Run("删除后从列表消失", func(t *testing.T) {
		f := newFixture(t)
		svc := f.mustCreateService(t, "openai", 0)

		k1 := f.mustAddKey(t, svc.ID, "u1", "k1", "sk-aaa")
		require.NoError(t, f.keys.Delete(k1.ID))

		keys, err := f.keys.List(svc.ID, "u1")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("删除激活密钥不做补偿激活", func(t *testing.T) {
		f := newFixture(t)
		svc := f.mustCreateService(t, "openai", 0)

		k1 := f.mustAddKey(t, svc.ID, "u1", "k1", "sk-aaa")
		f.mustAddKey(t, svc.ID, "u1", "k2", "sk-bbb")

		require.NoError(t, f.keys.Delete(k1.ID))
		assert.Equal(t, 0, activeCount(t, f, svc.ID, "u1"))
	})

	t.Run("删除不存在的密钥是幂等成功", func(t *testing.T) {
		f := newFixture(t)
		assert.NoError(t, f.keys.Delete("missing"))
	})
}

// TestSingleActiveInvariant 对一串混合操作后的作用域做不变量检查
func TestSingleActiveInvariant(t *testing.T) {
	f := newFixture(t)
	svc := f.mustCreateService(t, "openai", 0)

	check := func(step string) {
		t.Helper()
		n := activeCount(t, f, svc.ID, "u1")
		assert.LessOrEqual(t, n, 1, "步骤 %s 之后作用域内有 %d 把激活密钥", step, n)
	}

	k1 := f.mustAddKey(t, svc.ID, "u1", "k1", "sk-aaa")
	check("add k1")
	k2 := f.mustAddKey(t, svc.ID, "u1", "k2", "sk-bbb")
	check("add k2")
	k3 := f.mustAddKey(t, svc.ID, "u1", "k3", "sk-ccc")
	check("add k3")

	_, err := f.keys.ToggleStatus(k2.ID, svc.ID, "u1")
	require.NoError(t, err)
	check("toggle k2")

	require.NoError(t, f.keys.Activate(k3.ID, svc.ID, "u1"))
	check("activate k3")

	_, err = f.keys.ToggleStatus(k3.ID, svc.ID, "u1")
	require.NoError(t, err)
	check("toggle k3")

	_, err = f.keys.ToggleStatus(k1.ID, svc.ID, "u1")
	require.NoError(t, err)
	check("toggle k1")

	require.NoError(t, f.keys.Delete(k1.ID))
	check("delete k1")

	k4 := f.mustAddKey(t, svc.ID, "u1", "k4", "sk-ddd")
	assert.Equal(t, domain.KeyStatusActive, k4.Status)
	check("add k4")
}

// TestOpenAIScenario 完整走一遍典型的换钥流程
func TestOpenAIScenario(t *testing.T) {
	f := newFixture(t)

	svc, err := f.registry.Create("openai", 5000)
	require.NoError(t, err)
	assert.Equal(t, 5000, svc.WordLimit)

	k1 := f.mustAddKey(t, svc.ID, "u1", "k1", "sk-aaa")
	assert.Equal(t, domain.KeyStatusActive, k1.Status)

	k2 := f.mustAddKey(t, svc.ID, "u1", "k2", "sk-bbb")
	assert.Equal(t, domain.KeyStatusInactive, k2.Status)

	keys, err := f.keys.ToggleStatus(k2.ID, svc.ID, "u1")
	require.NoError(t, err)
	require.Len(t, keys, 2)

	byID := map[string]*domain.APIKey{}
	for _, k := range keys {
		byID[k.ID] = k
	}
	assert.Equal(t, domain.KeyStatusActive, byID[k2.ID].Status)
	assert.Equal(t, domain.KeyStatusInactive, byID[k1.ID].Status)
}

func TestMarkUsed(t *testing.T) {
	t.Run("记录最后使用时间", func(t *testing.T) {
		f := newFixture(t)
		svc := f.mustCreateService(t, "openai", 0)

		k1 := f.mustAddKey(t, svc.ID, "u1", "k1", "sk-aaa")
		require.Nil(t, k1.LastUsedAt)

		require.NoError(t, f.keys.MarkUsed(k1.ID, svc.ID, "u1"))

		keys, err := f.keys.List(svc.ID, "u1")
		require.NoError(t, err)
		require.Len(t, keys, 1)
		assert.NotNil(t, keys[0].LastUsedAt)
	})

	t.Run("越权访问按不存在处理", func(t *testing.T) {
		f := newFixture(t)
		svc := f.mustCreateService(t, "openai", 0)

		theirs := f.mustAddKey(t, svc.ID, "u2", "k1", "sk-bbb")
		err := f.keys.MarkUsed(theirs.ID, svc.ID, "u1")
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})
}
