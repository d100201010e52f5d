package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aidash/backend/internal/domain"
	"aidash/backend/internal/storage"
)

func TestCreateService(t *testing.T) {
	t.Run("创建成功", func(t *testing.T) {
		f := newFixture(t)

		svc, err := f.registry.Create("openai", 5000)
		require.NoError(t, err)
		assert.NotEmpty(t, svc.ID)
		assert.Equal(t, "openai", svc.Name)
		assert.Equal(t, 5000, svc.WordLimit)
		assert.False(t, svc.CreatedAt.IsZero())
	})

	t.Run("字数上限非正数时取默认值", func(t *testing.T) {
		f := newFixture(t)

		svc, err := f.registry.Create("openai", 0)
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultWordLimit, svc.WordLimit)

		svc2, err := f.registry.Create("anthropic", -5)
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultWordLimit, svc2.WordLimit)
	})

	t.Run("名称为空", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.registry.Create("   ", 5000)
		assert.ErrorIs(t, err, ErrServiceNameRequired)
	})

	t.Run("名称重复", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.registry.Create("openai", 5000)
		require.NoError(t, err)

		_, err = f.registry.Create("openai", 9000)
		assert.ErrorIs(t, err, ErrServiceNameExists)
	})

	t.Run("名称去除首尾空白", func(t *testing.T) {
		f := newFixture(t)

		svc, err := f.registry.Create("  openai  ", 5000)
		require.NoError(t, err)
		assert.Equal(t, "openai", svc.Name)
	})
}

func TestListServices(t *testing.T) {
	t.Run("按名称升序", func(t *testing.T) {
		f := newFixture(t)

		f.mustCreateService(t, "openai", 0)
		f.mustCreateService(t, "anthropic", 0)
		f.mustCreateService(t, "gemini", 0)

		services, err := f.registry.List()
		require.NoError(t, err)
		require.Len(t, services, 3)
		assert.Equal(t, "anthropic", services[0].Name)
		assert.Equal(t, "gemini", services[1].Name)
		assert.Equal(t, "openai", services[2].Name)
	})

	t.Run("空注册表返回空列表", func(t *testing.T) {
		f := newFixture(t)

		services, err := f.registry.List()
		require.NoError(t, err)
		assert.Empty(t, services)
	})
}

func TestDeleteService(t *testing.T) {
	t.Run("级联删除全部密钥", func(t *testing.T) {
		f := newFixture(t)
		svc := f.mustCreateService(t, "openai", 0)

		k1 := f.mustAddKey(t, svc.ID, "u1", "k1", "sk-aaa")
		k2 := f.mustAddKey(t, svc.ID, "u2", "k1", "sk-bbb")

		require.NoError(t, f.registry.Delete(svc.ID))

		// 任何用户查询该服务的密钥都为空
		for _, uid := range []string{"u1", "u2"} {
			keys, err := f.keys.List(svc.ID, uid)
			require.NoError(t, err)
			assert.Empty(t, keys)
		}

		// 按ID直查也已不存在
		_, err := f.registry.Get(svc.ID)
		assert.ErrorIs(t, err, ErrServiceNotFound)
		for _, keyID := range []string{k1.ID, k2.ID} {
			_, err := f.keys.ToggleStatus(keyID, svc.ID, "u1")
			assert.ErrorIs(t, err, ErrKeyNotFound)
		}
	})

	t.Run("不影响其他服务的密钥", func(t *testing.T) {
		f := newFixture(t)
		a := f.mustCreateService(t, "openai", 0)
		b := f.mustCreateService(t, "anthropic", 0)

		f.mustAddKey(t, a.ID, "u1", "k1", "sk-aaa")
		f.mustAddKey(t, b.ID, "u1", "k1", "sk-bbb")

		require.NoError(t, f.registry.Delete(a.ID))

		keys, err := f.keys.List(b.ID, "u1")
		require.NoError(t, err)
		assert.Len(t, keys, 1)
	})

	t.Run("删除不存在的服务是幂等成功", func(t *testing.T) {
		f := newFixture(t)
		assert.NoError(t, f.registry.Delete("missing"))
	})

	t.Run("删除后名称可以复用", func(t *testing.T) {
		f := newFixture(t)
		svc := f.mustCreateService(t, "openai", 0)
		require.NoError(t, f.registry.Delete(svc.ID))

		_, err := f.registry.Create("openai", 5000)
		assert.NoError(t, err)
	})
}

func TestGetService(t *testing.T) {
	t.Run("不存在时返回哨兵错误", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.registry.Get("missing")
		assert.ErrorIs(t, err, ErrServiceNotFound)
		assert.NotErrorIs(t, err, storage.ErrServiceNotFound)
	})
}
