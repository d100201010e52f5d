package service

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"aidash/backend/internal/domain"
	"aidash/backend/internal/storage"
)

var (
	// ErrServiceNameRequired 服务名称不能为空
	ErrServiceNameRequired = errors.New("service name is required")
	// ErrServiceNameExists 服务名称已存在
	ErrServiceNameExists = errors.New("service name already exists")
	// ErrServiceNotFound 服务不存在
	ErrServiceNotFound = errors.New("service not found")
)

// ServiceRegistry 服务注册表业务逻辑
//
// 管理外部 API 服务的全局注册（不按用户隔离）。
type ServiceRegistry struct {
	store storage.Store
	log   *zap.Logger
}

// NewServiceRegistry 创建服务注册表
func NewServiceRegistry(store storage.Store, log *zap.Logger) *ServiceRegistry {
	if log == nil {
		log = zap.NewNop()
	}
	return &ServiceRegistry{store: store, log: log}
}

// List 列出全部服务,按名称升序
func (r *ServiceRegistry) List() ([]*domain.APIService, error) {
	services, err := r.store.ListAPIServices()
	if err != nil {
		r.log.Error("查询服务列表失败", zap.Error(err))
		return nil, err
	}
	return services, nil
}

// Get 获取单个服务
func (r *ServiceRegistry) Get(id string) (*domain.APIService, error) {
	svc, err := r.store.GetAPIService(id)
	if err != nil {
		if errors.Is(err, storage.ErrServiceNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return svc, nil
}

// Create 创建新服务
//
// 参数:
//   - name: 服务名称,去除首尾空白后不能为空,全局唯一
//   - wordLimit: 字数上限,非正数时取默认值
//
// 返回值:
//   - *domain.APIService: 创建的服务
//   - error: ErrServiceNameRequired / ErrServiceNameExists 或存储错误
//
// 名称唯一性由存储层约束保证,这里不做预查询。
func (r *ServiceRegistry) Create(name string, wordLimit int) (*domain.APIService, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrServiceNameRequired
	}

	if wordLimit <= 0 {
		wordLimit = domain.DefaultWordLimit
	}

	now := time.Now().UTC()
	svc := &domain.APIService{
		ID:        uuid.New().String(),
		Name:      name,
		WordLimit: wordLimit,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := r.store.SaveAPIService(svc); err != nil {
		if errors.Is(err, storage.ErrServiceNameExists) {
			return nil, ErrServiceNameExists
		}
		r.log.Error("创建服务失败", zap.String("name", name), zap.Error(err))
		return nil, err
	}

	r.log.Info("服务已创建",
		zap.String("service_id", svc.ID),
		zap.String("name", svc.Name),
		zap.Int("word_limit", svc.WordLimit))
	return svc, nil
}

// Delete 删除服务及其下的全部密钥
//
// 删除顺序为先密钥后服务,由存储层在同一个原子单元内完成。
// 删除不存在的服务视为成功（幂等）。
func (r *ServiceRegistry) Delete(id string) error {
	if err := r.store.DeleteAPIServiceCascade(id); err != nil {
		r.log.Error("删除服务失败", zap.String("service_id", id), zap.Error(err))
		return err
	}
	r.log.Info("服务已删除", zap.String("service_id", id))
	return nil
}

// Count 统计服务总数
func (r *ServiceRegistry) Count() (int64, error) {
	return r.store.CountAPIServices()
}
