package service

import (
	"go.uber.org/zap"

	"aidash/backend/internal/storage"
)

// DashboardSummary 仪表盘汇总数据
type DashboardSummary struct {
	ServiceCount int64 `json:"serviceCount"`
	KeyCount     int64 `json:"keyCount"`
	PromptCount  int64 `json:"promptCount"`
}

// DashboardService 仪表盘业务逻辑
type DashboardService struct {
	store storage.Store
	log   *zap.Logger
}

// NewDashboardService 创建仪表盘服务
func NewDashboardService(store storage.Store, log *zap.Logger) *DashboardService {
	if log == nil {
		log = zap.NewNop()
	}
	return &DashboardService{store: store, log: log}
}

// Summary 汇总调用者可见的资源数量
//
// 服务注册表是全局的,密钥和提示词按用户统计。
func (s *DashboardService) Summary(userID string) (*DashboardSummary, error) {
	serviceCount, err := s.store.CountAPIServices()
	if err != nil {
		s.log.Error("统计服务数量失败", zap.Error(err))
		return nil, err
	}

	keyCount, err := s.store.CountAPIKeysByUserID(userID)
	if err != nil {
		s.log.Error("统计密钥数量失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	promptCount, err := s.store.CountSystemPromptsByUserID(userID)
	if err != nil {
		s.log.Error("统计提示词数量失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	return &DashboardSummary{
		ServiceCount: serviceCount,
		KeyCount:     keyCount,
		PromptCount:  promptCount,
	}, nil
}
