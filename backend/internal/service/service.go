package service

import (
	"go.uber.org/zap"

	"crewcheck/backend/config"
	"crewcheck/backend/internal/repository"
	"crewcheck/backend/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	CrewVerification CrewVerificationService
	Export           ExportService
}

// NewService 创建 Service 聚合；cache 可为 nil
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	cache *redis.Client,
	logger *zap.Logger,
) *Service {
	return &Service{
		CrewVerification: NewCrewVerificationService(cfg, repo, cache, logger),
		Export:           NewExportService(logger),
	}
}
