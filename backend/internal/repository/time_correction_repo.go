package repository

import (
	"context"

	"gorm.io/gorm"

	"crewcheck/backend/internal/model"
)

// TimeCorrectionRepository 考勤更正申请数据访问接口
type TimeCorrectionRepository interface {
	Create(ctx context.Context, req *model.TimeCorrectionRequest) error
	// ListByJob 列出项目的更正申请，status 为空时不过滤
	ListByJob(ctx context.Context, jobID, status string) ([]model.TimeCorrectionRequest, error)
}

type timeCorrectionRepo struct {
	db *gorm.DB
}

// NewTimeCorrectionRepo 创建 TimeCorrectionRepository 实例
func NewTimeCorrectionRepo(db *gorm.DB) TimeCorrectionRepository {
	return &timeCorrectionRepo{db: db}
}

func (r *timeCorrectionRepo) Create(ctx context.Context, req *model.TimeCorrectionRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *timeCorrectionRepo) ListByJob(ctx context.Context, jobID, status string) ([]model.TimeCorrectionRequest, error) {
	var reqs []model.TimeCorrectionRequest
	db := r.db.WithContext(ctx).Where("job_id = ?", jobID)
	if status != "" {
		db = db.Where("status = ?", status)
	}
	err := db.Order("created_at DESC").Find(&reqs).Error
	return reqs, err
}
