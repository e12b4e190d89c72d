package repository

import (
	"context"

	"gorm.io/gorm"

	"crewcheck/backend/internal/model"
)

// JobRepository 工程项目数据访问接口
type JobRepository interface {
	GetByID(ctx context.Context, id string) (*model.Job, error)
}

type jobRepo struct {
	db *gorm.DB
}

// NewJobRepo 创建 JobRepository 实例
func NewJobRepo(db *gorm.DB) JobRepository {
	return &jobRepo{db: db}
}

func (r *jobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	var job model.Job
	err := r.db.WithContext(ctx).
		Where("job_id = ?", id).
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// JobAssignmentRepository 项目人员分配数据访问接口
type JobAssignmentRepository interface {
	// ListMembers 列出项目的分配人员（含 User），excludeUserID 为空时不排除
	ListMembers(ctx context.Context, jobID, excludeUserID string) ([]model.JobAssignment, error)
}

type jobAssignmentRepo struct {
	db *gorm.DB
}

// NewJobAssignmentRepo 创建 JobAssignmentRepository 实例
func NewJobAssignmentRepo(db *gorm.DB) JobAssignmentRepository {
	return &jobAssignmentRepo{db: db}
}

func (r *jobAssignmentRepo) ListMembers(ctx context.Context, jobID, excludeUserID string) ([]model.JobAssignment, error) {
	var assignments []model.JobAssignment
	db := r.db.WithContext(ctx).
		Preload("User").
		Where("job_id = ?", jobID)
	if excludeUserID != "" {
		db = db.Where("user_id <> ?", excludeUserID)
	}
	err := db.Order("created_at ASC").Find(&assignments).Error
	return assignments, err
}
