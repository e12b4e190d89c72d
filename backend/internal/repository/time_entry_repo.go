package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"crewcheck/backend/internal/model"
)

// TimeEntryRepository 考勤记录数据访问接口
type TimeEntryRepository interface {
	// ListOverlapping 列出与 [windowStart, windowEnd] 重叠的考勤记录（含 User）
	// 仍在岗（clock_out 为 NULL）的记录视为持续到现在，总是与已开始的窗口重叠
	ListOverlapping(ctx context.Context, jobID, excludeUserID string, windowStart, windowEnd time.Time) ([]model.TimeEntry, error)
	// GetLatestForUser 查询用户在项目中最近一次上班的考勤记录
	GetLatestForUser(ctx context.Context, jobID, userID string) (*model.TimeEntry, error)
}

type timeEntryRepo struct {
	db *gorm.DB
}

// NewTimeEntryRepo 创建 TimeEntryRepository 实例
func NewTimeEntryRepo(db *gorm.DB) TimeEntryRepository {
	return &timeEntryRepo{db: db}
}

func (r *timeEntryRepo) ListOverlapping(ctx context.Context, jobID, excludeUserID string, windowStart, windowEnd time.Time) ([]model.TimeEntry, error) {
	var entries []model.TimeEntry
	db := r.db.WithContext(ctx).
		Preload("User").
		Where("job_id = ? AND clock_in <= ?", jobID, windowEnd).
		Where("(clock_out IS NULL OR clock_out >= ?)", windowStart)
	if excludeUserID != "" {
		db = db.Where("user_id <> ?", excludeUserID)
	}
	err := db.Order("clock_in ASC").Find(&entries).Error
	return entries, err
}

func (r *timeEntryRepo) GetLatestForUser(ctx context.Context, jobID, userID string) (*model.TimeEntry, error) {
	var entry model.TimeEntry
	err := r.db.WithContext(ctx).
		Where("job_id = ? AND user_id = ?", jobID, userID).
		Order("clock_in DESC").
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
