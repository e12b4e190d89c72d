package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User           UserRepository
	Job            JobRepository
	JobAssignment  JobAssignmentRepository
	TimeEntry      TimeEntryRepository
	TimeCorrection TimeCorrectionRepository
	Notification   NotificationRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:           NewUserRepo(db),
		Job:            NewJobRepo(db),
		JobAssignment:  NewJobAssignmentRepo(db),
		TimeEntry:      NewTimeEntryRepo(db),
		TimeCorrection: NewTimeCorrectionRepo(db),
		Notification:   NewNotificationRepo(db),
	}
}
