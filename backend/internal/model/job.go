package model

// Job 工程项目表 — 对应 jobs
type Job struct {
	JobID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"job_id"`
	Name    string `gorm:"type:varchar(200);not null"                     json:"name"`
	Address string `gorm:"type:varchar(300);not null;default:''"          json:"address"`
	Status  string `gorm:"type:varchar(20);not null;default:'active'"     json:"status"` // active | completed | archived
	VersionedModel
}

// TableName 指定表名
func (Job) TableName() string { return "jobs" }

// JobAssignment 项目人员分配表 — 对应 job_assignments
type JobAssignment struct {
	AssignmentID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"assignment_id"`
	JobID        string `gorm:"type:uuid;not null"                             json:"job_id"`
	UserID       string `gorm:"type:uuid;not null"                             json:"user_id"`
	Role         string `gorm:"type:varchar(20);not null;default:'crew'"       json:"role"` // crew | foreman
	SoftDeleteModel

	// 关联
	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
	Job  *Job  `gorm:"foreignKey:JobID;references:JobID"   json:"job,omitempty"`
}

// TableName 指定表名
func (JobAssignment) TableName() string { return "job_assignments" }
