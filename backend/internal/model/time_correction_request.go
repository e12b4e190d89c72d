package model

import "time"

// 补卡申请类型
const (
	CorrectionKindNewEntry   = "new_entry"
	CorrectionKindAmendEntry = "amend_entry"
)

// 补卡申请审批状态
const (
	CorrectionStatusPending  = "pending"
	CorrectionStatusApproved = "approved"
	CorrectionStatusRejected = "rejected"
)

// TimeCorrectionRequest 考勤更正申请表 — 对应 time_correction_requests
// 只进入审批队列，不直接修改 time_entries
type TimeCorrectionRequest struct {
	CorrectionID      string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"correction_id"`
	UserID            string     `gorm:"type:uuid;not null"                             json:"user_id"`
	JobID             string     `gorm:"type:uuid;not null"                             json:"job_id"`
	TimeEntryID       *string    `gorm:"type:uuid"                                      json:"time_entry_id,omitempty"` // 新增记录时为 NULL
	ShiftDate         time.Time  `gorm:"type:date;not null"                             json:"shift_date"`
	RequestedClockIn  time.Time  `gorm:"not null"                                       json:"requested_clock_in"`
	RequestedClockOut time.Time  `gorm:"not null"                                       json:"requested_clock_out"`
	BreakMinutes      int        `gorm:"not null;default:0"                             json:"break_minutes"`
	Reason            string     `gorm:"type:varchar(500);not null"                     json:"reason"`
	Kind              string     `gorm:"type:varchar(20);not null"                      json:"kind"`   // new_entry | amend_entry
	Status            string     `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"` // pending | approved | rejected
	RequestedBy       string     `gorm:"type:uuid;not null"                             json:"requested_by"`
	ReviewedBy        *string    `gorm:"type:uuid"                                      json:"reviewed_by,omitempty"`
	ReviewedAt        *time.Time `json:"reviewed_at,omitempty"`
	SoftDeleteModel
}

// TableName 指定表名
func (TimeCorrectionRequest) TableName() string { return "time_correction_requests" }
