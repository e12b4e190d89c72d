package model

import "time"

// 考勤记录状态
const (
	TimeEntryOpen     = "open"
	TimeEntryClosed   = "closed"
	TimeEntryApproved = "approved"
)

// TimeEntry 考勤记录表 — 对应 time_entries
type TimeEntry struct {
	TimeEntryID  string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"time_entry_id"`
	JobID        string     `gorm:"type:uuid;not null"                             json:"job_id"`
	UserID       string     `gorm:"type:uuid;not null"                             json:"user_id"`
	ClockIn      time.Time  `gorm:"not null"                                       json:"clock_in"`
	ClockOut     *time.Time `json:"clock_out,omitempty"` // NULL 表示仍在岗
	TotalHours   float64    `gorm:"type:numeric(6,2);not null;default:0"           json:"total_hours"`
	BreakMinutes int        `gorm:"not null;default:0"                             json:"break_minutes"`
	Status       string     `gorm:"type:varchar(20);not null;default:'open'"       json:"status"` // open | closed | approved
	VersionedModel

	// 关联
	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (TimeEntry) TableName() string { return "time_entries" }

// EndOr 返回下班时间；仍在岗时返回 now
func (e *TimeEntry) EndOr(now time.Time) time.Time {
	if e.ClockOut != nil {
		return *e.ClockOut
	}
	return now
}
