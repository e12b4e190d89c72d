package crew

import (
	"context"
	"time"
)

// RosterSource 花名册数据来源
type RosterSource interface {
	// FetchAssignedRoster 项目分配人员，不含 excludeUserID
	FetchAssignedRoster(ctx context.Context, jobID, excludeUserID string) ([]Identity, error)
	// FetchAttendanceOverlapping 项目中与班次窗口重叠的考勤记录，不含 excludeUserID
	// 实现可以放宽过滤条件，Aggregator 会再做一次重叠判断
	FetchAttendanceOverlapping(ctx context.Context, jobID, excludeUserID string, windowStart, windowEnd time.Time) ([]AttendanceRecord, error)
}

// MetadataSource 头像等展示信息
type MetadataSource interface {
	FetchDisplayMetadata(ctx context.Context, userIDs []string) (map[string]string, error)
}

// Directory 人员目录，手动添加成员时解析姓名
// 目录中不存在时返回 ErrUnknownMember
type Directory interface {
	LookupDirectoryEntry(ctx context.Context, userID string) (*Identity, error)
}

// CorrectionSubmitter 提交考勤更正申请，幂等由存储侧负责
type CorrectionSubmitter interface {
	SubmitCorrectionRequest(ctx context.Context, req *CorrectionRequest) error
}

// Notifier 面向用户的结果提示，失败不影响核验本身
type Notifier interface {
	NotifyCompletion(ctx context.Context, leaderID string, count int)
	NotifyFailure(ctx context.Context, leaderID string, memberName string)
}
