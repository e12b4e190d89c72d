package crew

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Aggregator 汇总三路来源生成花名册
// 任一来源失败只记录日志并按空处理，不中断汇总
type Aggregator struct {
	source    RosterSource
	metadata  MetadataSource
	directory Directory
	loc       *time.Location
	now       func() time.Time
	logger    *zap.Logger
}

// NewAggregator 创建 Aggregator；metadata 可为 nil（不加载头像）
func NewAggregator(source RosterSource, metadata MetadataSource, directory Directory, loc *time.Location, logger *zap.Logger) *Aggregator {
	if loc == nil {
		loc = time.Local
	}
	return &Aggregator{
		source:    source,
		metadata:  metadata,
		directory: directory,
		loc:       loc,
		now:       time.Now,
		logger:    logger,
	}
}

// WithNow 替换当前时间来源，用于判断仍在岗记录
func (a *Aggregator) WithNow(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// Build 生成花名册
//
//  1. 并发拉取分配人员与考勤记录（只读、互不依赖）
//  2. 过滤出与班次窗口重叠的考勤，每人保留最近一条
//  3. 分配人员优先，有考勤则以考勤为基线并自动确认
//  4. 未分配但有考勤的人员标记为 attended 并自动确认
//  5. 批量加载头像
//
// 只有调用方取消 ctx 时才返回错误
func (a *Aggregator) Build(ctx context.Context, shift ShiftContext) (*Roster, error) {
	if err := shift.validate(); err != nil {
		return nil, err
	}

	var (
		assigned   []Identity
		attendance []AttendanceRecord
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		list, err := a.source.FetchAssignedRoster(egCtx, shift.JobID, shift.LeaderID)
		if err != nil {
			a.logger.Warn("获取项目分配人员失败，按空名单处理",
				zap.String("job_id", shift.JobID), zap.Error(err))
			return nil
		}
		assigned = list
		return nil
	})
	eg.Go(func() error {
		list, err := a.source.FetchAttendanceOverlapping(egCtx, shift.JobID, shift.LeaderID, shift.Start, shift.End)
		if err != nil {
			a.logger.Warn("获取考勤记录失败，按无考勤处理",
				zap.String("job_id", shift.JobID), zap.Error(err))
			return nil
		}
		attendance = list
		return nil
	})
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	roster := NewRoster(shift, a.loc)
	overlapping := a.overlapping(attendance, shift)
	byUser := latestByUser(overlapping)

	assignedSet := make(map[string]struct{}, len(assigned))
	for _, id := range assigned {
		uid := strings.TrimSpace(id.UserID)
		if uid == "" || uid == shift.LeaderID {
			continue
		}
		if _, dup := assignedSet[uid]; dup {
			continue
		}
		assignedSet[uid] = struct{}{}
		id.UserID = uid

		if rec, ok := byUser[uid]; ok {
			m := newMemberFromRecord(rec, SourceAssigned, shift, a.loc)
			if id.DisplayName != "" {
				m.DisplayName = id.DisplayName
			}
			m.AvatarURL = id.AvatarURL
			roster.insert(m)
			continue
		}
		roster.insert(newMemberWithoutEntry(id, SourceAssigned, false, shift, a.loc))
	}

	for _, rec := range overlapping {
		if _, ok := assignedSet[rec.UserID]; ok {
			continue
		}
		if roster.Contains(rec.UserID) {
			continue
		}
		roster.insert(newMemberFromRecord(byUser[rec.UserID], SourceAttended, shift, a.loc))
	}

	a.loadAvatars(ctx, roster, roster.UserIDs())

	a.logger.Debug("核验花名册已生成",
		zap.String("job_id", shift.JobID),
		zap.String("leader_id", shift.LeaderID),
		zap.Int("assigned", len(assignedSet)),
		zap.Int("attendance", len(overlapping)),
		zap.Int("members", roster.Len()),
	)

	return roster, nil
}

// AddMembers 解析目录信息后手动添加成员，返回实际添加人数
// 目录查询失败的身份跳过，不影响其他身份
func (a *Aggregator) AddMembers(ctx context.Context, roster *Roster, userIDs []string) (int, error) {
	leaderID := roster.Shift().LeaderID
	seen := make(map[string]struct{}, len(userIDs))

	var resolved []Identity
	for _, raw := range userIDs {
		uid := strings.TrimSpace(raw)
		if uid == "" || uid == leaderID || roster.Contains(uid) {
			continue
		}
		if _, dup := seen[uid]; dup {
			continue
		}
		seen[uid] = struct{}{}

		entry, err := a.directory.LookupDirectoryEntry(ctx, uid)
		if err != nil {
			if errors.Is(err, ErrUnknownMember) {
				a.logger.Info("目录中不存在该成员，忽略", zap.String("user_id", uid))
			} else {
				a.logger.Warn("查询人员目录失败，忽略该成员", zap.String("user_id", uid), zap.Error(err))
			}
			continue
		}
		id := *entry
		id.UserID = uid
		resolved = append(resolved, id)
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	added := roster.Add(resolved)

	if added > 0 {
		ids := make([]string, 0, len(resolved))
		for _, id := range resolved {
			if id.AvatarURL == "" {
				ids = append(ids, id.UserID)
			}
		}
		a.loadAvatars(ctx, roster, ids)
	}

	return added, nil
}

// overlapping 保留与班次窗口重叠的考勤：上班 <= 班次结束 且 (下班或当前时间) >= 班次开始
func (a *Aggregator) overlapping(records []AttendanceRecord, shift ShiftContext) []AttendanceRecord {
	now := a.now()
	out := make([]AttendanceRecord, 0, len(records))
	for _, rec := range records {
		if rec.UserID == "" || rec.UserID == shift.LeaderID {
			continue
		}
		if rec.ClockIn.After(shift.End) {
			continue
		}
		end := now
		if rec.ClockOut != nil {
			end = *rec.ClockOut
		}
		if end.Before(shift.Start) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// latestByUser 每人只保留上班时间最晚的一条
func latestByUser(records []AttendanceRecord) map[string]AttendanceRecord {
	byUser := make(map[string]AttendanceRecord, len(records))
	for _, rec := range records {
		cur, ok := byUser[rec.UserID]
		if !ok || rec.ClockIn.After(cur.ClockIn) {
			byUser[rec.UserID] = rec
		}
	}
	return byUser
}

func (a *Aggregator) loadAvatars(ctx context.Context, roster *Roster, userIDs []string) {
	if a.metadata == nil || len(userIDs) == 0 {
		return
	}
	avatars, err := a.metadata.FetchDisplayMetadata(ctx, userIDs)
	if err != nil {
		a.logger.Warn("加载成员头像失败，忽略", zap.Int("count", len(userIDs)), zap.Error(err))
		return
	}
	roster.applyAvatars(avatars)
}
