package crew

import (
	"fmt"
	"strings"
	"time"

	"crewcheck/backend/pkg/clock"
)

// ChangeKind 花名册变更类型
type ChangeKind string

const (
	ChangeTime      ChangeKind = "time"
	ChangeBreak     ChangeKind = "break"
	ChangeConfirmed ChangeKind = "confirmed"
	ChangeAdded     ChangeKind = "added"
	ChangeAvatars   ChangeKind = "avatars"
)

// Change 一次花名册变更，通过 OnChange 回调通知展示层
type Change struct {
	Kind    ChangeKind
	UserIDs []string
}

// Roster 去重后的核验花名册
// 成员顺序即展示与提交顺序：分配人员 → 仅考勤人员 → 手动添加
type Roster struct {
	shift    ShiftContext
	loc      *time.Location
	members  []*CrewMember
	index    map[string]*CrewMember
	onChange func(Change)
}

// NewRoster 创建空花名册
func NewRoster(shift ShiftContext, loc *time.Location) *Roster {
	if loc == nil {
		loc = time.Local
	}
	return &Roster{
		shift: shift,
		loc:   loc,
		index: make(map[string]*CrewMember),
	}
}

// Shift 班次窗口
func (r *Roster) Shift() ShiftContext { return r.shift }

// Location 花名册使用的时区
func (r *Roster) Location() *time.Location { return r.loc }

// Len 成员数
func (r *Roster) Len() int { return len(r.members) }

// OnChange 注册变更回调（覆盖旧回调）
func (r *Roster) OnChange(fn func(Change)) { r.onChange = fn }

// Contains 是否已包含该成员
func (r *Roster) Contains(userID string) bool {
	_, ok := r.index[userID]
	return ok
}

// Members 返回成员快照（按花名册顺序）
func (r *Roster) Members() []CrewMember {
	out := make([]CrewMember, len(r.members))
	for i, m := range r.members {
		out[i] = *m
	}
	return out
}

// Member 返回单个成员快照
func (r *Roster) Member(userID string) (CrewMember, bool) {
	m, ok := r.index[userID]
	if !ok {
		return CrewMember{}, false
	}
	return *m, true
}

// EditTime 修改上班或下班时间并重新计算 Edited
func (r *Roster) EditTime(userID string, field Field, value string) error {
	m, ok := r.index[userID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMemberNotFound, userID)
	}

	normalized, err := clock.Normalize(value)
	if err != nil {
		return err
	}

	switch field {
	case FieldClockIn:
		m.EditedClockIn = normalized
	case FieldClockOut:
		m.EditedClockOut = normalized
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	m.Touched = true
	m.recomputeEdited()
	r.notify(ChangeTime, userID)
	return nil
}

// SetBreakMinutes 修改休息时长（不影响 Edited）
func (r *Roster) SetBreakMinutes(userID string, minutes int) error {
	m, ok := r.index[userID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMemberNotFound, userID)
	}
	if minutes < 0 || minutes > maxBreakMinutes {
		return fmt.Errorf("%w: %d", ErrInvalidBreak, minutes)
	}

	m.BreakMinutes = minutes
	r.notify(ChangeBreak, userID)
	return nil
}

// MemberEdit 一次请求内对同一成员的修改，nil 字段保持不变
type MemberEdit struct {
	ClockIn      *string
	ClockOut     *string
	BreakMinutes *int
}

// ApplyEdit 先校验全部字段再写入，只触发一次变更回调
// 含时间字段时按 ChangeTime 通知，仅改休息时长时按 ChangeBreak 通知
func (r *Roster) ApplyEdit(userID string, edit MemberEdit) error {
	m, ok := r.index[userID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMemberNotFound, userID)
	}

	var in, out string
	var err error
	if edit.ClockIn != nil {
		if in, err = clock.Normalize(*edit.ClockIn); err != nil {
			return err
		}
	}
	if edit.ClockOut != nil {
		if out, err = clock.Normalize(*edit.ClockOut); err != nil {
			return err
		}
	}
	if edit.BreakMinutes != nil && (*edit.BreakMinutes < 0 || *edit.BreakMinutes > maxBreakMinutes) {
		return fmt.Errorf("%w: %d", ErrInvalidBreak, *edit.BreakMinutes)
	}

	timeChanged := edit.ClockIn != nil || edit.ClockOut != nil
	if edit.ClockIn != nil {
		m.EditedClockIn = in
	}
	if edit.ClockOut != nil {
		m.EditedClockOut = out
	}
	if timeChanged {
		m.Touched = true
		m.recomputeEdited()
	}
	if edit.BreakMinutes != nil {
		m.BreakMinutes = *edit.BreakMinutes
	}

	switch {
	case timeChanged:
		r.notify(ChangeTime, userID)
	case edit.BreakMinutes != nil:
		r.notify(ChangeBreak, userID)
	}
	return nil
}

// ToggleConfirmed 切换确认状态，返回切换后的值
func (r *Roster) ToggleConfirmed(userID string) (bool, error) {
	m, ok := r.index[userID]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrMemberNotFound, userID)
	}

	m.Confirmed = !m.Confirmed
	r.notify(ChangeConfirmed, userID)
	return m.Confirmed, nil
}

// Add 手动添加成员，已在名单中或为带班人本人的忽略，返回实际添加人数
func (r *Roster) Add(identities []Identity) int {
	var added []string
	for _, id := range identities {
		uid := strings.TrimSpace(id.UserID)
		if uid == "" || uid == r.shift.LeaderID || r.Contains(uid) {
			continue
		}
		id.UserID = uid
		r.insert(newMemberWithoutEntry(id, SourceAdded, true, r.shift, r.loc))
		added = append(added, uid)
	}
	if len(added) > 0 {
		r.notify(ChangeAdded, added...)
	}
	return len(added)
}

// applyAvatars 合并头像（仅展示用）
func (r *Roster) applyAvatars(avatars map[string]string) {
	var changed []string
	for uid, url := range avatars {
		m, ok := r.index[uid]
		if !ok || url == "" || m.AvatarURL == url {
			continue
		}
		m.AvatarURL = url
		changed = append(changed, uid)
	}
	if len(changed) > 0 {
		r.notify(ChangeAvatars, changed...)
	}
}

// UserIDs 全部成员 ID（按花名册顺序）
func (r *Roster) UserIDs() []string {
	ids := make([]string, len(r.members))
	for i, m := range r.members {
		ids[i] = m.UserID
	}
	return ids
}

// insert 写入成员；同一身份只保留第一次写入
func (r *Roster) insert(m *CrewMember) bool {
	if _, exists := r.index[m.UserID]; exists {
		return false
	}
	r.members = append(r.members, m)
	r.index[m.UserID] = m
	return true
}

func (r *Roster) notify(kind ChangeKind, userIDs ...string) {
	if r.onChange != nil {
		r.onChange(Change{Kind: kind, UserIDs: userIDs})
	}
}
