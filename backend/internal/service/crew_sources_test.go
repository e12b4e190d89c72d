package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"crewcheck/backend/internal/crew"
	"crewcheck/backend/internal/model"
)

func TestRepoDirectory_UnknownMember(t *testing.T) {
	repo, m := newMockRepos()
	m.user.users["u-1"] = &model.User{UserID: "u-1", Name: "张三", AvatarURL: "a.png"}
	dir := &repoDirectory{repo: repo}

	id, err := dir.LookupDirectoryEntry(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("LookupDirectoryEntry 应成功: %v", err)
	}
	if id.DisplayName != "张三" || id.AvatarURL != "a.png" {
		t.Errorf("目录信息错误: %+v", id)
	}

	_, err = dir.LookupDirectoryEntry(context.Background(), "u-404")
	if !errors.Is(err, crew.ErrUnknownMember) {
		t.Errorf("期望 crew.ErrUnknownMember，实际: %v", err)
	}
}

func TestRepoRosterSource_MapsEntries(t *testing.T) {
	repo, m := newMockRepos()
	m.user.users["u-1"] = &model.User{UserID: "u-1", Name: "张三"}
	m.timeEntry.add("te-1", "job-1", "u-1", hm("08:00"), nil)
	m.timeEntry.add("te-2", "job-1", "u-1", hm("18:00"), hmPtr("19:00"))
	m.timeEntry.add("te-0", "job-1", "u-1", hm("05:00"), hmPtr("07:00"))
	src := &repoRosterSource{repo: repo}

	recs, err := src.FetchAttendanceOverlapping(context.Background(), "job-1", "leader", hm("08:00"), hm("16:00"))
	if err != nil {
		t.Fatalf("FetchAttendanceOverlapping 应成功: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("期望只返回与窗口重叠的 1 条记录，实际=%d", len(recs))
	}
	if recs[0].DisplayName != "张三" || recs[0].ClockOut != nil || recs[0].Status != model.TimeEntryOpen {
		t.Errorf("考勤映射错误: %+v", recs[0])
	}
}

func TestCachedMetadataSource_NilCacheFallsBackToDB(t *testing.T) {
	users := newMockUserRepo()
	users.users["u-1"] = &model.User{UserID: "u-1", AvatarURL: "1.png"}
	src := &cachedMetadataSource{cache: nil, users: users, ttl: time.Minute, logger: zap.NewNop()}

	got, err := src.FetchDisplayMetadata(context.Background(), []string{"u-1", "u-2"})
	if err != nil {
		t.Fatalf("FetchDisplayMetadata 应成功: %v", err)
	}
	if got["u-1"] != "1.png" {
		t.Errorf("期望u-1头像=1.png，实际=%q", got["u-1"])
	}
	if _, ok := got["u-2"]; ok {
		t.Error("不存在的用户不应出现在结果中")
	}
	if len(users.listByCalls) != 1 || len(users.listByCalls[0]) != 2 {
		t.Errorf("期望一次批量查询 2 个 ID，实际 %v", users.listByCalls)
	}
}

func TestCachedMetadataSource_DBError(t *testing.T) {
	users := newMockUserRepo()
	users.listErr = errMockDB
	src := &cachedMetadataSource{users: users, ttl: time.Minute, logger: zap.NewNop()}

	if _, err := src.FetchDisplayMetadata(context.Background(), []string{"u-1"}); !errors.Is(err, errMockDB) {
		t.Errorf("期望返回数据库错误，实际: %v", err)
	}
}
