package crew

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestAggregator(src RosterSource, meta MetadataSource, dir Directory) *Aggregator {
	return NewAggregator(src, meta, dir, testLoc, zap.NewNop()).
		WithNow(func() time.Time { return at("17:00") })
}

func TestBuild_DedupPrefersAttendanceBaseline(t *testing.T) {
	src := &fakeSource{
		assigned: []Identity{{UserID: "u-a", DisplayName: "Alice"}},
		attendance: []AttendanceRecord{
			record("te-a", "u-a", "Alice", "08:10", "16:00"),
		},
	}

	roster, err := newTestAggregator(src, nil, nil).Build(context.Background(), testShift)
	require.NoError(t, err)
	require.Equal(t, 1, roster.Len())

	m, ok := roster.Member("u-a")
	require.True(t, ok)
	require.Equal(t, SourceAssigned, m.Source)
	require.True(t, m.HasTimeEntry)
	require.False(t, m.IsNewEntry)
	require.Equal(t, "te-a", m.TimeEntryID)
	require.True(t, m.OriginalClockIn.Equal(at("08:10")))
	require.True(t, m.OriginalClockOut.Equal(at("16:00")))
	require.Equal(t, "08:10", m.EditedClockIn)
	require.Equal(t, "16:00", m.EditedClockOut)
	require.False(t, m.Edited)
}

func TestBuild_ConfirmDefaults(t *testing.T) {
	src := &fakeSource{
		assigned: []Identity{
			{UserID: "u-with", DisplayName: "With Entry"},
			{UserID: "u-without", DisplayName: "No Entry"},
		},
		attendance: []AttendanceRecord{
			record("te-1", "u-with", "With Entry", "08:00", "16:00"),
			record("te-2", "u-extra", "Walk In", "09:00", "15:00"),
		},
	}

	roster, err := newTestAggregator(src, nil, nil).Build(context.Background(), testShift)
	require.NoError(t, err)

	type view struct {
		UserID    string
		Source    Source
		Confirmed bool
		HasEntry  bool
	}
	var got []view
	for _, m := range roster.Members() {
		got = append(got, view{m.UserID, m.Source, m.Confirmed, m.HasTimeEntry})
	}
	want := []view{
		{"u-with", SourceAssigned, true, true},
		{"u-without", SourceAssigned, false, false},
		{"u-extra", SourceAttended, true, true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("花名册不符 (-want +got):\n%s", diff)
	}
}

func TestBuild_AssignedWithoutEntryDefaultsToLeaderWindow(t *testing.T) {
	src := &fakeSource{assigned: []Identity{{UserID: "u-b", DisplayName: "Bob"}}}

	roster, err := newTestAggregator(src, nil, nil).Build(context.Background(), testShift)
	require.NoError(t, err)

	m, _ := roster.Member("u-b")
	require.Equal(t, "08:00", m.EditedClockIn)
	require.Equal(t, "16:00", m.EditedClockOut)
	require.Equal(t, 0, m.BreakMinutes)
	require.True(t, m.IsNewEntry)
	require.True(t, m.Edited, "无基线成员始终视为已修改")
	require.Nil(t, m.OriginalClockIn)
}

func TestBuild_OverlapNotContainedStillMerged(t *testing.T) {
	// 比带班人更早上班、更晚下班
	src := &fakeSource{
		assigned:   []Identity{{UserID: "u-a", DisplayName: "Alice"}},
		attendance: []AttendanceRecord{record("te-a", "u-a", "Alice", "06:30", "17:15")},
	}

	roster, err := newTestAggregator(src, nil, nil).Build(context.Background(), testShift)
	require.NoError(t, err)

	m, _ := roster.Member("u-a")
	require.True(t, m.HasTimeEntry)
	require.True(t, m.Confirmed)
	require.Equal(t, "06:30", m.EditedClockIn)
	require.Equal(t, "17:15", m.EditedClockOut)
}

func TestBuild_NonOverlappingAttendanceFallsBackToNoEntry(t *testing.T) {
	// 同一项目当天更早的另一班，已在带班人上班前结束
	src := &fakeSource{
		assigned: []Identity{{UserID: "u-a", DisplayName: "Alice"}},
		attendance: []AttendanceRecord{
			record("te-early", "u-a", "Alice", "02:00", "06:00"),
			record("te-other", "u-x", "Xavier", "03:00", "07:59"),
		},
	}

	roster, err := newTestAggregator(src, nil, nil).Build(context.Background(), testShift)
	require.NoError(t, err)
	require.Equal(t, 1, roster.Len(), "不重叠的仅考勤人员不应出现")

	m, _ := roster.Member("u-a")
	require.False(t, m.HasTimeEntry)
	require.False(t, m.Confirmed)
	require.Empty(t, m.TimeEntryID)
}

func TestBuild_OverlapBoundaryIsInclusive(t *testing.T) {
	src := &fakeSource{
		attendance: []AttendanceRecord{
			record("te-1", "u-end-at-start", "A", "06:00", "08:00"),
			record("te-2", "u-start-at-end", "B", "16:00", "18:00"),
		},
	}

	roster, err := newTestAggregator(src, nil, nil).Build(context.Background(), testShift)
	require.NoError(t, err)
	require.True(t, roster.Contains("u-end-at-start"))
	require.True(t, roster.Contains("u-start-at-end"))
}

func TestBuild_OpenEntryUsesNowAndShiftEnd(t *testing.T) {
	src := &fakeSource{
		attendance: []AttendanceRecord{record("te-open", "u-open", "Still Here", "07:00", "")},
	}

	roster, err := newTestAggregator(src, nil, nil).Build(context.Background(), testShift)
	require.NoError(t, err)

	m, ok := roster.Member("u-open")
	require.True(t, ok)
	require.Nil(t, m.OriginalClockOut)
	require.Equal(t, "16:00", m.EditedClockOut)
	require.False(t, m.Edited)
}

func TestBuild_LatestRecordPerUserWins(t *testing.T) {
	src := &fakeSource{
		attendance: []AttendanceRecord{
			record("te-first", "u-a", "Alice", "08:00", "11:00"),
			record("te-second", "u-a", "Alice", "12:00", "16:00"),
		},
	}

	roster, err := newTestAggregator(src, nil, nil).Build(context.Background(), testShift)
	require.NoError(t, err)
	require.Equal(t, 1, roster.Len())

	m, _ := roster.Member("u-a")
	require.Equal(t, "te-second", m.TimeEntryID)
	require.Equal(t, "12:00", m.EditedClockIn)
}

func TestBuild_ExcludesLeaderAndDuplicates(t *testing.T) {
	src := &fakeSource{
		assigned: []Identity{
			{UserID: "leader", DisplayName: "Lead"},
			{UserID: "u-a", DisplayName: "Alice"},
			{UserID: "u-a", DisplayName: "Alice again"},
		},
		attendance: []AttendanceRecord{record("te-l", "leader", "Lead", "08:00", "16:00")},
	}

	roster, err := newTestAggregator(src, nil, nil).Build(context.Background(), testShift)
	require.NoError(t, err)
	require.Equal(t, []string{"u-a"}, roster.UserIDs())
	require.Equal(t, []string{"leader", "leader"}, src.gotExclude)
	require.True(t, src.gotWindowEnd.Equal(testShift.End))
}

func TestBuild_SourceFailuresDegrade(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	src := &fakeSource{
		assignedErr: errBackend,
		attendance:  []AttendanceRecord{record("te-c", "u-c", "Carol", "07:45", "16:05")},
	}
	meta := &fakeMetadata{err: errBackend}

	agg := NewAggregator(src, meta, nil, testLoc, zap.New(core)).WithNow(func() time.Time { return at("17:00") })
	roster, err := agg.Build(context.Background(), testShift)
	require.NoError(t, err)
	require.Equal(t, []string{"u-c"}, roster.UserIDs())

	m, _ := roster.Member("u-c")
	require.Equal(t, SourceAttended, m.Source)
	require.Empty(t, m.AvatarURL)
	require.Equal(t, 2, logs.Len(), "分配人员与头像失败各记录一次告警")
}

func TestBuild_AllSourcesFailYieldsEmptyRoster(t *testing.T) {
	src := &fakeSource{assignedErr: errBackend, attendanceErr: errBackend}

	roster, err := newTestAggregator(src, nil, nil).Build(context.Background(), testShift)
	require.NoError(t, err)
	require.Zero(t, roster.Len())
}

func TestBuild_LoadsAvatarsForUnion(t *testing.T) {
	src := &fakeSource{
		assigned:   []Identity{{UserID: "u-a", DisplayName: "Alice"}},
		attendance: []AttendanceRecord{record("te-c", "u-c", "Carol", "09:00", "15:00")},
	}
	meta := &fakeMetadata{avatars: map[string]string{"u-a": "https://cdn/a.png", "u-c": "https://cdn/c.png"}}

	roster, err := newTestAggregator(src, meta, nil).Build(context.Background(), testShift)
	require.NoError(t, err)
	require.Len(t, meta.calls, 1)
	require.ElementsMatch(t, []string{"u-a", "u-c"}, meta.calls[0])

	a, _ := roster.Member("u-a")
	c, _ := roster.Member("u-c")
	require.Equal(t, "https://cdn/a.png", a.AvatarURL)
	require.Equal(t, "https://cdn/c.png", c.AvatarURL)
}

func TestBuild_InvalidShift(t *testing.T) {
	agg := newTestAggregator(&fakeSource{}, nil, nil)

	bad := testShift
	bad.LeaderID = ""
	_, err := agg.Build(context.Background(), bad)
	require.ErrorIs(t, err, ErrInvalidShift)

	bad = testShift
	bad.End = bad.Start.Add(-time.Minute)
	_, err = agg.Build(context.Background(), bad)
	require.ErrorIs(t, err, ErrInvalidShift)
}

func TestBuild_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestAggregator(&fakeSource{}, nil, nil).Build(ctx, testShift)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestAddMembers_ResolvesDirectoryAndSkipsUnknown(t *testing.T) {
	src := &fakeSource{assigned: []Identity{{UserID: "u-a", DisplayName: "Alice"}}}
	dir := &fakeDirectory{
		entries: map[string]string{"u-d": "Dave", "u-e": "Erin", "u-a": "Alice"},
		failing: map[string]bool{"u-broken": true},
	}
	meta := &fakeMetadata{avatars: map[string]string{"u-d": "https://cdn/d.png"}}

	agg := newTestAggregator(src, meta, dir)
	roster, err := agg.Build(context.Background(), testShift)
	require.NoError(t, err)

	added, err := agg.AddMembers(context.Background(), roster,
		[]string{"u-d", "u-d", "u-a", "leader", "u-ghost", "u-broken", " u-e "})
	require.NoError(t, err)
	require.Equal(t, 2, added)
	require.Equal(t, []string{"u-a", "u-d", "u-e"}, roster.UserIDs())

	d, _ := roster.Member("u-d")
	require.Equal(t, "Dave", d.DisplayName)
	require.Equal(t, SourceAdded, d.Source)
	require.Equal(t, "https://cdn/d.png", d.AvatarURL)
}
