package audit

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/campus/internal/rbac"
	"github.com/odyssey-erp/campus/internal/session"
)

type fakeRepo struct {
	inserted   []TimelineRow
	rows       []TimelineRow
	lastParams TimelineParams
	pruneAt    time.Time
	err        error
}

func (f *fakeRepo) InsertLogin(_ context.Context, row TimelineRow) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, row)
	return nil
}

func (f *fakeRepo) LoginTimeline(_ context.Context, p TimelineParams) ([]TimelineRow, error) {
	f.lastParams = p
	if f.err != nil {
		return nil, f.err
	}
	rows := f.rows
	if p.Offset < len(rows) {
		rows = rows[p.Offset:]
	} else {
		rows = nil
	}
	if p.Limit > 0 && len(rows) > p.Limit {
		rows = rows[:p.Limit]
	}
	return rows, nil
}

func (f *fakeRepo) PruneLogins(_ context.Context, before time.Time) (int64, error) {
	f.pruneAt = before
	return 3, f.err
}

func makeRows(n int) []TimelineRow {
	rows := make([]TimelineRow, n)
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := range rows {
		rows[i] = TimelineRow{
			SessionID: fmt.Sprintf("session_%d", i),
			UserID:    "u-1",
			Email:     "dina@campus.test",
			Role:      "faculty",
			LoginTime: base.Add(-time.Duration(i) * time.Hour),
		}
	}
	return rows
}

func TestServiceTimelinePaging(t *testing.T) {
	repo := &fakeRepo{rows: makeRows(45)}
	svc := NewService(repo)

	res, err := svc.Timeline(context.Background(), TimelineFilters{Page: 1, PageSize: 20, UserID: " u-1 "})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 20)
	assert.True(t, res.Paging.HasNext)
	assert.Equal(t, 2, res.Paging.NextPage)
	assert.Zero(t, res.Paging.PrevPage)
	assert.Equal(t, 21, repo.lastParams.Limit)
	assert.Equal(t, "u-1", repo.lastParams.UserID)

	res, err = svc.Timeline(context.Background(), TimelineFilters{Page: 3, PageSize: 20})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 5)
	assert.False(t, res.Paging.HasNext)
	assert.Equal(t, 2, res.Paging.PrevPage)
	assert.Equal(t, 40, repo.lastParams.Offset)
}

func TestServiceTimelineClampsPageSize(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	res, err := svc.Timeline(context.Background(), TimelineFilters{PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 50, res.Paging.PageSize)
	assert.Equal(t, 1, res.Paging.Page)
	assert.Empty(t, res.Rows)
}

func TestServiceTimelineClampsPage(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	res, err := svc.Timeline(context.Background(), TimelineFilters{Page: math.MaxInt, PageSize: 50})
	require.NoError(t, err)
	assert.Equal(t, MaxPage, res.Paging.Page)
	assert.Equal(t, (MaxPage-1)*50, repo.lastParams.Offset)
	assert.Positive(t, repo.lastParams.Offset)
}

func TestServiceRecordLogin(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	loginAt := time.Date(2026, 3, 1, 9, 30, 0, 0, time.FixedZone("WIB", 7*3600))

	err := svc.RecordLogin(context.Background(), session.LoginActivity{
		UserID:    "u-7",
		Email:     "rudi@campus.test",
		Role:      rbac.RoleHOD,
		LoginTime: loginAt,
		SessionID: "session_abc",
		UserAgent: "Mozilla/5.0",
		IPAddress: "10.0.0.8",
	})
	require.NoError(t, err)
	require.Len(t, repo.inserted, 1)
	row := repo.inserted[0]
	assert.Equal(t, "hod", row.Role)
	assert.Equal(t, time.UTC, row.LoginTime.Location())
	assert.True(t, loginAt.Equal(row.LoginTime))

	err = svc.RecordLogin(context.Background(), session.LoginActivity{UserID: "u-7"})
	assert.Error(t, err)
}

func TestServicePrune(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	n, err := svc.Prune(context.Background(), now, 90*24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.Equal(t, now.Add(-90*24*time.Hour), repo.pruneAt)

	_, err = svc.Prune(context.Background(), now, 0)
	assert.Error(t, err)
}

func TestServiceWithoutRepository(t *testing.T) {
	svc := NewService(nil)
	_, err := svc.Timeline(context.Background(), TimelineFilters{})
	assert.Error(t, err)
	assert.Error(t, svc.RecordLogin(context.Background(), session.LoginActivity{}))
}

func TestServicePropagatesRepositoryError(t *testing.T) {
	boom := errors.New("boom")
	svc := NewService(&fakeRepo{err: boom})
	_, err := svc.Export(context.Background(), TimelineFilters{})
	assert.ErrorIs(t, err, boom)
}

func TestWriteCSV(t *testing.T) {
	rows := makeRows(2)
	rows[1].UserAgent = `agent, "quoted"`

	out, err := WriteCSV(rows)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(out))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "login_time", records[0][0])
	assert.Equal(t, "2026-03-01T08:00:00Z", records[1][0])
	assert.Equal(t, `agent, "quoted"`, records[2][6])
}
