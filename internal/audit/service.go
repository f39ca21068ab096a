package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/odyssey-erp/campus/internal/session"
)

// MaxPage adalah halaman tertinggi yang dilayani timeline.
const MaxPage = 100000

// Repository menyediakan akses penyimpanan riwayat login.
type Repository interface {
	InsertLogin(ctx context.Context, row TimelineRow) error
	LoginTimeline(ctx context.Context, params TimelineParams) ([]TimelineRow, error)
	PruneLogins(ctx context.Context, before time.Time) (int64, error)
}

// Service mengoordinasikan pencatatan dan pengambilan riwayat login.
type Service struct {
	repo Repository
}

// NewService membuat service audit baru.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RecordLogin persists one login activity record. Replays of the same session
// are ignored by the repository.
func (s *Service) RecordLogin(ctx context.Context, activity session.LoginActivity) error {
	if s.repo == nil {
		return fmt.Errorf("audit: repository not configured")
	}
	if activity.SessionID == "" || activity.UserID == "" {
		return errors.New("audit: login activity requires session and user")
	}
	return s.repo.InsertLogin(ctx, TimelineRow{
		SessionID: activity.SessionID,
		UserID:    activity.UserID,
		Email:     activity.Email,
		Role:      string(activity.Role),
		LoginTime: activity.LoginTime.UTC(),
		UserAgent: activity.UserAgent,
		IPAddress: activity.IPAddress,
	})
}

// Timeline mengambil riwayat login dengan paging.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := min(filters.Page, MaxPage)
	if page <= 0 {
		page = 1
	}
	rows, err := s.repo.LoginTimeline(ctx, TimelineParams{
		From:   filters.From,
		To:     filters.To,
		UserID: strings.TrimSpace(filters.UserID),
		Role:   strings.TrimSpace(filters.Role),
		Offset: (page - 1) * pageSize,
		Limit:  pageSize + 1,
	})
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Export mengambil seluruh riwayat login tanpa paging.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	return s.repo.LoginTimeline(ctx, TimelineParams{
		From:   filters.From,
		To:     filters.To,
		UserID: strings.TrimSpace(filters.UserID),
		Role:   strings.TrimSpace(filters.Role),
	})
}

// Prune deletes records older than retention and returns how many went.
func (s *Service) Prune(ctx context.Context, now time.Time, retention time.Duration) (int64, error) {
	if s.repo == nil {
		return 0, fmt.Errorf("audit: repository not configured")
	}
	if retention <= 0 {
		return 0, errors.New("audit: retention must be positive")
	}
	return s.repo.PruneLogins(ctx, now.Add(-retention))
}
