package app

import (
	"context"
	"log/slog"
	"math"
	"time"

	"dental-captcha/internal/model"
	"dental-captcha/internal/repository"
)

// StatsCache is a read-through cache for stats and the leaderboard. Readers
// take the version before loading the database and pass it back on the write;
// writers call Invalidate after commit, which bumps the version so a row loaded
// before the commit is never stored.
type StatsCache interface {
	GetStats(ctx context.Context, userID uint) (*model.UserStats, bool, error)
	StatsVersion(ctx context.Context, userID uint) (int64, error)
	SetStats(ctx context.Context, stats *model.UserStats, version int64) error
	GetLeaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, bool, error)
	LeaderboardVersion(ctx context.Context) (int64, error)
	SetLeaderboard(ctx context.Context, limit int, entries []model.LeaderboardEntry, version int64) error
	Invalidate(ctx context.Context, userID uint) error
}

type StatsService struct {
	store        *repository.Store
	cache        StatsCache
	defaultLimit int
}

func NewStatsService(store *repository.Store, cache StatsCache, defaultLimit int) *StatsService {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	return &StatsService{
		store:        store,
		cache:        cache,
		defaultLimit: defaultLimit,
	}
}

// GetStats returns the user's counters; a user with no annotations gets a
// zero-valued row that is not persisted.
func (s *StatsService) GetStats(ctx context.Context, userID uint) (*model.UserStats, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}

	version, cacheable := s.statsVersion(ctx, userID)
	if cacheable {
		cached, ok, err := s.cache.GetStats(ctx, userID)
		if err != nil {
			slog.WarnContext(ctx, "read stats cache failed", "user_id", userID, "error", err)
		} else if ok {
			return cached, nil
		}
	}

	stats, err := s.store.Stats.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = &model.UserStats{UserID: userID}
	}
	if cacheable {
		if err := s.cache.SetStats(ctx, stats, version); err != nil {
			slog.WarnContext(ctx, "write stats cache failed", "user_id", userID, "error", err)
		}
	}
	return stats, nil
}

// Leaderboard ranks users by total annotations. Ties are broken by user id.
func (s *StatsService) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > 100 {
		limit = 100
	}

	version, cacheable := s.leaderboardVersion(ctx)
	if cacheable {
		cached, ok, err := s.cache.GetLeaderboard(ctx, limit)
		if err != nil {
			slog.WarnContext(ctx, "read leaderboard cache failed", "error", err)
		} else if ok {
			return cached, nil
		}
	}

	top, err := s.store.Stats.Top(ctx, limit)
	if err != nil {
		return nil, err
	}
	userIDs := make([]uint, len(top))
	for i, row := range top {
		userIDs[i] = row.UserID
	}
	users, err := s.store.Users.ListByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}

	entries := make([]model.LeaderboardEntry, len(top))
	for i, row := range top {
		entries[i] = model.LeaderboardEntry{
			Rank:             i + 1,
			UserID:           row.UserID,
			Username:         names[row.UserID],
			TotalAnnotations: row.TotalAnnotations,
			TotalPoints:      row.TotalPoints,
			LastActive:       row.LastActive,
		}
	}
	if cacheable {
		if err := s.cache.SetLeaderboard(ctx, limit, entries, version); err != nil {
			slog.WarnContext(ctx, "write leaderboard cache failed", "error", err)
		}
	}
	return entries, nil
}

type UserReport struct {
	Stats []model.UserAnnotationReport `json:"stats"`
	Meta  UserReportMeta               `json:"meta"`
}

type UserReportMeta struct {
	UsersInReport int   `json:"total_users_in_stats"`
	TotalUsers    int64 `json:"total_users"`
	OptedInUsers  int64 `json:"opted_in_users"`
}

// UserReport aggregates answers of users who consented to data use. Accuracy
// is correct over all attempts, ungraded ones included, as a percentage.
func (s *StatsService) UserReport(ctx context.Context) (*UserReport, error) {
	rows, err := s.store.Annotations.ReportByUser(ctx)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].TotalAttempts > 0 {
			rows[i].AccuracyPercentage = round2(float64(rows[i].CorrectAnswers) / float64(rows[i].TotalAttempts) * 100)
		}
		rows[i].AvgTimeSpent = round2(rows[i].AvgTimeSpent)
	}
	if rows == nil {
		rows = []model.UserAnnotationReport{}
	}

	total, err := s.store.Users.Count(ctx, false)
	if err != nil {
		return nil, err
	}
	optedIn, err := s.store.Users.Count(ctx, true)
	if err != nil {
		return nil, err
	}
	return &UserReport{
		Stats: rows,
		Meta: UserReportMeta{
			UsersInReport: len(rows),
			TotalUsers:    total,
			OptedInUsers:  optedIn,
		},
	}, nil
}

// Reconcile recounts the user's annotations from the ledger and overwrites
// total_annotations. It reports whether the stored counter was off.
func (s *StatsService) Reconcile(ctx context.Context, userID uint) (bool, error) {
	if userID == 0 {
		return false, ErrInvalidInput
	}
	var drifted bool
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		count, err := tx.Annotations.CountByUserID(ctx, userID)
		if err != nil {
			return err
		}
		current, err := tx.Stats.GetByUserID(ctx, userID)
		if err != nil {
			return err
		}
		stored := int64(0)
		if current != nil {
			stored = int64(current.TotalAnnotations)
		}
		if stored == count {
			return nil
		}
		drifted = true
		return tx.Stats.SetTotalAnnotations(ctx, userID, count, time.Now())
	})
	if err != nil {
		return false, err
	}
	if drifted && s.cache != nil {
		if err := s.cache.Invalidate(ctx, userID); err != nil {
			slog.WarnContext(ctx, "invalidate stats cache failed", "user_id", userID, "error", err)
		}
	}
	return drifted, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// statsVersion reports false when there is no cache or its version cannot be
// read; the caller then neither reads nor fills it.
func (s *StatsService) statsVersion(ctx context.Context, userID uint) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	version, err := s.cache.StatsVersion(ctx, userID)
	if err != nil {
		slog.WarnContext(ctx, "read stats cache version failed", "user_id", userID, "error", err)
		return 0, false
	}
	return version, true
}

func (s *StatsService) leaderboardVersion(ctx context.Context) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	version, err := s.cache.LeaderboardVersion(ctx)
	if err != nil {
		slog.WarnContext(ctx, "read leaderboard cache version failed", "error", err)
		return 0, false
	}
	return version, true
}
