package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"dental-captcha/internal/metrics"
	"dental-captcha/internal/model"
	"dental-captcha/internal/repository"
	"dental-captcha/internal/testutil"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []model.SessionEvent
	err    error
}

func (p *fakePublisher) PublishSessionEvent(_ context.Context, event model.SessionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) Events() []model.SessionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.SessionEvent(nil), p.events...)
}

// memoryStatsCache is an in-process StatsCache with the same versioned-write
// contract as the Redis one.
type memoryStatsCache struct {
	mu                 sync.Mutex
	stats              map[uint]model.UserStats
	leaderboards       map[int][]model.LeaderboardEntry
	versions           map[uint]int64
	leaderboardVersion int64
	invalidations      int
	droppedWrites      int
}

func newMemoryStatsCache() *memoryStatsCache {
	return &memoryStatsCache{
		stats:        make(map[uint]model.UserStats),
		leaderboards: make(map[int][]model.LeaderboardEntry),
		versions:     make(map[uint]int64),
	}
}

func (c *memoryStatsCache) GetStats(_ context.Context, userID uint) (*model.UserStats, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats, ok := c.stats[userID]
	if !ok {
		return nil, false, nil
	}
	return &stats, true, nil
}

func (c *memoryStatsCache) StatsVersion(_ context.Context, userID uint) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[userID], nil
}

func (c *memoryStatsCache) SetStats(_ context.Context, stats *model.UserStats, version int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[stats.UserID] != version {
		c.droppedWrites++
		return nil
	}
	c.stats[stats.UserID] = *stats
	return nil
}

func (c *memoryStatsCache) GetLeaderboard(_ context.Context, limit int) ([]model.LeaderboardEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries, ok := c.leaderboards[limit]
	return entries, ok, nil
}

func (c *memoryStatsCache) LeaderboardVersion(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.leaderboardVersion, nil
}

func (c *memoryStatsCache) SetLeaderboard(_ context.Context, limit int, entries []model.LeaderboardEntry, version int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.leaderboardVersion != version {
		c.droppedWrites++
		return nil
	}
	c.leaderboards[limit] = entries
	return nil
}

func (c *memoryStatsCache) Invalidate(_ context.Context, userID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[userID]++
	c.leaderboardVersion++
	delete(c.stats, userID)
	c.leaderboards = make(map[int][]model.LeaderboardEntry)
	c.invalidations++
	return nil
}

// racingStatsCache runs beforeSet ahead of the first write it forwards, which
// puts a commit between the reader's database load and its cache fill.
type racingStatsCache struct {
	*memoryStatsCache
	once      sync.Once
	beforeSet func()
}

func (c *racingStatsCache) SetStats(ctx context.Context, stats *model.UserStats, version int64) error {
	c.once.Do(c.beforeSet)
	return c.memoryStatsCache.SetStats(ctx, stats, version)
}

func (c *racingStatsCache) SetLeaderboard(ctx context.Context, limit int, entries []model.LeaderboardEntry, version int64) error {
	c.once.Do(c.beforeSet)
	return c.memoryStatsCache.SetLeaderboard(ctx, limit, entries, version)
}

type testEnv struct {
	store       *repository.Store
	catalog     *Catalog
	sessions    *SessionService
	annotations *AnnotationService
	stats       *StatsService
	publisher   *fakePublisher
	cache       *memoryStatsCache
	metrics     *metrics.Metrics
}

func newTestEnv(t *testing.T, images, questions int) *testEnv {
	t.Helper()
	store := testutil.NewStore(t)
	testutil.SeedImages(t, store, images)
	testutil.SeedQuestions(t, store, questions)

	env := &testEnv{
		store:     store,
		catalog:   NewCatalog(store, nil),
		publisher: &fakePublisher{},
		cache:     newMemoryStatsCache(),
		metrics:   metrics.New(),
	}
	env.sessions = NewSessionService(store, env.catalog, env.cache, env.metrics)
	env.annotations = NewAnnotationService(store, env.publisher, env.cache, env.metrics)
	env.stats = NewStatsService(store, env.cache, 20)

	clock := newTestClock()
	env.sessions.now = clock.Now
	env.annotations.now = clock.Now
	return env
}

// withQuestionCount pins the number of questions drawn per session.
func (e *testEnv) withQuestionCount(n int) *testEnv {
	e.sessions.questionCount = func() int { return n }
	return e
}

func (e *testEnv) user(t *testing.T, name string) *model.User {
	t.Helper()
	return testutil.SeedUser(t, e.store, name)
}

// testClock hands out strictly increasing timestamps one second apart.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func imageIDs(view *SessionView) []uint {
	ids := make([]uint, len(view.Images))
	for i, img := range view.Images {
		ids[i] = img.ID
	}
	return ids
}

func ptrFloat(v float64) *float64 { return &v }
