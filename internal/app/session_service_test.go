package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dental-captcha/internal/model"
)

func TestCreateSessionShape(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 12, 8)
	alice := env.user(t, "alice")

	counts := make(map[int]int)
	for i := 0; i < 40; i++ {
		view, err := env.sessions.CreateSession(ctx, alice.ID)
		require.NoError(t, err)

		require.Len(t, view.Images, ImagesPerSession)
		require.GreaterOrEqual(t, len(view.Questions), MinQuestionsPerSession)
		require.LessOrEqual(t, len(view.Questions), MaxQuestionsPerSession)
		counts[len(view.Questions)]++

		assert.False(t, view.IsCompleted)
		assert.Nil(t, view.CompletedAt)
		assert.False(t, view.StartedAt.IsZero())

		imageBindings, err := env.store.Sessions.ListImageBindings(ctx, view.ID)
		require.NoError(t, err)
		require.Len(t, imageBindings, ImagesPerSession)
		for j, b := range imageBindings {
			assert.Equal(t, j+1, b.ImageOrder)
			assert.Equal(t, view.Images[j].ID, b.ImageID)
			assert.Equal(t, j+1, view.Images[j].Order)
		}

		questionBindings, err := env.store.Sessions.ListQuestionBindings(ctx, view.ID)
		require.NoError(t, err)
		require.Len(t, questionBindings, len(view.Questions))
		for j, b := range questionBindings {
			assert.Equal(t, j+1, b.QuestionOrder)
			assert.Equal(t, view.Questions[j].ID, b.QuestionID)
		}
	}
	assert.Greater(t, len(counts), 1, "question count should vary between sessions")
}

func TestCreateSessionInsufficientImages(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 3, 5)
	alice := env.user(t, "alice")

	_, err := env.sessions.CreateSession(ctx, alice.ID)
	require.ErrorIs(t, err, ErrInsufficientInventory)

	assertRowCount(t, env, &model.Session{}, 0)
	assertRowCount(t, env, &model.SessionImage{}, 0)
	assertRowCount(t, env, &model.SessionQuestion{}, 0)
}

func TestCreateSessionInsufficientQuestions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 4, 2).withQuestionCount(3)
	alice := env.user(t, "alice")

	_, err := env.sessions.CreateSession(ctx, alice.ID)
	require.ErrorIs(t, err, ErrInsufficientInventory)
	assertRowCount(t, env, &model.Session{}, 0)

	env.withQuestionCount(2)
	view, err := env.sessions.CreateSession(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, view.Questions, 2)
}

func TestGetSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 6, 5).withQuestionCount(3)
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	created, err := env.sessions.CreateSession(ctx, alice.ID)
	require.NoError(t, err)

	got, err := env.sessions.GetSession(ctx, alice.ID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Images, got.Images)
	assert.Equal(t, created.Questions, got.Questions)

	_, err = env.sessions.GetSession(ctx, bob.ID, created.ID)
	assert.ErrorIs(t, err, ErrSessionNotOwned)

	_, err = env.sessions.GetSession(ctx, alice.ID, created.ID+100)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestListSessionsNewestFirst(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 4, 1)
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	first, err := env.sessions.CreateSession(ctx, alice.ID)
	require.NoError(t, err)
	second, err := env.sessions.CreateSession(ctx, alice.ID)
	require.NoError(t, err)
	_, err = env.sessions.CreateSession(ctx, bob.ID)
	require.NoError(t, err)

	sessions, err := env.sessions.ListSessions(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, second.ID, sessions[0].ID)
	assert.Equal(t, first.ID, sessions[1].ID)
}

func TestDeleteSessionCascadesAndKeepsStats(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 8, 5).withQuestionCount(2)
	alice := env.user(t, "alice")

	doomed, err := env.sessions.CreateSession(ctx, alice.ID)
	require.NoError(t, err)
	kept, err := env.sessions.CreateSession(ctx, alice.ID)
	require.NoError(t, err)

	for _, view := range []*SessionView{doomed, kept} {
		_, err := env.annotations.SubmitAnswer(ctx, SubmitAnswerInput{
			UserID:           alice.ID,
			SessionID:        view.ID,
			QuestionID:       view.Questions[0].ID,
			SelectedImageIDs: imageIDs(view)[:2],
		})
		require.NoError(t, err)
	}

	bob := env.user(t, "bob")
	assert.ErrorIs(t, env.sessions.DeleteSession(ctx, bob.ID, doomed.ID), ErrSessionNotOwned)
	require.NoError(t, env.sessions.DeleteSession(ctx, alice.ID, doomed.ID))
	assert.ErrorIs(t, env.sessions.DeleteSession(ctx, alice.ID, doomed.ID), ErrSessionNotFound)

	_, err = env.sessions.GetSession(ctx, alice.ID, doomed.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assertRowCount(t, env, &model.Session{}, 1)
	assertRowCount(t, env, &model.SessionImage{}, ImagesPerSession)
	assertRowCount(t, env, &model.SessionQuestion{}, 2)
	assertRowCount(t, env, &model.Annotation{}, 1)
	assertRowCount(t, env, &model.AnnotationImage{}, 2)

	assertStatsMatchLedger(t, env, alice.ID)
}

func assertRowCount(t *testing.T, env *testEnv, table interface{}, want int64) {
	t.Helper()
	var got int64
	require.NoError(t, env.store.DB().Model(table).Count(&got).Error)
	assert.Equal(t, want, got, "rows in %T", table)
}

func assertStatsMatchLedger(t *testing.T, env *testEnv, userID uint) {
	t.Helper()
	ctx := context.Background()
	annotations, err := env.store.Annotations.CountByUserID(ctx, userID)
	require.NoError(t, err)

	stats, err := env.store.Stats.GetByUserID(ctx, userID)
	require.NoError(t, err)
	total := 0
	if stats != nil {
		total = stats.TotalAnnotations
	}
	assert.EqualValues(t, annotations, total, "total_annotations must equal the annotation count")
}
