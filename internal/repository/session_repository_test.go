package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"dental-captcha/internal/model"
	"dental-captcha/internal/repository"
	"dental-captcha/internal/testutil"
)

func newBoundSession(t *testing.T, store *repository.Store, userID uint) (*model.Session, []model.Image, []model.Question) {
	t.Helper()
	images := testutil.SeedImages(t, store, 4)
	questions := testutil.SeedQuestions(t, store, 2)

	session := &model.Session{UserID: userID, StartedAt: time.Now()}
	imageBindings := make([]model.SessionImage, len(images))
	for i, img := range images {
		imageBindings[i] = model.SessionImage{ImageID: img.ID, ImageOrder: i + 1}
	}
	questionBindings := make([]model.SessionQuestion, len(questions))
	for i, q := range questions {
		questionBindings[i] = model.SessionQuestion{QuestionID: q.ID, QuestionOrder: i + 1}
	}
	require.NoError(t, store.Transaction(context.Background(), func(tx *repository.Store) error {
		return tx.Sessions.CreateWithBindings(context.Background(), session, imageBindings, questionBindings)
	}))
	return session, images, questions
}

func TestCreateWithBindingsRollsBack(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	user := testutil.SeedUser(t, store, "alice")
	images := testutil.SeedImages(t, store, 2)

	session := &model.Session{UserID: user.ID, StartedAt: time.Now()}
	// duplicate order violates idx_session_image_order
	bindings := []model.SessionImage{
		{ImageID: images[0].ID, ImageOrder: 1},
		{ImageID: images[1].ID, ImageOrder: 1},
	}
	err := store.Transaction(ctx, func(tx *repository.Store) error {
		return tx.Sessions.CreateWithBindings(ctx, session, bindings, nil)
	})
	require.Error(t, err)

	var sessions int64
	require.NoError(t, store.DB().Model(&model.Session{}).Count(&sessions).Error)
	assert.Zero(t, sessions)
}

func TestLockAndMarkCompleted(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	user := testutil.SeedUser(t, store, "alice")
	session, _, _ := newBoundSession(t, store, user.ID)

	locked, err := store.Sessions.Lock(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, locked)

	locked, err = store.Sessions.Lock(ctx, session.ID+1)
	require.NoError(t, err)
	assert.False(t, locked)

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	marked, err := store.Sessions.MarkCompleted(ctx, session.ID, at)
	require.NoError(t, err)
	assert.True(t, marked)

	marked, err = store.Sessions.MarkCompleted(ctx, session.ID, at.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, marked)

	stored, err := store.Sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CompletedAt)
	assert.True(t, stored.CompletedAt.Equal(at))
	assert.EqualValues(t, 1, stored.LockVersion)
}

func TestAnnotationUniqueIndex(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	user := testutil.SeedUser(t, store, "alice")
	session, images, questions := newBoundSession(t, store, user.ID)

	first := &model.Annotation{SessionID: session.ID, QuestionID: questions[0].ID}
	require.NoError(t, store.Annotations.CreateWithImages(ctx, first, []uint{images[2].ID, images[0].ID}))

	dup := &model.Annotation{SessionID: session.ID, QuestionID: questions[0].ID}
	err := store.Annotations.CreateWithImages(ctx, dup, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "got %v", err)

	selected, err := store.Annotations.ImageIDsByAnnotationIDs(ctx, []uint{first.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint{images[2].ID, images[0].ID}, selected[first.ID])
}

func TestDeleteCascade(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	user := testutil.SeedUser(t, store, "alice")
	session, images, questions := newBoundSession(t, store, user.ID)

	annotation := &model.Annotation{SessionID: session.ID, QuestionID: questions[1].ID}
	require.NoError(t, store.Annotations.CreateWithImages(ctx, annotation, []uint{images[1].ID}))

	require.NoError(t, store.Transaction(ctx, func(tx *repository.Store) error {
		return tx.Sessions.DeleteCascade(ctx, session.ID)
	}))

	for _, table := range []interface{}{
		&model.Session{},
		&model.SessionImage{},
		&model.SessionQuestion{},
		&model.Annotation{},
		&model.AnnotationImage{},
	} {
		var n int64
		require.NoError(t, store.DB().Model(table).Count(&n).Error)
		assert.Zero(t, n, "rows left in %T", table)
	}

	// catalog rows are not owned by the session
	ids, err := store.Images.ListIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 4)
}
