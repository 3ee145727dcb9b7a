package app

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dental-captcha/internal/testutil"
)

func TestSampleImages(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	seeded := testutil.SeedImages(t, store, 10)
	catalog := NewCatalog(store, rand.NewPCG(1, 2))

	images, err := catalog.SampleImages(ctx, 4)
	require.NoError(t, err)
	require.Len(t, images, 4)

	known := make(map[uint]bool, len(seeded))
	for _, img := range seeded {
		known[img.ID] = true
	}
	seen := make(map[uint]bool)
	for _, img := range images {
		assert.True(t, known[img.ID], "image %d not from the catalog", img.ID)
		assert.False(t, seen[img.ID], "image %d drawn twice", img.ID)
		seen[img.ID] = true
		assert.NotEmpty(t, img.Filename)
	}
}

func TestSampleTakesWholeInventory(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	testutil.SeedImages(t, store, 4)
	catalog := NewCatalog(store, nil)

	images, err := catalog.SampleImages(ctx, 4)
	require.NoError(t, err)
	assert.Len(t, images, 4)
}

func TestSampleInsufficientInventory(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	testutil.SeedImages(t, store, 3)
	testutil.SeedQuestions(t, store, 2)
	catalog := NewCatalog(store, nil)

	_, err := catalog.SampleImages(ctx, 4)
	assert.ErrorIs(t, err, ErrInsufficientInventory)

	_, err = catalog.SampleActiveQuestions(ctx, 3)
	assert.ErrorIs(t, err, ErrInsufficientInventory)

	images, err := catalog.SampleImages(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, images)
}

func TestSampleActiveQuestionsSkipsInactive(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	questions := testutil.SeedQuestions(t, store, 3)
	catalog := NewCatalog(store, nil)

	require.NoError(t, catalog.DeactivateQuestion(ctx, questions[1].ID))

	for i := 0; i < 20; i++ {
		drawn, err := catalog.SampleActiveQuestions(ctx, 2)
		require.NoError(t, err)
		for _, q := range drawn {
			assert.NotEqual(t, questions[1].ID, q.ID)
			assert.True(t, q.Active)
		}
	}

	_, err := catalog.SampleActiveQuestions(ctx, 3)
	assert.ErrorIs(t, err, ErrInsufficientInventory)
}

func TestImportImagesSkipsExisting(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	testutil.SeedImages(t, store, 1) // img-1.png
	catalog := NewCatalog(store, nil)

	result, err := catalog.ImportImages(ctx, []ImageImport{
		{Filename: "img-1.png", URL: "https://cdn.example.test/a.png"},
		{Filename: "xray-2.png", URL: "https://cdn.example.test/b.png"},
		{Filename: "xray-2.png", URL: "https://cdn.example.test/c.png"},
		{Filename: " xray-3.png ", URL: "https://cdn.example.test/d.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 2, result.Skipped)

	ids, err := store.Images.ListIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 3)

	_, err = catalog.ImportImages(ctx, []ImageImport{{Filename: "", URL: "x"}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestImportAndDeactivateQuestions(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	catalog := NewCatalog(store, nil)

	result, err := catalog.ImportQuestions(ctx, []QuestionImport{
		{Text: "Select all images showing crowns", Type: "multiple_choice"},
		{Text: "Select all bitewing X-rays", Type: "multiple_choice"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)

	active, err := catalog.ListActiveQuestions(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)

	require.NoError(t, catalog.DeactivateQuestion(ctx, active[0].ID))
	// already inactive is fine
	require.NoError(t, catalog.DeactivateQuestion(ctx, active[0].ID))
	assert.ErrorIs(t, catalog.DeactivateQuestion(ctx, 9999), ErrQuestionNotFound)

	active, err = catalog.ListActiveQuestions(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	count, err := store.Questions.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count, "deactivation must not delete")
}
